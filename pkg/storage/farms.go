package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateFarm inserts a farm and the creator's owner membership in one
// transaction. A farm never exists without at least one owner.
func (s *Store) CreateFarm(ctx context.Context, farm *Farm) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO farms (name, location, size_acres, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`, farm.Name, farm.Location, farm.SizeAcres, farm.OwnerID, now).Scan(&farm.ID)
	if err != nil {
		return fmt.Errorf("failed to create farm: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO farm_users (farm_id, user_id, role, permissions, assigned_by, created_at, updated_at)
		VALUES ($1, $2, 'owner', '', $2, $3, $3)
	`, farm.ID, farm.OwnerID, now)
	if err != nil {
		return fmt.Errorf("failed to create owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit farm creation: %w", err)
	}

	farm.CreatedAt = now
	farm.UpdatedAt = now
	return nil
}

// GetFarm retrieves a farm by id, restricted to the caller's allow-list
func (s *Store) GetFarm(ctx context.Context, id int64, farmIDs []int64) (*Farm, error) {
	query := `
		SELECT id, name, location, size_acres, owner_id, created_at, updated_at
		FROM farms
		WHERE id = $1
	`
	args := []interface{}{id}

	clause, filterArgs, ok := farmFilter("id", farmIDs, 2)
	if !ok {
		return nil, ErrNotFound
	}
	if clause != "" {
		query += " AND " + clause
		args = append(args, filterArgs...)
	}

	farm := &Farm{}
	var location sql.NullString
	var sizeAcres sql.NullFloat64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&farm.ID, &farm.Name, &location, &sizeAcres,
		&farm.OwnerID, &farm.CreatedAt, &farm.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get farm: %w", err)
	}
	farm.Location = location.String
	farm.SizeAcres = sizeAcres.Float64

	return farm, nil
}

// ListFarms returns the farms visible to the caller, by name
func (s *Store) ListFarms(ctx context.Context, farmIDs []int64) ([]*Farm, error) {
	query := `
		SELECT id, name, location, size_acres, owner_id, created_at, updated_at
		FROM farms
	`
	var args []interface{}

	clause, filterArgs, ok := farmFilter("id", farmIDs, 1)
	if !ok {
		return []*Farm{}, nil
	}
	if clause != "" {
		query += " WHERE " + clause
		args = filterArgs
	}
	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list farms: %w", err)
	}
	defer rows.Close()

	farms := []*Farm{}
	for rows.Next() {
		farm := &Farm{}
		var location sql.NullString
		var sizeAcres sql.NullFloat64
		if err := rows.Scan(
			&farm.ID, &farm.Name, &location, &sizeAcres,
			&farm.OwnerID, &farm.CreatedAt, &farm.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan farm: %w", err)
		}
		farm.Location = location.String
		farm.SizeAcres = sizeAcres.Float64
		farms = append(farms, farm)
	}

	return farms, rows.Err()
}

// UpdateFarm updates a farm's descriptive fields
func (s *Store) UpdateFarm(ctx context.Context, farm *Farm) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE farms SET name = $1, location = $2, size_acres = $3, updated_at = $4
		WHERE id = $5
	`, farm.Name, farm.Location, farm.SizeAcres, time.Now(), farm.ID)
	if err != nil {
		return fmt.Errorf("failed to update farm: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFarm removes a farm and all of its records. Memberships, fields,
// crops and the rest go with it in one transaction.
func (s *Store) DeleteFarm(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Crops hang off fields, so they go first
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM crops WHERE field_id IN (SELECT id FROM fields WHERE farm_id = $1)`, id,
	); err != nil {
		return fmt.Errorf("failed to delete crops: %w", err)
	}

	for _, table := range []string{
		"applications", "maintenance_records", "fields", "vehicles",
		"farm_invitations", "farm_users",
	} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE farm_id = $1", table), id,
		); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM farms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete farm: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}
