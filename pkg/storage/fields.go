package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateField inserts a field and returns its id
func (s *Store) CreateField(ctx context.Context, field *Field) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO fields (farm_id, name, acres, soil_type, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`, field.FarmID, field.Name, field.Acres, field.SoilType, field.Notes, now).Scan(&field.ID)
	if err != nil {
		return fmt.Errorf("failed to create field: %w", err)
	}
	field.CreatedAt = now
	field.UpdatedAt = now
	return nil
}

// GetField retrieves a field by id, restricted to the caller's allow-list
func (s *Store) GetField(ctx context.Context, id int64, farmIDs []int64) (*Field, error) {
	query := `
		SELECT id, farm_id, name, acres, soil_type, notes, created_at, updated_at
		FROM fields
		WHERE id = $1
	`
	args := []interface{}{id}

	clause, filterArgs, ok := farmFilter("farm_id", farmIDs, 2)
	if !ok {
		return nil, ErrNotFound
	}
	if clause != "" {
		query += " AND " + clause
		args = append(args, filterArgs...)
	}

	field := &Field{}
	if err := scanField(s.db.QueryRowContext(ctx, query, args...), field); err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get field: %w", err)
	}
	return field, nil
}

// ListFields returns fields visible to the caller, optionally restricted
// to one farm.
func (s *Store) ListFields(ctx context.Context, farmID *int64, farmIDs []int64) ([]*Field, error) {
	query := `
		SELECT id, farm_id, name, acres, soil_type, notes, created_at, updated_at
		FROM fields
	`
	var conditions []string
	var args []interface{}

	if farmID != nil {
		conditions = append(conditions, "farm_id = $1")
		args = append(args, *farmID)
	}

	clause, filterArgs, ok := farmFilter("farm_id", farmIDs, len(args)+1)
	if !ok {
		return []*Field{}, nil
	}
	if clause != "" {
		conditions = append(conditions, clause)
		args = append(args, filterArgs...)
	}

	query += whereClause(conditions) + " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	defer rows.Close()

	fields := []*Field{}
	for rows.Next() {
		field := &Field{}
		if err := scanField(rows, field); err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		fields = append(fields, field)
	}
	return fields, rows.Err()
}

// UpdateField updates a field's descriptive attributes
func (s *Store) UpdateField(ctx context.Context, field *Field) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE fields SET name = $1, acres = $2, soil_type = $3, notes = $4, updated_at = $5
		WHERE id = $6 AND farm_id = $7
	`, field.Name, field.Acres, field.SoilType, field.Notes, time.Now(), field.ID, field.FarmID)
	if err != nil {
		return fmt.Errorf("failed to update field: %w", err)
	}
	return requireRow(result)
}

// DeleteField removes a field and its crops
func (s *Store) DeleteField(ctx context.Context, id, farmID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM crops WHERE field_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete crops: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM fields WHERE id = $1 AND farm_id = $2`, id, farmID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete field: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	return tx.Commit()
}

func scanField(scanner interface {
	Scan(dest ...interface{}) error
}, field *Field) error {
	var acres sql.NullFloat64
	var soilType, notes sql.NullString
	err := scanner.Scan(
		&field.ID, &field.FarmID, &field.Name, &acres,
		&soilType, &notes, &field.CreatedAt, &field.UpdatedAt,
	)
	if err != nil {
		return err
	}
	field.Acres = acres.Float64
	field.SoilType = soilType.String
	field.Notes = notes.String
	return nil
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	out := " WHERE " + conditions[0]
	for _, c := range conditions[1:] {
		out += " AND " + c
	}
	return out
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
