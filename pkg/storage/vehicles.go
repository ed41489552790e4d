package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateVehicle inserts a vehicle and returns its id
func (s *Store) CreateVehicle(ctx context.Context, v *Vehicle) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO vehicles (farm_id, name, make, model, year, engine_hours, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`, v.FarmID, v.Name, v.Make, v.Model, v.Year, v.EngineHours, v.Notes, now).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}
	v.CreatedAt = now
	v.UpdatedAt = now
	return nil
}

// GetVehicle retrieves a vehicle by id, restricted to the caller's allow-list
func (s *Store) GetVehicle(ctx context.Context, id int64, farmIDs []int64) (*Vehicle, error) {
	query := `
		SELECT id, farm_id, name, make, model, year, engine_hours, notes, created_at, updated_at
		FROM vehicles
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

	v := &Vehicle{}
	if err := scanVehicle(s.db.QueryRowContext(ctx, query, args...), v); err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return v, nil
}

// ListVehicles returns vehicles visible to the caller, optionally
// restricted to one farm.
func (s *Store) ListVehicles(ctx context.Context, farmID *int64, farmIDs []int64) ([]*Vehicle, error) {
	query := `
		SELECT id, farm_id, name, make, model, year, engine_hours, notes, created_at, updated_at
		FROM vehicles
	`
	var conditions []string
	var args []interface{}

	if farmID != nil {
		conditions = append(conditions, "farm_id = $1")
		args = append(args, *farmID)
	}

	clause, filterArgs, ok := farmFilter("farm_id", farmIDs, len(args)+1)
	if !ok {
		return []*Vehicle{}, nil
	}
	if clause != "" {
		conditions = append(conditions, clause)
		args = append(args, filterArgs...)
	}

	query += whereClause(conditions) + " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := []*Vehicle{}
	for rows.Next() {
		v := &Vehicle{}
		if err := scanVehicle(rows, v); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// UpdateVehicle updates a vehicle's attributes
func (s *Store) UpdateVehicle(ctx context.Context, v *Vehicle) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE vehicles SET name = $1, make = $2, model = $3, year = $4,
		       engine_hours = $5, notes = $6, updated_at = $7
		WHERE id = $8 AND farm_id = $9
	`, v.Name, v.Make, v.Model, v.Year, v.EngineHours, v.Notes, time.Now(), v.ID, v.FarmID)
	if err != nil {
		return fmt.Errorf("failed to update vehicle: %w", err)
	}
	return requireRow(result)
}

// DeleteVehicle removes a vehicle and its maintenance history
func (s *Store) DeleteVehicle(ctx context.Context, id, farmID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM maintenance_records WHERE vehicle_id = $1`, id,
	); err != nil {
		return fmt.Errorf("failed to delete maintenance records: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM vehicles WHERE id = $1 AND farm_id = $2`, id, farmID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	return tx.Commit()
}

func scanVehicle(scanner interface {
	Scan(dest ...interface{}) error
}, v *Vehicle) error {
	var make, model, notes sql.NullString
	var year sql.NullInt64
	var hours sql.NullFloat64
	err := scanner.Scan(
		&v.ID, &v.FarmID, &v.Name, &make, &model, &year, &hours,
		&notes, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return err
	}
	v.Make = make.String
	v.Model = model.String
	v.Year = int(year.Int64)
	v.EngineHours = hours.Float64
	v.Notes = notes.String
	return nil
}
