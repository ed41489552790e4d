package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateApplication records a chemical or fertilizer application
func (s *Store) CreateApplication(ctx context.Context, a *Application) error {
	if a.AppliedAt.IsZero() {
		a.AppliedAt = time.Now()
	}

	now := time.Now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO applications (farm_id, field_id, product, rate, unit, applied_at, applied_by, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`, a.FarmID, a.FieldID, a.Product, a.Rate, a.Unit,
		a.AppliedAt, a.AppliedBy, a.Notes, now).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create application record: %w", err)
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// GetApplication retrieves an application record by id
func (s *Store) GetApplication(ctx context.Context, id int64, farmIDs []int64) (*Application, error) {
	query := `
		SELECT id, farm_id, field_id, product, rate, unit, applied_at, applied_by, notes, created_at, updated_at
		FROM applications
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

	a := &Application{}
	if err := scanApplication(s.db.QueryRowContext(ctx, query, args...), a); err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get application record: %w", err)
	}
	return a, nil
}

// ListApplications returns application records visible to the caller,
// most recent first, optionally restricted to one farm.
func (s *Store) ListApplications(ctx context.Context, farmID *int64, farmIDs []int64) ([]*Application, error) {
	query := `
		SELECT id, farm_id, field_id, product, rate, unit, applied_at, applied_by, notes, created_at, updated_at
		FROM applications
	`
	var conditions []string
	var args []interface{}

	if farmID != nil {
		conditions = append(conditions, "farm_id = $1")
		args = append(args, *farmID)
	}

	clause, filterArgs, ok := farmFilter("farm_id", farmIDs, len(args)+1)
	if !ok {
		return []*Application{}, nil
	}
	if clause != "" {
		conditions = append(conditions, clause)
		args = append(args, filterArgs...)
	}

	query += whereClause(conditions) + " ORDER BY applied_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list application records: %w", err)
	}
	defer rows.Close()

	records := []*Application{}
	for rows.Next() {
		a := &Application{}
		if err := scanApplication(rows, a); err != nil {
			return nil, fmt.Errorf("failed to scan application record: %w", err)
		}
		records = append(records, a)
	}
	return records, rows.Err()
}

// DeleteApplication removes an application record
func (s *Store) DeleteApplication(ctx context.Context, id, farmID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM applications WHERE id = $1 AND farm_id = $2`, id, farmID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete application record: %w", err)
	}
	return requireRow(result)
}

// CreateMaintenanceRecord records service work on a vehicle
func (s *Store) CreateMaintenanceRecord(ctx context.Context, m *MaintenanceRecord) error {
	if m.PerformedAt.IsZero() {
		m.PerformedAt = time.Now()
	}

	now := time.Now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO maintenance_records (farm_id, vehicle_id, description, cost, performed_at, performed_by, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`, m.FarmID, m.VehicleID, m.Description, m.Cost,
		m.PerformedAt, m.PerformedBy, m.Notes, now).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to create maintenance record: %w", err)
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	return nil
}

// ListMaintenanceRecords returns maintenance records visible to the
// caller, most recent first, optionally restricted to one vehicle.
func (s *Store) ListMaintenanceRecords(ctx context.Context, vehicleID *int64, farmIDs []int64) ([]*MaintenanceRecord, error) {
	query := `
		SELECT id, farm_id, vehicle_id, description, cost, performed_at, performed_by, notes, created_at, updated_at
		FROM maintenance_records
	`
	var conditions []string
	var args []interface{}

	if vehicleID != nil {
		conditions = append(conditions, "vehicle_id = $1")
		args = append(args, *vehicleID)
	}

	clause, filterArgs, ok := farmFilter("farm_id", farmIDs, len(args)+1)
	if !ok {
		return []*MaintenanceRecord{}, nil
	}
	if clause != "" {
		conditions = append(conditions, clause)
		args = append(args, filterArgs...)
	}

	query += whereClause(conditions) + " ORDER BY performed_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance records: %w", err)
	}
	defer rows.Close()

	records := []*MaintenanceRecord{}
	for rows.Next() {
		m := &MaintenanceRecord{}
		var cost sql.NullFloat64
		var performedBy sql.NullInt64
		var notes sql.NullString
		if err := rows.Scan(
			&m.ID, &m.FarmID, &m.VehicleID, &m.Description, &cost,
			&m.PerformedAt, &performedBy, &notes, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan maintenance record: %w", err)
		}
		m.Cost = cost.Float64
		m.Notes = notes.String
		if performedBy.Valid {
			pb := performedBy.Int64
			m.PerformedBy = &pb
		}
		records = append(records, m)
	}
	return records, rows.Err()
}

// DeleteMaintenanceRecord removes a maintenance record
func (s *Store) DeleteMaintenanceRecord(ctx context.Context, id, farmID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM maintenance_records WHERE id = $1 AND farm_id = $2`, id, farmID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete maintenance record: %w", err)
	}
	return requireRow(result)
}

func scanApplication(scanner interface {
	Scan(dest ...interface{}) error
}, a *Application) error {
	var fieldID, appliedBy sql.NullInt64
	var rate sql.NullFloat64
	var unit, notes sql.NullString
	err := scanner.Scan(
		&a.ID, &a.FarmID, &fieldID, &a.Product, &rate, &unit,
		&a.AppliedAt, &appliedBy, &notes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	a.Rate = rate.Float64
	a.Unit = unit.String
	a.Notes = notes.String
	if fieldID.Valid {
		f := fieldID.Int64
		a.FieldID = &f
	}
	if appliedBy.Valid {
		ab := appliedBy.Int64
		a.AppliedBy = &ab
	}
	return nil
}
