package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateCrop inserts a crop under a field. The field must be visible to
// the caller; the allow-list check happens here because crops carry no
// farm_id of their own.
func (s *Store) CreateCrop(ctx context.Context, crop *Crop, farmIDs []int64) error {
	field, err := s.GetField(ctx, crop.FieldID, farmIDs)
	if err != nil {
		return err
	}

	if crop.Status == "" {
		crop.Status = CropPlanned
	}

	now := time.Now()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO crops (field_id, name, variety, status, planted_at, harvested_at, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`, crop.FieldID, crop.Name, crop.Variety, crop.Status,
		crop.PlantedAt, crop.HarvestedAt, crop.Notes, now).Scan(&crop.ID)
	if err != nil {
		return fmt.Errorf("failed to create crop: %w", err)
	}
	crop.FarmID = field.FarmID
	crop.CreatedAt = now
	crop.UpdatedAt = now
	return nil
}

// GetCrop retrieves a crop by id, scoped through its field's farm
func (s *Store) GetCrop(ctx context.Context, id int64, farmIDs []int64) (*Crop, error) {
	query := `
		SELECT c.id, c.field_id, c.name, c.variety, c.status, c.planted_at, c.harvested_at,
		       c.notes, c.created_at, c.updated_at, f.farm_id
		FROM crops c
		JOIN fields f ON f.id = c.field_id
		WHERE c.id = $1
	`
	args := []interface{}{id}

	clause, filterArgs, ok := farmFilter("f.farm_id", farmIDs, 2)
	if !ok {
		return nil, ErrNotFound
	}
	if clause != "" {
		query += " AND " + clause
		args = append(args, filterArgs...)
	}

	crop := &Crop{}
	if err := scanCrop(s.db.QueryRowContext(ctx, query, args...), crop); err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get crop: %w", err)
	}
	return crop, nil
}

// ListCrops returns crops visible to the caller, optionally restricted to
// one field.
func (s *Store) ListCrops(ctx context.Context, fieldID *int64, farmIDs []int64) ([]*Crop, error) {
	query := `
		SELECT c.id, c.field_id, c.name, c.variety, c.status, c.planted_at, c.harvested_at,
		       c.notes, c.created_at, c.updated_at, f.farm_id
		FROM crops c
		JOIN fields f ON f.id = c.field_id
	`
	var conditions []string
	var args []interface{}

	if fieldID != nil {
		conditions = append(conditions, "c.field_id = $1")
		args = append(args, *fieldID)
	}

	clause, filterArgs, ok := farmFilter("f.farm_id", farmIDs, len(args)+1)
	if !ok {
		return []*Crop{}, nil
	}
	if clause != "" {
		conditions = append(conditions, clause)
		args = append(args, filterArgs...)
	}

	query += whereClause(conditions) + " ORDER BY c.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list crops: %w", err)
	}
	defer rows.Close()

	crops := []*Crop{}
	for rows.Next() {
		crop := &Crop{}
		if err := scanCrop(rows, crop); err != nil {
			return nil, fmt.Errorf("failed to scan crop: %w", err)
		}
		crops = append(crops, crop)
	}
	return crops, rows.Err()
}

// UpdateCrop updates a crop's attributes. The caller's visibility is
// re-checked through the field join.
func (s *Store) UpdateCrop(ctx context.Context, crop *Crop, farmIDs []int64) error {
	if _, err := s.GetCrop(ctx, crop.ID, farmIDs); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE crops SET name = $1, variety = $2, status = $3, planted_at = $4,
		       harvested_at = $5, notes = $6, updated_at = $7
		WHERE id = $8
	`, crop.Name, crop.Variety, crop.Status, crop.PlantedAt,
		crop.HarvestedAt, crop.Notes, time.Now(), crop.ID)
	if err != nil {
		return fmt.Errorf("failed to update crop: %w", err)
	}
	return requireRow(result)
}

// DeleteCrop removes a crop
func (s *Store) DeleteCrop(ctx context.Context, id int64, farmIDs []int64) error {
	if _, err := s.GetCrop(ctx, id, farmIDs); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM crops WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete crop: %w", err)
	}
	return requireRow(result)
}

func scanCrop(scanner interface {
	Scan(dest ...interface{}) error
}, crop *Crop) error {
	var variety, notes sql.NullString
	var plantedAt, harvestedAt sql.NullTime
	err := scanner.Scan(
		&crop.ID, &crop.FieldID, &crop.Name, &variety, &crop.Status,
		&plantedAt, &harvestedAt, &notes, &crop.CreatedAt, &crop.UpdatedAt,
		&crop.FarmID,
	)
	if err != nil {
		return err
	}
	crop.Variety = variety.String
	crop.Notes = notes.String
	if plantedAt.Valid {
		crop.PlantedAt = &plantedAt.Time
	}
	if harvestedAt.Valid {
		crop.HarvestedAt = &harvestedAt.Time
	}
	return nil
}
