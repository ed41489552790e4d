package access

import (
	"context"
	"database/sql"
	"fmt"
)

// Store handles farm membership persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new membership store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetUserFarmAccess returns the user's membership row for the farm, joined
// with the farm's name and owner, or nil when the user has no row there.
func (s *Store) GetUserFarmAccess(ctx context.Context, userID, farmID int64) (*Membership, error) {
	query := `
		SELECT fu.id, fu.farm_id, fu.user_id, fu.role, fu.permissions, fu.assigned_by,
		       fu.created_at, fu.updated_at, f.name, f.owner_id
		FROM farm_users fu
		JOIN farms f ON f.id = fu.farm_id
		WHERE fu.user_id = $1 AND fu.farm_id = $2
	`

	m, err := scanMembership(s.db.QueryRowContext(ctx, query, userID, farmID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get farm access: %w", err)
	}
	return m, nil
}

// GetUserFarms returns all farms the user belongs to, ordered by farm name.
// Callers use the result as a farm-id allow-list for filtering collections.
func (s *Store) GetUserFarms(ctx context.Context, userID int64) ([]Membership, error) {
	query := `
		SELECT fu.id, fu.farm_id, fu.user_id, fu.role, fu.permissions, fu.assigned_by,
		       fu.created_at, fu.updated_at, f.name, f.owner_id
		FROM farm_users fu
		JOIN farms f ON f.id = fu.farm_id
		WHERE fu.user_id = $1
		ORDER BY f.name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user farms: %w", err)
	}
	defer rows.Close()

	var memberships []Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, *m)
	}

	return memberships, rows.Err()
}

// GetFarmMembers returns all members of a farm with their usernames,
// oldest membership first.
func (s *Store) GetFarmMembers(ctx context.Context, farmID int64) ([]Membership, error) {
	query := `
		SELECT fu.id, fu.farm_id, fu.user_id, fu.role, fu.permissions, fu.assigned_by,
		       fu.created_at, fu.updated_at, u.username
		FROM farm_users fu
		JOIN users u ON u.id = fu.user_id
		WHERE fu.farm_id = $1
		ORDER BY fu.created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, farmID)
	if err != nil {
		return nil, fmt.Errorf("failed to list farm members: %w", err)
	}
	defer rows.Close()

	var members []Membership
	for rows.Next() {
		var m Membership
		var assignedBy sql.NullInt64

		err := rows.Scan(
			&m.ID,
			&m.FarmID,
			&m.UserID,
			&m.Role,
			&m.Permissions,
			&assignedBy,
			&m.CreatedAt,
			&m.UpdatedAt,
			&m.Username,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan farm member: %w", err)
		}
		if assignedBy.Valid {
			ab := assignedBy.Int64
			m.AssignedBy = &ab
		}

		members = append(members, m)
	}

	return members, rows.Err()
}

// GetMembershipRole returns the stored farm role for (userID, farmID),
// or RoleNone when no row exists.
func (s *Store) GetMembershipRole(ctx context.Context, userID, farmID int64) (Role, error) {
	var role Role
	err := s.db.QueryRowContext(ctx,
		`SELECT role FROM farm_users WHERE user_id = $1 AND farm_id = $2`,
		userID, farmID,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return RoleNone, nil
	}
	if err != nil {
		return RoleNone, fmt.Errorf("failed to get membership role: %w", err)
	}
	return role, nil
}

// DB exposes the underlying handle for callers that need to run the
// multi-statement invariant checks inside one transaction.
func (s *Store) DB() *sql.DB {
	return s.db
}

// countOwnersTx counts owner rows for a farm inside an open transaction.
// The last-owner check and the subsequent write must share the transaction
// or two concurrent removals can both observe two owners.
func countOwnersTx(ctx context.Context, tx *sql.Tx, farmID int64) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM farm_users WHERE farm_id = $1 AND role = $2`,
		farmID, RoleOwner,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}
	return count, nil
}

// scanMembership scans a membership row joined with farm name and owner
func scanMembership(scanner interface {
	Scan(dest ...interface{}) error
}) (*Membership, error) {
	var m Membership
	var assignedBy sql.NullInt64

	err := scanner.Scan(
		&m.ID,
		&m.FarmID,
		&m.UserID,
		&m.Role,
		&m.Permissions,
		&assignedBy,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.FarmName,
		&m.FarmOwnerID,
	)
	if err != nil {
		return nil, err
	}

	if assignedBy.Valid {
		ab := assignedBy.Int64
		m.AssignedBy = &ab
	}

	return &m, nil
}
