package auth

import (
	"context"
	"database/sql"
	"fmt"
)

// Resolver answers identity questions from storage. Authorization code must
// go through it rather than trusting a role claim embedded in a token: a
// demoted admin loses access on the next request, not at token expiry.
type Resolver struct {
	db *sql.DB
}

// NewResolver creates a new identity resolver
func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{db: db}
}

// IsSiteAdmin reports whether the user's system role is admin.
// A missing user is not an error; it simply has no admin access.
func (r *Resolver) IsSiteAdmin(ctx context.Context, userID int64) (bool, error) {
	var role SystemRole
	err := r.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up system role: %w", err)
	}
	return role == SystemRoleAdmin, nil
}

// GetUser retrieves a user by id
func (r *Resolver) GetUser(ctx context.Context, userID int64) (*User, error) {
	query := `
		SELECT id, username, email, full_name, role, is_active, created_at, updated_at, last_login_at
		FROM users
		WHERE id = $1
	`

	var user User
	var email, fullName sql.NullString
	var lastLoginAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Username,
		&email,
		&fullName,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLoginAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %d", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if email.Valid {
		user.Email = email.String
	}
	if fullName.Valid {
		user.FullName = fullName.String
	}
	if lastLoginAt.Valid {
		ll := lastLoginAt.Time
		user.LastLoginAt = &ll
	}

	return &user, nil
}
