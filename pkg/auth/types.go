package auth

import "time"

// User represents an account in the system
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	FullName    string     `json:"full_name,omitempty"`
	Role        SystemRole `json:"role"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// SystemRole represents the system-wide role of a user.
// Site admins bypass all farm-level checks; everyone else is scoped by
// their farm memberships.
type SystemRole string

const (
	SystemRoleAdmin SystemRole = "admin"
	SystemRoleUser  SystemRole = "user"
)

// APIToken represents an API token
type APIToken struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	TokenHash    string     `json:"-"` // Never expose hash
	TokenPrefix  string     `json:"token_prefix"`
	Name         string     `json:"name"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	RevokedBy    *int64     `json:"revoked_by,omitempty"`
	RevokeReason string     `json:"revoke_reason,omitempty"`
}

// AuthContext holds authenticated user information attached to a request.
// The embedded user record is trusted for identity only; authorization
// decisions re-derive the system role from storage so that a demotion
// takes effect before any cached claim expires.
type AuthContext struct {
	User  *User
	Token *APIToken
}

// UserID returns the authenticated user's id, or 0 when unauthenticated
func (ac *AuthContext) UserID() int64 {
	if ac == nil || ac.User == nil {
		return 0
	}
	return ac.User.ID
}
