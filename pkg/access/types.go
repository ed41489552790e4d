package access

import (
	"time"
)

// Role represents a farm-scoped role, plus the two derived values the
// evaluator can resolve to: "admin" for site admins and "none" for users
// with no membership row.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleWorker  Role = "worker"

	// RoleAdmin is never stored in farm_users; it marks a site admin's
	// effective role on any farm.
	RoleAdmin Role = "admin"
	// RoleNone marks the absence of any membership.
	RoleNone Role = "none"
)

// ValidFarmRole reports whether a role may be stored on a membership row
func ValidFarmRole(r Role) bool {
	switch r {
	case RoleOwner, RoleManager, RoleWorker:
		return true
	}
	return false
}

// Membership represents a farm_users row binding one user to one farm,
// joined with the farm's name and owner for handler convenience.
//
// The permissions string is stored and returned verbatim but is never
// interpreted; only Role drives decisions. It is reserved for future
// fine-grained permissions.
type Membership struct {
	ID          int64     `json:"id"`
	FarmID      int64     `json:"farm_id"`
	UserID      int64     `json:"user_id"`
	Role        Role      `json:"role"`
	Permissions string    `json:"permissions"`
	AssignedBy  *int64    `json:"assigned_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	FarmName    string `json:"farm_name,omitempty"`
	FarmOwnerID int64  `json:"farm_owner_id,omitempty"`
	Username    string `json:"username,omitempty"`
}

// EffectiveRole is the resolved capability set for a (user, farm) pair.
// It is computed per request and never persisted.
type EffectiveRole struct {
	Role           Role `json:"role"`
	CanManageUsers bool `json:"can_manage_users"`
	CanManageFarm  bool `json:"can_manage_farm"`
	CanDeleteFarm  bool `json:"can_delete_farm"`
}

// AdminRole is the effective role of a site admin on every farm
func AdminRole() EffectiveRole {
	return EffectiveRole{
		Role:           RoleAdmin,
		CanManageUsers: true,
		CanManageFarm:  true,
		CanDeleteFarm:  true,
	}
}

// NoneRole is the effective role of a user with no membership
func NoneRole() EffectiveRole {
	return EffectiveRole{Role: RoleNone}
}

// roleFor computes the capability flags for a stored farm role.
// Owner and manager both administer the farm; only an owner (or a site
// admin) may delete it.
func roleFor(r Role) EffectiveRole {
	return EffectiveRole{
		Role:           r,
		CanManageUsers: r == RoleOwner || r == RoleManager,
		CanManageFarm:  r == RoleOwner || r == RoleManager,
		CanDeleteFarm:  r == RoleOwner,
	}
}

// Invitation represents a pending invitation to join a farm
type Invitation struct {
	ID         int64      `json:"id"`
	FarmID     int64      `json:"farm_id"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	Token      string     `json:"token,omitempty"`
	InvitedBy  int64      `json:"invited_by"`
	InvitedAt  time.Time  `json:"invited_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy *int64     `json:"accepted_by,omitempty"`
}
