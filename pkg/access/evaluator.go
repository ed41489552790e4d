package access

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/farmstead/farmbook/pkg/auth"
)

// Evaluator combines the system role and farm membership into an effective
// permission set for a given farm. Every resolution reads live state; there
// is no caching layer, so a role change takes effect on the next request.
type Evaluator struct {
	store    *Store
	resolver *auth.Resolver
}

// NewEvaluator creates a new role evaluator
func NewEvaluator(db *sql.DB) *Evaluator {
	return &Evaluator{
		store:    NewStore(db),
		resolver: auth.NewResolver(db),
	}
}

// Store returns the underlying membership store
func (e *Evaluator) Store() *Store {
	return e.store
}

// IsSiteAdmin reports whether the user's system role is admin
func (e *Evaluator) IsSiteAdmin(ctx context.Context, userID int64) (bool, error) {
	return e.resolver.IsSiteAdmin(ctx, userID)
}

// GetUserFarmRole resolves the effective role for (userID, farmID).
// The site-admin check takes priority over any membership row; a missing
// membership yields the "none" role with every capability false.
func (e *Evaluator) GetUserFarmRole(ctx context.Context, userID, farmID int64) (EffectiveRole, error) {
	isAdmin, err := e.resolver.IsSiteAdmin(ctx, userID)
	if err != nil {
		return EffectiveRole{}, fmt.Errorf("failed to resolve system role: %w", err)
	}
	if isAdmin {
		return AdminRole(), nil
	}

	role, err := e.store.GetMembershipRole(ctx, userID, farmID)
	if err != nil {
		return EffectiveRole{}, err
	}
	if role == RoleNone {
		return NoneRole(), nil
	}

	return roleFor(role), nil
}

// IsFarmAdmin reports whether the user administers the farm. Owners and
// managers are both admin-like here; farm deletion is narrower and goes
// through CanDeleteFarm instead.
func (e *Evaluator) IsFarmAdmin(ctx context.Context, userID, farmID int64) (bool, error) {
	isAdmin, err := e.resolver.IsSiteAdmin(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve system role: %w", err)
	}
	if isAdmin {
		return true, nil
	}

	role, err := e.store.GetMembershipRole(ctx, userID, farmID)
	if err != nil {
		return false, err
	}
	return role == RoleOwner || role == RoleManager, nil
}

// IsFarmManager reports whether the user's stored farm role is manager
func (e *Evaluator) IsFarmManager(ctx context.Context, userID, farmID int64) (bool, error) {
	role, err := e.store.GetMembershipRole(ctx, userID, farmID)
	if err != nil {
		return false, err
	}
	return role == RoleManager, nil
}
