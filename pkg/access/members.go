package access

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Members performs farm membership mutations. Authorization is re-validated
// inside each operation, independently of any middleware that already ran,
// because these are also invokable as library functions.
type Members struct {
	db        *sql.DB
	evaluator *Evaluator
}

// NewMembers creates a new membership management service
func NewMembers(db *sql.DB) *Members {
	return &Members{
		db:        db,
		evaluator: NewEvaluator(db),
	}
}

// AddUserToFarm adds a user to a farm with the given role. The acting user
// must be a site admin or a farm owner/manager. An existing membership is a
// conflict; callers must remove it first rather than silently overwrite.
// The duplicate check and the insert run in one serializable transaction.
// Returns the new row's id.
func (m *Members) AddUserToFarm(ctx context.Context, farmID, userID int64, role Role, permissions string, actingUserID int64) (int64, error) {
	if !ValidFarmRole(role) {
		return 0, badRequest(fmt.Sprintf("invalid farm role: %s", role))
	}

	allowed, err := m.evaluator.IsFarmAdmin(ctx, actingUserID, farmID)
	if err != nil {
		return 0, internal("failed to verify acting user", err)
	}
	if !allowed {
		return 0, forbidden("not authorized to manage users for this farm")
	}

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	// The duplicate check and the insert share the transaction; two
	// concurrent adds cannot both observe a missing row.
	var existing Role
	err = tx.QueryRowContext(ctx,
		`SELECT role FROM farm_users WHERE farm_id = $1 AND user_id = $2`,
		farmID, userID,
	).Scan(&existing)
	if err == nil {
		return 0, conflict("user is already a member of this farm")
	}
	if err != sql.ErrNoRows {
		return 0, internal("failed to check existing membership", err)
	}

	now := time.Now()
	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO farm_users (farm_id, user_id, role, permissions, assigned_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`, farmID, userID, role, permissions, actingUserID, now).Scan(&id)
	if err != nil {
		return 0, internal("failed to add user to farm", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, internal("failed to commit membership", err)
	}

	return id, nil
}

// RemoveUserFromFarm removes a user's membership. A non-admin actor may not
// remove the farm's only remaining owner; the owner count and the delete run
// in one serializable transaction so two concurrent removals cannot both
// observe two owners.
func (m *Members) RemoveUserFromFarm(ctx context.Context, farmID, userID, actingUserID int64) error {
	isAdmin, err := m.evaluator.IsSiteAdmin(ctx, actingUserID)
	if err != nil {
		return internal("failed to verify acting user", err)
	}
	if !isAdmin {
		allowed, err := m.evaluator.IsFarmAdmin(ctx, actingUserID, farmID)
		if err != nil {
			return internal("failed to verify acting user", err)
		}
		if !allowed {
			return forbidden("not authorized to manage users for this farm")
		}
	}

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var targetRole Role
	err = tx.QueryRowContext(ctx,
		`SELECT role FROM farm_users WHERE farm_id = $1 AND user_id = $2`,
		farmID, userID,
	).Scan(&targetRole)
	if err == sql.ErrNoRows {
		return notFound("user is not a member of this farm")
	}
	if err != nil {
		return internal("failed to look up membership", err)
	}

	// Site admins bypass the last-owner protection and can leave a farm
	// ownerless; see DESIGN.md.
	if targetRole == RoleOwner && !isAdmin {
		owners, err := countOwnersTx(ctx, tx, farmID)
		if err != nil {
			return internal("failed to count owners", err)
		}
		if owners <= 1 {
			return conflict("cannot remove the last owner of a farm")
		}
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM farm_users WHERE farm_id = $1 AND user_id = $2`,
		farmID, userID,
	)
	if err != nil {
		return internal("failed to remove user from farm", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return internal("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return notFound("user is not a member of this farm")
	}

	if err := tx.Commit(); err != nil {
		return internal("failed to commit removal", err)
	}

	return nil
}

// UpdateUserFarmRole overwrites a member's role. Demoting the farm's only
// owner is the same invariant violation as removing them and is checked in
// the same transaction as the write.
func (m *Members) UpdateUserFarmRole(ctx context.Context, farmID, userID int64, role Role, actingUserID int64) error {
	if !ValidFarmRole(role) {
		return badRequest(fmt.Sprintf("invalid farm role: %s", role))
	}

	isAdmin, err := m.evaluator.IsSiteAdmin(ctx, actingUserID)
	if err != nil {
		return internal("failed to verify acting user", err)
	}
	if !isAdmin {
		allowed, err := m.evaluator.IsFarmAdmin(ctx, actingUserID, farmID)
		if err != nil {
			return internal("failed to verify acting user", err)
		}
		if !allowed {
			return forbidden("not authorized to manage users for this farm")
		}
	}

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var currentRole Role
	err = tx.QueryRowContext(ctx,
		`SELECT role FROM farm_users WHERE farm_id = $1 AND user_id = $2`,
		farmID, userID,
	).Scan(&currentRole)
	if err == sql.ErrNoRows {
		return notFound("user is not a member of this farm")
	}
	if err != nil {
		return internal("failed to look up membership", err)
	}

	if currentRole == RoleOwner && role != RoleOwner && !isAdmin {
		owners, err := countOwnersTx(ctx, tx, farmID)
		if err != nil {
			return internal("failed to count owners", err)
		}
		if owners <= 1 {
			return conflict("cannot demote the last owner of a farm")
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE farm_users SET role = $1, updated_at = $2 WHERE farm_id = $3 AND user_id = $4`,
		role, time.Now(), farmID, userID,
	)
	if err != nil {
		return internal("failed to update farm role", err)
	}

	if err := tx.Commit(); err != nil {
		return internal("failed to commit role update", err)
	}

	return nil
}
