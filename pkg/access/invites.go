package access

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// InvitationTTL is how long an invitation stays redeemable.
const InvitationTTL = 7 * 24 * time.Hour

// Invitations manages pending farm invitations. Tokens are random hex and
// single-use; redeeming one creates the membership and stamps the invitation
// in the same transaction.
type Invitations struct {
	db        *sql.DB
	evaluator *Evaluator
}

// NewInvitations creates a new invitation service
func NewInvitations(db *sql.DB) *Invitations {
	return &Invitations{
		db:        db,
		evaluator: NewEvaluator(db),
	}
}

// CreateInvitation creates an invitation to join a farm. Owners and site
// admins may invite at any role; a manager may only invite workers.
// Re-inviting the same email replaces the previous token and resets expiry.
func (iv *Invitations) CreateInvitation(ctx context.Context, invitation *Invitation, actingUserID int64) error {
	if !ValidFarmRole(invitation.Role) {
		return badRequest(fmt.Sprintf("invalid farm role: %s", invitation.Role))
	}

	allowed, err := iv.evaluator.IsFarmAdmin(ctx, actingUserID, invitation.FarmID)
	if err != nil {
		return internal("failed to verify acting user", err)
	}
	if !allowed {
		return forbidden("not authorized to invite users to this farm")
	}
	if invitation.Role != RoleWorker {
		isManager, err := iv.evaluator.IsFarmManager(ctx, actingUserID, invitation.FarmID)
		if err != nil {
			return internal("failed to verify acting user", err)
		}
		if isManager {
			return forbidden("managers may only invite workers")
		}
	}

	token, err := generateInviteToken()
	if err != nil {
		return internal("failed to generate token", err)
	}
	invitation.Token = token
	invitation.InvitedBy = actingUserID

	if invitation.InvitedAt.IsZero() {
		invitation.InvitedAt = time.Now()
	}
	if invitation.ExpiresAt.IsZero() {
		invitation.ExpiresAt = invitation.InvitedAt.Add(InvitationTTL)
	}

	query := `
		INSERT INTO farm_invitations (farm_id, email, role, token, invited_by, invited_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (farm_id, email) DO UPDATE
		SET role = EXCLUDED.role, token = EXCLUDED.token,
		    invited_at = EXCLUDED.invited_at, expires_at = EXCLUDED.expires_at
		RETURNING id
	`
	err = iv.db.QueryRowContext(ctx, query, invitation.FarmID, invitation.Email,
		invitation.Role, invitation.Token, invitation.InvitedBy,
		invitation.InvitedAt, invitation.ExpiresAt).Scan(&invitation.ID)
	if err != nil {
		return internal("failed to create invitation", err)
	}

	return nil
}

// GetInvitation retrieves an invitation by token
func (iv *Invitations) GetInvitation(ctx context.Context, token string) (*Invitation, error) {
	query := `
		SELECT id, farm_id, email, role, token, invited_by, invited_at, expires_at, accepted_at, accepted_by
		FROM farm_invitations
		WHERE token = $1
	`
	invitation := &Invitation{}
	var acceptedAt sql.NullTime
	var acceptedBy sql.NullInt64
	err := iv.db.QueryRowContext(ctx, query, token).Scan(
		&invitation.ID, &invitation.FarmID, &invitation.Email, &invitation.Role,
		&invitation.Token, &invitation.InvitedBy, &invitation.InvitedAt,
		&invitation.ExpiresAt, &acceptedAt, &acceptedBy,
	)
	if err == sql.ErrNoRows {
		return nil, notFound("invitation not found")
	}
	if err != nil {
		return nil, internal("failed to get invitation", err)
	}
	if acceptedAt.Valid {
		invitation.AcceptedAt = &acceptedAt.Time
	}
	if acceptedBy.Valid {
		invitation.AcceptedBy = &acceptedBy.Int64
	}

	return invitation, nil
}

// ListInvitations lists the pending invitations for a farm
func (iv *Invitations) ListInvitations(ctx context.Context, farmID int64, actingUserID int64) ([]*Invitation, error) {
	allowed, err := iv.evaluator.IsFarmAdmin(ctx, actingUserID, farmID)
	if err != nil {
		return nil, internal("failed to verify acting user", err)
	}
	if !allowed {
		return nil, forbidden("not authorized to view invitations for this farm")
	}

	query := `
		SELECT id, farm_id, email, role, token, invited_by, invited_at, expires_at
		FROM farm_invitations
		WHERE farm_id = $1 AND accepted_at IS NULL
		ORDER BY invited_at DESC
	`
	rows, err := iv.db.QueryContext(ctx, query, farmID)
	if err != nil {
		return nil, internal("failed to list invitations", err)
	}
	defer rows.Close()

	var invitations []*Invitation
	for rows.Next() {
		invitation := &Invitation{}
		if err := rows.Scan(
			&invitation.ID, &invitation.FarmID, &invitation.Email, &invitation.Role,
			&invitation.Token, &invitation.InvitedBy, &invitation.InvitedAt, &invitation.ExpiresAt,
		); err != nil {
			return nil, internal("failed to scan invitation", err)
		}
		invitations = append(invitations, invitation)
	}
	if err := rows.Err(); err != nil {
		return nil, internal("failed to list invitations", err)
	}

	return invitations, nil
}

// AcceptInvitation redeems a token for the given user, creating the
// membership and marking the invitation accepted in one transaction.
func (iv *Invitations) AcceptInvitation(ctx context.Context, token string, userID int64) error {
	tx, err := iv.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := `
		SELECT id, farm_id, role, invited_by, expires_at, accepted_at
		FROM farm_invitations
		WHERE token = $1
	`
	var id, farmID, invitedBy int64
	var role Role
	var expiresAt time.Time
	var acceptedAt sql.NullTime

	err = tx.QueryRowContext(ctx, query, token).Scan(&id, &farmID, &role, &invitedBy, &expiresAt, &acceptedAt)
	if err == sql.ErrNoRows {
		return notFound("invitation not found")
	}
	if err != nil {
		return internal("failed to get invitation", err)
	}

	if acceptedAt.Valid {
		return conflict("invitation already accepted")
	}
	if time.Now().After(expiresAt) {
		return conflict("invitation expired")
	}

	now := time.Now()
	query = `
		INSERT INTO farm_users (farm_id, user_id, role, permissions, assigned_by, created_at, updated_at)
		VALUES ($1, $2, $3, '', $4, $5, $5)
		ON CONFLICT (farm_id, user_id) DO NOTHING
	`
	_, err = tx.ExecContext(ctx, query, farmID, userID, role, invitedBy, now)
	if err != nil {
		return internal("failed to add member", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE farm_invitations SET accepted_at = $1, accepted_by = $2 WHERE id = $3`,
		now, userID, id,
	)
	if err != nil {
		return internal("failed to update invitation", err)
	}

	if err := tx.Commit(); err != nil {
		return internal("failed to commit acceptance", err)
	}

	return nil
}

// RevokeInvitation deletes a pending invitation and returns the farm it
// belonged to.
func (iv *Invitations) RevokeInvitation(ctx context.Context, id int64, actingUserID int64) (int64, error) {
	var farmID int64
	err := iv.db.QueryRowContext(ctx,
		`SELECT farm_id FROM farm_invitations WHERE id = $1 AND accepted_at IS NULL`, id,
	).Scan(&farmID)
	if err == sql.ErrNoRows {
		return 0, notFound("invitation not found or already accepted")
	}
	if err != nil {
		return 0, internal("failed to get invitation", err)
	}

	allowed, err := iv.evaluator.IsFarmAdmin(ctx, actingUserID, farmID)
	if err != nil {
		return 0, internal("failed to verify acting user", err)
	}
	if !allowed {
		return 0, forbidden("not authorized to revoke invitations for this farm")
	}

	result, err := iv.db.ExecContext(ctx,
		`DELETE FROM farm_invitations WHERE id = $1 AND accepted_at IS NULL`, id,
	)
	if err != nil {
		return 0, internal("failed to revoke invitation", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, internal("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return 0, notFound("invitation not found or already accepted")
	}

	return farmID, nil
}

// CleanupExpiredInvitations removes expired, unaccepted invitations.
// Intended to run on a schedule.
func (iv *Invitations) CleanupExpiredInvitations(ctx context.Context) (int64, error) {
	result, err := iv.db.ExecContext(ctx,
		`DELETE FROM farm_invitations WHERE expires_at < $1 AND accepted_at IS NULL`,
		time.Now(),
	)
	if err != nil {
		return 0, internal("failed to cleanup expired invitations", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, internal("failed to get rows affected", err)
	}
	return n, nil
}

func generateInviteToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
