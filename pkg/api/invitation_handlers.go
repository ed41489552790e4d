package api

import (
	"net/http"

	"github.com/farmstead/farmbook/pkg/access"
	"github.com/farmstead/farmbook/pkg/audit"
	"github.com/farmstead/farmbook/pkg/httputil"
)

type createInvitationRequest struct {
	Email string      `json:"email"`
	Role  access.Role `json:"role"`
}

type acceptInvitationRequest struct {
	Token string `json:"token"`
}

func (s *Server) createInvitation(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	user := currentUser(r)

	var req createInvitationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	invitation := &access.Invitation{
		FarmID: farmID,
		Email:  req.Email,
		Role:   req.Role,
	}
	if err := s.invitations.CreateInvitation(r.Context(), invitation, user.ID); err != nil {
		httputil.WriteAccessError(w, err)
		return
	}
	s.recordAudit(r, &audit.Event{
		Type:   audit.EventInvitationCreate,
		Status: audit.StatusSuccess,
		FarmID: farmID,
		Detail: "email=" + req.Email + " role=" + string(req.Role),
	})

	// The token appears in this response only; subsequent reads omit it
	httputil.WriteCreated(w, invitation)
}

func (s *Server) listInvitations(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	user := currentUser(r)

	invitations, err := s.invitations.ListInvitations(r.Context(), farmID, user.ID)
	if err != nil {
		httputil.WriteAccessError(w, err)
		return
	}
	if invitations == nil {
		invitations = []*access.Invitation{}
	}
	for _, inv := range invitations {
		inv.Token = ""
	}
	httputil.WriteSuccess(w, invitations)
}

func (s *Server) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req acceptInvitationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Token, "token") {
		return
	}

	if err := s.invitations.AcceptInvitation(r.Context(), req.Token, user.ID); err != nil {
		httputil.WriteAccessError(w, err)
		return
	}
	if invitation, err := s.invitations.GetInvitation(r.Context(), req.Token); err == nil {
		s.recordAudit(r, &audit.Event{
			Type:         audit.EventInvitationAccept,
			Status:       audit.StatusSuccess,
			FarmID:       invitation.FarmID,
			TargetUserID: &user.ID,
		})
	}
	httputil.WriteSuccess(w, map[string]string{"status": "accepted"})
}

func (s *Server) revokeInvitation(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	user := currentUser(r)
	if user == nil {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	farmID, err := s.invitations.RevokeInvitation(r.Context(), id, user.ID)
	if err != nil {
		httputil.WriteAccessError(w, err)
		return
	}
	s.recordAudit(r, &audit.Event{
		Type:   audit.EventInvitationRevoke,
		Status: audit.StatusSuccess,
		FarmID: farmID,
	})
	httputil.WriteNoContent(w)
}

func (s *Server) cleanupInvitations(w http.ResponseWriter, r *http.Request) {
	removed, err := s.invitations.CleanupExpiredInvitations(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]int64{"removed": removed})
}
