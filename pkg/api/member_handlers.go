package api

import (
	"net/http"

	"github.com/farmstead/farmbook/pkg/access"
	"github.com/farmstead/farmbook/pkg/audit"
	"github.com/farmstead/farmbook/pkg/httputil"
)

type addMemberRequest struct {
	UserID      int64       `json:"user_id"`
	Role        access.Role `json:"role"`
	Permissions string      `json:"permissions"`
}

type updateMemberRequest struct {
	Role access.Role `json:"role"`
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	members, err := s.guard.Evaluator().Store().GetFarmMembers(r.Context(), farmID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if members == nil {
		members = []access.Membership{}
	}
	httputil.WriteSuccess(w, members)
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	user := currentUser(r)

	var req addMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID <= 0 {
		httputil.WriteBadRequest(w, "user_id is required")
		return
	}

	// Managers may only bring in workers; owners and site admins assign
	// any farm role.
	if actor, ok := actorFarmRole(r); ok && actor.Role == access.RoleManager && req.Role != access.RoleWorker {
		httputil.WriteForbidden(w, "managers may only add workers")
		return
	}

	id, err := s.members.AddUserToFarm(r.Context(), farmID, req.UserID, req.Role, req.Permissions, user.ID)
	if err != nil {
		httputil.WriteAccessError(w, err)
		return
	}
	s.recordAudit(r, &audit.Event{
		Type:         audit.EventMemberAdd,
		Status:       audit.StatusSuccess,
		FarmID:       farmID,
		TargetUserID: &req.UserID,
		Detail:       "role=" + string(req.Role),
	})

	httputil.WriteCreated(w, map[string]interface{}{
		"id":      id,
		"farm_id": farmID,
		"user_id": req.UserID,
		"role":    req.Role,
	})
}

func (s *Server) updateMember(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}
	user := currentUser(r)

	var req updateMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if !s.managerMayTouch(w, r, farmID, userID, req.Role) {
		return
	}

	if err := s.members.UpdateUserFarmRole(r.Context(), farmID, userID, req.Role, user.ID); err != nil {
		httputil.WriteAccessError(w, err)
		return
	}
	s.recordAudit(r, &audit.Event{
		Type:         audit.EventMemberRoleChange,
		Status:       audit.StatusSuccess,
		FarmID:       farmID,
		TargetUserID: &userID,
		Detail:       "role=" + string(req.Role),
	})
	httputil.WriteSuccess(w, map[string]interface{}{
		"farm_id": farmID,
		"user_id": userID,
		"role":    req.Role,
	})
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}
	user := currentUser(r)

	if !s.managerMayTouch(w, r, farmID, userID, access.RoleWorker) {
		return
	}

	if err := s.members.RemoveUserFromFarm(r.Context(), farmID, userID, user.ID); err != nil {
		httputil.WriteAccessError(w, err)
		return
	}
	s.recordAudit(r, &audit.Event{
		Type:         audit.EventMemberRemove,
		Status:       audit.StatusSuccess,
		FarmID:       farmID,
		TargetUserID: &userID,
	})
	httputil.WriteNoContent(w)
}

// managerMayTouch enforces the route-level manager constraint: a manager
// actor may only assign the worker role, and only to users who currently
// hold the worker role. Owners and site admins pass through.
func (s *Server) managerMayTouch(w http.ResponseWriter, r *http.Request, farmID, userID int64, newRole access.Role) bool {
	actor, ok := actorFarmRole(r)
	if !ok || actor.Role != access.RoleManager {
		return true
	}
	if newRole != access.RoleWorker {
		httputil.WriteForbidden(w, "managers may only manage workers")
		return false
	}
	current, err := s.guard.Evaluator().Store().GetMembershipRole(r.Context(), userID, farmID)
	if err != nil {
		httputil.WriteErrorMessage(w, http.StatusInternalServerError, "permission check failed")
		return false
	}
	if current != access.RoleWorker && current != access.RoleNone {
		httputil.WriteForbidden(w, "managers may only manage workers")
		return false
	}
	return true
}
