package api

import (
	"errors"
	"net/http"

	"github.com/farmstead/farmbook/pkg/access"
	"github.com/farmstead/farmbook/pkg/audit"
	"github.com/farmstead/farmbook/pkg/auth"
	"github.com/farmstead/farmbook/pkg/contextkeys"
	"github.com/farmstead/farmbook/pkg/httputil"
	"github.com/farmstead/farmbook/pkg/middleware"
	"github.com/farmstead/farmbook/pkg/storage"
)

// errMissingGuard fires when a handler that expects a resolved farm id
// is reached without the access guard in front of it
var errMissingGuard = errors.New("farm id missing from request context")

// currentUser returns the authenticated user. Routes under /api/v1 sit
// behind the auth middleware, so a nil return means a wiring bug rather
// than an anonymous caller.
func currentUser(r *http.Request) *auth.User {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		return nil
	}
	return authCtx.User
}

// guardedFarmID returns the farm id the access guard resolved and verified
func guardedFarmID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	farmID, ok := contextkeys.GetFarmID(r.Context())
	if !ok {
		httputil.WriteInternalError(w, errMissingGuard)
		return 0, false
	}
	return farmID, true
}

// farmScope converts the guard-resolved farm id into a storage allow-list
func farmScope(w http.ResponseWriter, r *http.Request) ([]int64, bool) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return nil, false
	}
	return []int64{farmID}, true
}

// listScope returns the allow-list attached by FilterByUserFarms.
// A nil list means the caller is a site admin and sees everything.
func listScope(r *http.Request) []int64 {
	if farmIDs, ok := r.Context().Value(contextkeys.UserFarmsKey).([]int64); ok {
		return farmIDs
	}
	return nil
}

// actorFarmRole returns the effective farm role the guard attached, if any
func actorFarmRole(r *http.Request) (access.EffectiveRole, bool) {
	role, ok := r.Context().Value(contextkeys.FarmRoleKey).(access.EffectiveRole)
	return role, ok
}

type createFarmRequest struct {
	Name      string  `json:"name"`
	Location  string  `json:"location"`
	SizeAcres float64 `json:"size_acres"`
}

func (s *Server) createFarm(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createFarmRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	farm := &storage.Farm{
		Name:      req.Name,
		Location:  req.Location,
		SizeAcres: req.SizeAcres,
		OwnerID:   user.ID,
	}
	if err := s.store.CreateFarm(r.Context(), farm); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	s.recordAudit(r, &audit.Event{
		Type:   audit.EventFarmCreate,
		Status: audit.StatusSuccess,
		FarmID: farm.ID,
	})
	httputil.WriteCreated(w, farm)
}

func (s *Server) listFarms(w http.ResponseWriter, r *http.Request) {
	farms, err := s.store.ListFarms(r.Context(), listScope(r))
	if err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	if farms == nil {
		farms = []*storage.Farm{}
	}
	httputil.WriteSuccess(w, farms)
}

func (s *Server) getFarm(w http.ResponseWriter, r *http.Request) {
	scope, ok := farmScope(w, r)
	if !ok {
		return
	}
	farm, err := s.store.GetFarm(r.Context(), scope[0], scope)
	if err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteSuccess(w, farm)
}

func (s *Server) updateFarm(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}

	var req createFarmRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	farm := &storage.Farm{
		ID:        farmID,
		Name:      req.Name,
		Location:  req.Location,
		SizeAcres: req.SizeAcres,
	}
	if err := s.store.UpdateFarm(r.Context(), farm); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteSuccess(w, farm)
}

func (s *Server) deleteFarm(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteFarm(r.Context(), farmID); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	s.recordAudit(r, &audit.Event{
		Type:   audit.EventFarmDelete,
		Status: audit.StatusSuccess,
		FarmID: farmID,
	})
	httputil.WriteNoContent(w)
}

func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	httputil.WriteSuccess(w, user)
}
