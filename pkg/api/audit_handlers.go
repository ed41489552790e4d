package api

import (
	"net/http"

	"github.com/farmstead/farmbook/pkg/audit"
	"github.com/farmstead/farmbook/pkg/contextkeys"
	"github.com/farmstead/farmbook/pkg/httputil"
	"github.com/farmstead/farmbook/pkg/observability"
)

// recordAudit appends an audit event, filling in the actor and request id
// from the request. Best effort: a failed write is logged, never surfaced.
func (s *Server) recordAudit(r *http.Request, event *audit.Event) {
	if s.audit == nil {
		return
	}
	if user := currentUser(r); user != nil {
		event.ActorID = user.ID
	}
	event.RequestID = contextkeys.GetRequestID(r.Context())
	if err := s.audit.Record(r.Context(), event); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to record audit event")
	}
}

func (s *Server) listAuditEvents(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	if s.audit == nil {
		httputil.WriteSuccess(w, []*audit.Event{})
		return
	}

	limit, err := httputil.ParseQueryInt(r, "limit", 100)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	events, err := s.audit.ListForFarm(r.Context(), farmID, limit)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if events == nil {
		events = []*audit.Event{}
	}
	httputil.WriteSuccess(w, events)
}
