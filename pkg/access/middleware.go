package access

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/farmstead/farmbook/pkg/auth"
	"github.com/farmstead/farmbook/pkg/contextkeys"
	"github.com/farmstead/farmbook/pkg/observability"
)

// Guard provides the farm-scoped authorization middleware family. Every
// guard re-resolves the caller's system role from storage on each request;
// nothing is trusted from the token beyond the user's identity.
type Guard struct {
	evaluator *Evaluator
	metrics   *observability.Metrics
}

// NewGuard creates a new access guard. metrics may be nil.
func NewGuard(db *sql.DB, metrics *observability.Metrics) *Guard {
	return &Guard{
		evaluator: NewEvaluator(db),
		metrics:   metrics,
	}
}

// Evaluator exposes the underlying evaluator for handlers that need
// ad-hoc role checks.
func (g *Guard) Evaluator() *Evaluator {
	return g.evaluator
}

// RequireFarmAccess requires any relationship with the request's farm:
// site admin, or a membership row at any role. On success the resolved
// farm id is attached to the context, plus the membership row for
// non-admin callers.
func (g *Guard) RequireFarmAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		authCtx := authFromContext(r)
		if authCtx == nil || authCtx.User == nil {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		farmID, err := farmIDFromRequest(r)
		if err != nil {
			g.record("farm_access", observability.OutcomeError, start)
			http.Error(w, ClientMessage(err), HTTPStatus(err))
			return
		}

		isAdmin, err := g.evaluator.IsSiteAdmin(r.Context(), authCtx.User.ID)
		if err != nil {
			g.record("farm_access", observability.OutcomeError, start)
			http.Error(w, "permission check failed", http.StatusInternalServerError)
			return
		}

		ctx := contextkeys.WithFarmID(r.Context(), farmID)
		if isAdmin {
			g.record("farm_access", observability.OutcomeAllowed, start)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		membership, err := g.evaluator.Store().GetUserFarmAccess(r.Context(), authCtx.User.ID, farmID)
		if err != nil {
			g.record("farm_access", observability.OutcomeError, start)
			http.Error(w, "permission check failed", http.StatusInternalServerError)
			return
		}
		if membership == nil {
			g.record("farm_access", observability.OutcomeDenied, start)
			http.Error(w, "You don't have access to this farm", http.StatusForbidden)
			return
		}

		ctx = contextkeys.WithFarmAccess(ctx, membership)
		g.record("farm_access", observability.OutcomeAllowed, start)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireFarmAdmin requires the caller to administer the request's farm:
// site admin, owner or manager.
func (g *Guard) RequireFarmAdmin(next http.Handler) http.Handler {
	return g.requireRole("farm_admin", func(role EffectiveRole) bool {
		return role.CanManageFarm
	}, "You don't have admin access to this farm", next)
}

// RequireFarmUserManagement requires the caller to manage the farm's
// members. The caller's effective role is attached to the context so
// handlers can enforce manager-specific constraints on the target role.
func (g *Guard) RequireFarmUserManagement(next http.Handler) http.Handler {
	return g.requireRole("farm_user_management", func(role EffectiveRole) bool {
		return role.CanManageUsers
	}, "You don't have permission to manage users for this farm", next)
}

// RequireFarmOwner requires ownership of the request's farm (or site
// admin). Guards farm deletion.
func (g *Guard) RequireFarmOwner(next http.Handler) http.Handler {
	return g.requireRole("farm_owner", func(role EffectiveRole) bool {
		return role.CanDeleteFarm
	}, "Only the farm owner can perform this action", next)
}

func (g *Guard) requireRole(check string, allow func(EffectiveRole) bool, denyMsg string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		authCtx := authFromContext(r)
		if authCtx == nil || authCtx.User == nil {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		farmID, err := farmIDFromRequest(r)
		if err != nil {
			g.record(check, observability.OutcomeError, start)
			http.Error(w, ClientMessage(err), HTTPStatus(err))
			return
		}

		role, err := g.evaluator.GetUserFarmRole(r.Context(), authCtx.User.ID, farmID)
		if err != nil {
			g.record(check, observability.OutcomeError, start)
			http.Error(w, "permission check failed", http.StatusInternalServerError)
			return
		}
		if !allow(role) {
			g.record(check, observability.OutcomeDenied, start)
			http.Error(w, denyMsg, http.StatusForbidden)
			return
		}

		ctx := contextkeys.WithFarmID(r.Context(), farmID)
		ctx = contextkeys.WithFarmRole(ctx, role)
		g.record(check, observability.OutcomeAllowed, start)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FilterByUserFarms attaches the caller's farm allow-list to the context
// for list endpoints. Site admins get a nil list, meaning unrestricted.
// It never rejects the request; an empty list means the caller sees
// nothing, which the storage layer short-circuits without querying.
func (g *Guard) FilterByUserFarms(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		authCtx := authFromContext(r)
		if authCtx == nil || authCtx.User == nil {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		isAdmin, err := g.evaluator.IsSiteAdmin(r.Context(), authCtx.User.ID)
		if err != nil {
			g.record("filter_farms", observability.OutcomeError, start)
			http.Error(w, "permission check failed", http.StatusInternalServerError)
			return
		}
		if isAdmin {
			g.record("filter_farms", observability.OutcomeAllowed, start)
			next.ServeHTTP(w, r)
			return
		}

		memberships, err := g.evaluator.Store().GetUserFarms(r.Context(), authCtx.User.ID)
		if err != nil {
			g.record("filter_farms", observability.OutcomeError, start)
			http.Error(w, "permission check failed", http.StatusInternalServerError)
			return
		}

		farmIDs := make([]int64, 0, len(memberships))
		for _, m := range memberships {
			farmIDs = append(farmIDs, m.FarmID)
		}

		ctx := contextkeys.WithUserFarms(r.Context(), farmIDs)
		g.record("filter_farms", observability.OutcomeAllowed, start)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Guard) record(check, outcome string, start time.Time) {
	if g.metrics != nil {
		g.metrics.RecordAccessCheck(check, outcome, time.Since(start))
	}
}

// farmIDFromRequest resolves the farm id a request targets, in priority
// order: the farmId route variable, the id route variable, then a
// farm_id field in a JSON body. The body is restored so handlers can
// still decode it.
func farmIDFromRequest(r *http.Request) (int64, error) {
	vars := mux.Vars(r)
	if raw, ok := vars["farmId"]; ok {
		return parseFarmID(raw)
	}
	if raw, ok := vars["id"]; ok {
		return parseFarmID(raw)
	}

	if r.Body != nil && r.Body != http.NoBody {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return 0, badRequest("failed to read request body")
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var payload struct {
			FarmID *int64 `json:"farm_id"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && payload.FarmID != nil {
			if *payload.FarmID <= 0 {
				return 0, badRequest("invalid farm ID")
			}
			return *payload.FarmID, nil
		}
	}

	return 0, badRequest("farm ID is required")
}

func parseFarmID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid farm ID")
	}
	return id, nil
}

func authFromContext(r *http.Request) *auth.AuthContext {
	authCtx, ok := r.Context().Value(contextkeys.AuthKey).(*auth.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}
