package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/farmstead/farmbook/pkg/access"
	"github.com/farmstead/farmbook/pkg/audit"
	"github.com/farmstead/farmbook/pkg/auth"
	"github.com/farmstead/farmbook/pkg/middleware"
	"github.com/farmstead/farmbook/pkg/observability"
	"github.com/farmstead/farmbook/pkg/storage"
)

// Server wires the HTTP API together: authentication, request logging,
// optional rate limiting, and the farm access guard in front of the
// record handlers.
type Server struct {
	router       *mux.Router
	store        *storage.Store
	guard        *access.Guard
	members      *access.Members
	invitations  *access.Invitations
	tokenManager *auth.TokenManager
	resolver     *auth.Resolver
	logger       *observability.Logger
	metrics      *observability.Metrics
	registry     *prometheus.Registry
	rateLimiter  *middleware.RateLimiter
	audit        *audit.Logger
}

// Options carries the server's collaborators. Metrics, Registry,
// RateLimiter and Audit may be nil.
type Options struct {
	Store       *storage.Store
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	Registry    *prometheus.Registry
	RateLimiter *middleware.RateLimiter
	Audit       *audit.Logger
}

// NewServer creates the API server and sets up all routes
func NewServer(opts Options) *Server {
	db := opts.Store.DB()
	s := &Server{
		router:       mux.NewRouter(),
		store:        opts.Store,
		guard:        access.NewGuard(db, opts.Metrics),
		members:      access.NewMembers(db),
		invitations:  access.NewInvitations(db),
		tokenManager: auth.NewTokenManager(db),
		resolver:     auth.NewResolver(db),
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		registry:     opts.Registry,
		rateLimiter:  opts.RateLimiter,
		audit:        opts.Audit,
	}
	s.setupRoutes()
	return s
}

// Router returns the fully wrapped handler for http.Server
func (s *Server) Router() http.Handler {
	var h http.Handler = s.router
	if s.rateLimiter != nil {
		h = s.rateLimiter.Handler(s.logger)(h)
	}
	h = middleware.RequestLogging(s.logger)(h)
	h = middleware.Recovery(s.logger)(h)
	if s.metrics != nil {
		h = s.metrics.HTTPMiddleware(h)
	}
	return h
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.healthz).Methods("GET")
	if s.registry != nil {
		s.router.Handle("/metrics", observability.Handler(s.registry)).Methods("GET")
	}

	authMW := middleware.NewAuthMiddleware(s.tokenManager, s.resolver, false)
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Handler)

	// Farms
	api.HandleFunc("/farms", s.createFarm).Methods("POST")
	api.Handle("/farms", s.guard.FilterByUserFarms(http.HandlerFunc(s.listFarms))).Methods("GET")
	api.Handle("/farms/{farmId}", s.guard.RequireFarmAccess(http.HandlerFunc(s.getFarm))).Methods("GET")
	api.Handle("/farms/{farmId}", s.guard.RequireFarmAdmin(http.HandlerFunc(s.updateFarm))).Methods("PUT")
	api.Handle("/farms/{farmId}", s.guard.RequireFarmOwner(http.HandlerFunc(s.deleteFarm))).Methods("DELETE")

	// Farm members
	api.Handle("/farms/{farmId}/members", s.guard.RequireFarmAccess(http.HandlerFunc(s.listMembers))).Methods("GET")
	api.Handle("/farms/{farmId}/members", s.guard.RequireFarmUserManagement(http.HandlerFunc(s.addMember))).Methods("POST")
	api.Handle("/farms/{farmId}/members/{userId}", s.guard.RequireFarmUserManagement(http.HandlerFunc(s.updateMember))).Methods("PUT")
	api.Handle("/farms/{farmId}/members/{userId}", s.guard.RequireFarmUserManagement(http.HandlerFunc(s.removeMember))).Methods("DELETE")
	api.Handle("/farms/{farmId}/audit", s.guard.RequireFarmAdmin(http.HandlerFunc(s.listAuditEvents))).Methods("GET")

	// Invitations
	api.Handle("/farms/{farmId}/invitations", s.guard.RequireFarmUserManagement(http.HandlerFunc(s.createInvitation))).Methods("POST")
	api.Handle("/farms/{farmId}/invitations", s.guard.RequireFarmUserManagement(http.HandlerFunc(s.listInvitations))).Methods("GET")
	api.HandleFunc("/invitations/accept", s.acceptInvitation).Methods("POST")
	api.HandleFunc("/invitations/{id}", s.revokeInvitation).Methods("DELETE")

	// Farm-scoped records
	s.recordRoutes(api)

	// API tokens for the calling user
	api.HandleFunc("/tokens", s.createToken).Methods("POST")
	api.HandleFunc("/tokens", s.listTokens).Methods("GET")
	api.HandleFunc("/tokens/{id}", s.revokeToken).Methods("DELETE")

	api.HandleFunc("/me", s.getMe).Methods("GET")

	// Site admin surface
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireSiteAdmin)
	admin.HandleFunc("/invitations/cleanup", s.cleanupInvitations).Methods("POST")
}

func (s *Server) recordRoutes(api *mux.Router) {
	farm := func(h http.HandlerFunc) http.Handler {
		return s.guard.RequireFarmAccess(h)
	}

	api.Handle("/farms/{farmId}/fields", farm(s.createField)).Methods("POST")
	api.Handle("/farms/{farmId}/fields", farm(s.listFields)).Methods("GET")
	api.Handle("/farms/{farmId}/fields/{id}", farm(s.getField)).Methods("GET")
	api.Handle("/farms/{farmId}/fields/{id}", farm(s.updateField)).Methods("PUT")
	api.Handle("/farms/{farmId}/fields/{id}", farm(s.deleteField)).Methods("DELETE")

	api.Handle("/farms/{farmId}/crops", farm(s.createCrop)).Methods("POST")
	api.Handle("/farms/{farmId}/crops", farm(s.listCrops)).Methods("GET")
	api.Handle("/farms/{farmId}/crops/{id}", farm(s.getCrop)).Methods("GET")
	api.Handle("/farms/{farmId}/crops/{id}", farm(s.updateCrop)).Methods("PUT")
	api.Handle("/farms/{farmId}/crops/{id}", farm(s.deleteCrop)).Methods("DELETE")

	api.Handle("/farms/{farmId}/vehicles", farm(s.createVehicle)).Methods("POST")
	api.Handle("/farms/{farmId}/vehicles", farm(s.listVehicles)).Methods("GET")
	api.Handle("/farms/{farmId}/vehicles/{id}", farm(s.getVehicle)).Methods("GET")
	api.Handle("/farms/{farmId}/vehicles/{id}", farm(s.updateVehicle)).Methods("PUT")
	api.Handle("/farms/{farmId}/vehicles/{id}", farm(s.deleteVehicle)).Methods("DELETE")

	api.Handle("/farms/{farmId}/applications", farm(s.createApplication)).Methods("POST")
	api.Handle("/farms/{farmId}/applications", farm(s.listApplications)).Methods("GET")
	api.Handle("/farms/{farmId}/applications/{id}", farm(s.getApplication)).Methods("GET")
	api.Handle("/farms/{farmId}/applications/{id}", farm(s.deleteApplication)).Methods("DELETE")

	api.Handle("/farms/{farmId}/maintenance", farm(s.createMaintenanceRecord)).Methods("POST")
	api.Handle("/farms/{farmId}/maintenance", farm(s.listMaintenanceRecords)).Methods("GET")
	api.Handle("/farms/{farmId}/maintenance/{id}", farm(s.deleteMaintenanceRecord)).Methods("DELETE")
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.DB().PingContext(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unhealthy"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
