package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fieldatlas/console/pkg/auth"
	"github.com/fieldatlas/console/pkg/handoff"
	"github.com/fieldatlas/console/pkg/middleware"
	"github.com/fieldatlas/console/pkg/observability"
	"github.com/fieldatlas/console/pkg/projects"
	"github.com/fieldatlas/console/pkg/users"
)

// Server represents the console API server
type Server struct {
	router       *mux.Router
	issuer       *handoff.Issuer
	projectStore *projects.Store
	userStore    *users.Store
	recorder     *auth.AuditRecorder
	logger       *observability.Logger
}

// RateLimiter throttles API traffic; the handoff endpoint gets its own
// tighter tier. Both the Redis-backed and the in-process limiters in
// pkg/middleware satisfy it.
type RateLimiter interface {
	Handler(next http.Handler) http.Handler
	HandoffHandler(next http.Handler) http.Handler
}

var (
	_ RateLimiter = (*middleware.DistributedRateLimitMiddleware)(nil)
	_ RateLimiter = (*middleware.RateLimitMiddleware)(nil)
)

// Deps carries the collaborators the server needs. Middleware is optional;
// tests wire handlers directly.
type Deps struct {
	Issuer       *handoff.Issuer
	ProjectStore *projects.Store
	UserStore    *users.Store
	Recorder     *auth.AuditRecorder
	Logger       *observability.Logger

	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    RateLimiter
}

// NewServer creates a new API server
func NewServer(deps Deps) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		issuer:       deps.Issuer,
		projectStore: deps.ProjectStore,
		userStore:    deps.UserStore,
		recorder:     deps.Recorder,
		logger:       deps.Logger,
	}

	s.setupRoutes(deps)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(deps Deps) {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	if deps.AuthMiddleware != nil {
		api.Use(deps.AuthMiddleware.Handler)
	}
	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.Handler)
	}

	// Permission catalog routes
	api.HandleFunc("/permissions", s.listPermissions).Methods("GET")
	api.HandleFunc("/permissions/groups", s.listPermissionGroups).Methods("GET")
	api.HandleFunc("/permissions/templates", s.listPermissionTemplates).Methods("GET")

	// Project member routes
	api.HandleFunc("/projects/{projectId}/members", s.listMembers).Methods("GET")
	api.HandleFunc("/projects/{projectId}/members/{userId}/permissions", s.getMemberPermissions).Methods("GET")
	api.HandleFunc("/projects/{projectId}/members/{userId}/permissions", s.replaceMemberPermissions).Methods("PUT")

	// Token handoff route, behind the tighter per-user limit
	handoffHandler := http.HandlerFunc(s.issueProjectToken)
	if deps.RateLimiter != nil {
		api.Handle("/projects/{projectId}/handoff", deps.RateLimiter.HandoffHandler(handoffHandler)).Methods("POST")
	} else {
		api.Handle("/projects/{projectId}/handoff", handoffHandler).Methods("POST")
	}

	// Super-admin user management routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireSuperAdmin())
	admin.HandleFunc("/users", s.listUsers).Methods("GET")
	admin.HandleFunc("/users/{userId}/activate", s.activateUser).Methods("POST")
	admin.HandleFunc("/users/{userId}/deactivate", s.deactivateUser).Methods("POST")
	admin.HandleFunc("/audit", s.queryAuditEvents).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying router for outer middleware wiring
func (s *Server) Router() *mux.Router {
	return s.router
}
