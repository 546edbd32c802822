package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fieldatlas/console/pkg/auth"
	"github.com/fieldatlas/console/pkg/httputil"
	"github.com/fieldatlas/console/pkg/middleware"
)

// listUsers handles GET /api/v1/admin/users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := httputil.ParseQueryInt(r, "limit", 50)
	offset, _ := httputil.ParseQueryInt(r, "offset", 0)

	users, err := s.userStore.ListUsers(r.Context(), limit, offset)
	if err != nil {
		s.logError(err, "failed to list users")
		httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
		return
	}

	httputil.WriteSuccess(w, users)
}

// activateUser handles POST /api/v1/admin/users/{userId}/activate
func (s *Server) activateUser(w http.ResponseWriter, r *http.Request) {
	s.setUserActive(w, r, true)
}

// deactivateUser handles POST /api/v1/admin/users/{userId}/deactivate
func (s *Server) deactivateUser(w http.ResponseWriter, r *http.Request) {
	s.setUserActive(w, r, false)
}

func (s *Server) setUserActive(w http.ResponseWriter, r *http.Request, active bool) {
	userID := mux.Vars(r)["userId"]
	if _, err := uuid.Parse(userID); err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}

	if err := s.userStore.SetActive(r.Context(), userID, active); err != nil {
		s.logError(err, "failed to update user active state")
		httputil.WriteNotFoundError(w, "user not found")
		return
	}

	if s.recorder != nil {
		action := auth.ActionUserActivate
		if !active {
			action = auth.ActionUserDeactivate
		}
		event := &auth.AuditEvent{
			Action:   action,
			TargetID: userID,
			Status:   auth.StatusSuccess,
		}
		if principal := middleware.GetPrincipal(r); principal != nil {
			event.ActorID = principal.UserID
		}
		s.recorder.RecordFromRequest(r, event)
	}

	httputil.WriteSuccessMessage(w, "user updated", map[string]bool{"is_active": active})
}

// queryAuditEvents handles GET /api/v1/admin/audit
func (s *Server) queryAuditEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := httputil.ParseQueryInt(r, "limit", 100)
	offset, _ := httputil.ParseQueryInt(r, "offset", 0)
	filters := &auth.AuditFilters{
		ActorID:   r.URL.Query().Get("actor_id"),
		ProjectID: r.URL.Query().Get("project_id"),
		Action:    r.URL.Query().Get("action"),
		Limit:     limit,
		Offset:    offset,
	}

	events, err := s.recorder.Query(r.Context(), filters)
	if err != nil {
		s.logError(err, "failed to query audit events")
		httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
		return
	}

	httputil.WriteSuccess(w, events)
}
