package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fieldatlas/console/pkg/auth"
	"github.com/fieldatlas/console/pkg/httputil"
	"github.com/fieldatlas/console/pkg/middleware"
)

// HandoffResponse is the body returned by the handoff endpoint
type HandoffResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	ExpiresIn int    `json:"expires_in"`
}

// issueProjectToken handles POST /api/v1/projects/{projectId}/handoff
func (s *Server) issueProjectToken(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]
	principal := middleware.GetPrincipal(r)

	issued, err := s.issuer.IssueProjectToken(r.Context(), principal, projectID)
	if err != nil {
		s.auditHandoff(r, principal, projectID, err)
		writeIssuanceError(w, err)
		return
	}

	s.auditHandoff(r, principal, projectID, nil)

	httputil.WriteSuccess(w, HandoffResponse{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt.UTC().Format(time.RFC3339),
		ExpiresIn: int(issued.ExpiresIn.Seconds()),
	})
}

func (s *Server) auditHandoff(r *http.Request, principal *auth.Principal, projectID string, err error) {
	if s.recorder == nil {
		return
	}

	event := &auth.AuditEvent{
		ProjectID: projectID,
		Action:    auth.ActionHandoffIssue,
		Status:    auth.StatusSuccess,
	}
	if principal != nil {
		event.ActorID = principal.UserID
	}
	if err != nil {
		event.Action = auth.ActionHandoffDenied
		event.Status = auth.StatusDenied
		event.ErrorMessage = err.Error()
	}

	s.recorder.RecordFromRequest(r, event)
}
