package auth

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fieldatlas/console/pkg/observability"
)

// AuditEvent is a security-relevant occurrence worth a permanent record.
type AuditEvent struct {
	ID           int64     `json:"id"`
	ActorID      string    `json:"actor_id,omitempty"`
	ProjectID    string    `json:"project_id,omitempty"`
	Action       string    `json:"action"`
	TargetID     string    `json:"target_id,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Audit action constants
const (
	ActionAuthSuccess       = "auth.success"
	ActionAuthFailure       = "auth.failure"
	ActionHandoffIssue      = "handoff.issue"
	ActionHandoffDenied     = "handoff.denied"
	ActionPermissionReplace = "permission.replace"
	ActionUserActivate      = "user.activate"
	ActionUserDeactivate    = "user.deactivate"
	ActionRateLimitExceeded = "ratelimit.exceeded"
)

// Status constants
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

// AuditRecorder persists audit events to Postgres.
type AuditRecorder struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewAuditRecorder creates an audit recorder
func NewAuditRecorder(db *sql.DB, logger *observability.Logger) *AuditRecorder {
	return &AuditRecorder{db: db, logger: logger}
}

// Record writes an audit event
func (r *AuditRecorder) Record(ctx context.Context, event *AuditEvent) error {
	if event.Action == "" {
		return fmt.Errorf("action is required")
	}
	if event.Status == "" {
		return fmt.Errorf("status is required")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events
			(actor_id, project_id, action, target_id, ip_address, user_agent, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`,
		nullable(event.ActorID), nullable(event.ProjectID), event.Action,
		nullable(event.TargetID), nullable(event.IPAddress), nullable(event.UserAgent),
		event.Status, nullable(event.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}

// RecordFromRequest records an event enriched with the request's client
// address and user agent. Recording failures are logged, never surfaced: an
// audit write must not fail the request it describes.
func (r *AuditRecorder) RecordFromRequest(req *http.Request, event *AuditEvent) {
	event.IPAddress = clientIP(req)
	event.UserAgent = req.UserAgent()

	if err := r.Record(req.Context(), event); err != nil && r.logger != nil {
		r.logger.WithError(err).WithField("action", event.Action).Error("audit write failed")
	}
}

// Query retrieves audit events matching the filters, newest first.
func (r *AuditRecorder) Query(ctx context.Context, filters *AuditFilters) ([]*AuditEvent, error) {
	query := `
		SELECT id, actor_id, project_id, action, target_id,
		       ip_address, user_agent, status, error_message, created_at
		FROM audit_events
		WHERE ($1 = '' OR actor_id = $1)
		  AND ($2 = '' OR project_id = $2)
		  AND ($3 = '' OR action = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, query,
		filters.ActorID, filters.ProjectID, filters.Action, limit, filters.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []*AuditEvent
	for rows.Next() {
		var e AuditEvent
		var actorID, projectID, targetID, ipAddress, userAgent, errorMessage sql.NullString
		if err := rows.Scan(&e.ID, &actorID, &projectID, &e.Action, &targetID,
			&ipAddress, &userAgent, &e.Status, &errorMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.ActorID = actorID.String
		e.ProjectID = projectID.String
		e.TargetID = targetID.String
		e.IPAddress = ipAddress.String
		e.UserAgent = userAgent.String
		e.ErrorMessage = errorMessage.String
		events = append(events, &e)
	}

	return events, rows.Err()
}

// AuditFilters narrows an audit query. Empty fields match everything.
type AuditFilters struct {
	ActorID   string
	ProjectID string
	Action    string
	Limit     int
	Offset    int
}

// Sweep deletes audit events older than the retention window and returns the
// number of rows removed.
func (r *AuditRecorder) Sweep(ctx context.Context, retention time.Duration) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM audit_events WHERE created_at < $1`,
		time.Now().Add(-retention),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep audit events: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept audit events: %w", err)
	}

	return deleted, nil
}

// StartRetentionSweep schedules a nightly sweep of expired audit events.
// Returns the scheduler so the caller can stop it on shutdown.
func (r *AuditRecorder) StartRetentionSweep(retention time.Duration) (*cron.Cron, error) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc("17 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		deleted, err := r.Sweep(ctx, retention)
		if err != nil {
			if r.logger != nil {
				r.logger.WithError(err).Error("audit retention sweep failed")
			}
			return
		}
		if r.logger != nil {
			r.logger.WithField("deleted", deleted).Info("audit retention sweep complete")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	scheduler.Start()
	return scheduler, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func clientIP(r *http.Request) string {
	// X-Forwarded-For when behind a proxy
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
