// Package auth verifies console sessions and records security audit events.
//
// # Overview
//
// Every request to the console carries a bearer session token minted by the
// managed auth backend. This package turns that credential into a Principal
// (user id, email, global role) and writes security-relevant events to the
// audit log.
//
// # Verifiers
//
// Two Authenticator implementations are provided:
//
//	SessionAuthenticator - HS256 verification against the secret shared
//	                       with the auth backend
//	OIDCAuthenticator    - JWKS-based verification via OpenID Connect
//	                       discovery, for providers that publish keys
//
// Both produce the same Principal, so the rest of the service never cares
// which deployment mode is active.
//
// # Audit logging
//
// Security events (authentication outcomes, permission changes, token
// handoffs) are persisted to Postgres:
//
//	recorder.Record(ctx, &auth.AuditEvent{
//		Action:     auth.ActionHandoffIssue,
//		ActorID:    principal.UserID,
//		ProjectID:  projectID,
//		Status:     auth.StatusSuccess,
//	})
//
// A cron-driven sweep deletes entries older than the configured retention
// window.
//
// # Related Packages
//
//   - pkg/handoff: project token issuance for authenticated principals
//   - pkg/middleware: HTTP authentication middleware
//   - pkg/permissions: the feature permission model
package auth
