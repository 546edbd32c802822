// Package projects provides the Postgres-backed project workspace data:
// project records, membership rows (user, role, owning account), and the
// per-member feature-permission grant table consumed by the permission
// editor and the handoff token issuer.
package projects
