// Package api implements the console's HTTP surface: the permission catalog,
// per-member grant management, the project token handoff endpoint, and the
// super-admin user endpoints. Routes are versioned under /api/v1 and protected
// by the session middleware; failures from token issuance map onto HTTP
// status codes (401, 400, 403, 500, 503) by error class.
package api
