// Package middleware provides HTTP middleware for authentication, authorization, and rate limiting.
//
// # Overview
//
// This package implements request processing middleware: session verification,
// super-admin gating, and rate limiting (in-memory and Redis-backed).
//
// # Middleware Components
//
// AuthMiddleware: session-token authentication
//
//	m := middleware.NewAuthMiddleware(sessionAuthenticator, false)
//	router.Use(m.Handler)
//	// Extracts the Bearer credential, verifies it, adds the Principal to the request
//
// RequireSuperAdmin: gates operator-only endpoints
//
//	adminRouter.Use(middleware.RequireSuperAdmin())
//
// RateLimitMiddleware: in-memory rate limiting for single-instance deployments
//
// DistributedRateLimitMiddleware: Redis-backed rate limiting shared across
// instances, with a tighter per-user limit on the token handoff endpoint.
// Fails open when Redis is unreachable.
package middleware
