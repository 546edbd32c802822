// Package storage opens and configures the console's backing connections:
// the Postgres pool holding users, projects, grants, and audit events, and
// the Redis client backing distributed rate limiting.
package storage
