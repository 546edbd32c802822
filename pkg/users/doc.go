// Package users provides the Postgres-backed user directory: profile
// lookups, the global super-admin flag, and the account management
// operations exposed to super-admin tooling.
package users
