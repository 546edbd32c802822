// Package config loads and validates application configuration from
// environment variables. Every setting has a CONSOLE_-prefixed variable and
// a sensible default; Validate catches contradictory or incomplete settings
// at startup rather than at first use.
package config
