// Package permissions defines the feature-permission catalog for project
// members: the closed set of permissions, their display groups, the named
// permission templates, and the pure functions that evaluate effective
// permissions for a member. Everything in this package is static
// configuration and pure computation; there is no I/O and no error path.
package permissions
