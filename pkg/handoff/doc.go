// Package handoff mints the short-lived project tokens that bridge a
// console session into the field application. A token carries the caller's
// identity, project context, role, and effective feature permissions, and
// expires quickly enough that revoked access cannot outlive it by much.
package handoff
