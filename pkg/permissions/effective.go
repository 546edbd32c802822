package permissions

// Role represents a user's project-scoped role
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"

	// RoleSuperAdmin is a global capability marker carried on some user
	// records, not a project-scoped role. Membership rows never hold it.
	RoleSuperAdmin Role = "super_admin"
)

// DroppedFunc is invoked once per unknown permission string dropped during
// effective-permission filtering, so callers can count the occurrences.
type DroppedFunc func(p FeaturePermission)

// ComputeEffective returns the permission set that actually governs a
// member's access. Super-admins and project owners always hold the full
// catalog regardless of stored grants. Everyone else gets their stored
// grants filtered to known permissions; unknown strings are dropped (stale
// or corrupt rows) and reported through dropped, which may be nil.
//
// This is the single place role overrides are applied. No other component
// may decide that a role implies full access.
func ComputeEffective(role Role, isSuperAdmin bool, granted []FeaturePermission, dropped DroppedFunc) []FeaturePermission {
	if isSuperAdmin || role == RoleOwner {
		return All()
	}

	seen := make(Set, len(granted))
	out := make([]FeaturePermission, 0, len(granted))
	for _, p := range granted {
		if seen.Contains(p) {
			continue
		}
		seen[p] = struct{}{}
		if !IsValid(p) {
			if dropped != nil {
				dropped(p)
			}
			continue
		}
		out = append(out, p)
	}
	return out
}
