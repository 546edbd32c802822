package permissions

// FeaturePermission is an atomic capability a project member may hold
type FeaturePermission string

const (
	PermViewMap               FeaturePermission = "view_map"
	PermViewData              FeaturePermission = "view_data"
	PermRunAnalysis           FeaturePermission = "run_analysis"
	PermUseAIAssistant        FeaturePermission = "use_ai_assistant"
	PermManageFieldTasks      FeaturePermission = "manage_field_tasks"
	PermAssignFieldTasks      FeaturePermission = "assign_field_tasks"
	PermViewDonors            FeaturePermission = "view_donors"
	PermManageDonors          FeaturePermission = "manage_donors"
	PermViewReports           FeaturePermission = "view_reports"
	PermCreateReports         FeaturePermission = "create_reports"
	PermExportData            FeaturePermission = "export_data"
	PermManageProjectMembers  FeaturePermission = "manage_project_members"
	PermManageProjectSettings FeaturePermission = "manage_project_settings"
)

// allPermissions is the canonical catalog. Order here is the canonical
// display order within the full listing.
var allPermissions = []FeaturePermission{
	PermViewMap,
	PermViewData,
	PermRunAnalysis,
	PermUseAIAssistant,
	PermManageFieldTasks,
	PermAssignFieldTasks,
	PermViewDonors,
	PermManageDonors,
	PermViewReports,
	PermCreateReports,
	PermExportData,
	PermManageProjectMembers,
	PermManageProjectSettings,
}

var validPermissions = func() map[FeaturePermission]struct{} {
	m := make(map[FeaturePermission]struct{}, len(allPermissions))
	for _, p := range allPermissions {
		m[p] = struct{}{}
	}
	return m
}()

// All returns a copy of the full permission catalog
func All() []FeaturePermission {
	out := make([]FeaturePermission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// IsValid reports whether p is a known feature permission
func IsValid(p FeaturePermission) bool {
	_, ok := validPermissions[p]
	return ok
}

// Group names a display cluster of permissions
type Group string

const (
	GroupCore            Group = "core"
	GroupAnalysis        Group = "analysis"
	GroupFieldOperations Group = "fieldOperations"
	GroupDonors          Group = "donors"
	GroupReports         Group = "reports"
	GroupExports         Group = "exports"
	GroupAdministrative  Group = "administrative"
)

// groupOrder is the display order of groups
var groupOrder = []Group{
	GroupCore,
	GroupAnalysis,
	GroupFieldOperations,
	GroupDonors,
	GroupReports,
	GroupExports,
	GroupAdministrative,
}

// groupPermissions assigns every permission to exactly one group.
// Used for presentation only; never for validation or evaluation.
var groupPermissions = map[Group][]FeaturePermission{
	GroupCore:            {PermViewMap, PermViewData},
	GroupAnalysis:        {PermRunAnalysis, PermUseAIAssistant},
	GroupFieldOperations: {PermManageFieldTasks, PermAssignFieldTasks},
	GroupDonors:          {PermViewDonors, PermManageDonors},
	GroupReports:         {PermViewReports, PermCreateReports},
	GroupExports:         {PermExportData},
	GroupAdministrative:  {PermManageProjectMembers, PermManageProjectSettings},
}

// Groups returns the display order of permission groups
func Groups() []Group {
	out := make([]Group, len(groupOrder))
	copy(out, groupOrder)
	return out
}

// GroupPermissions returns the permissions in a group, in display order.
// Unknown groups return nil.
func GroupPermissions(g Group) []FeaturePermission {
	perms, ok := groupPermissions[g]
	if !ok {
		return nil
	}
	out := make([]FeaturePermission, len(perms))
	copy(out, perms)
	return out
}

// Set is an order-insensitive collection of feature permissions
type Set map[FeaturePermission]struct{}

// NewSet builds a Set from a permission list, ignoring duplicates
func NewSet(perms ...FeaturePermission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Contains reports whether p is in the set
func (s Set) Contains(p FeaturePermission) bool {
	_, ok := s[p]
	return ok
}

// Equal reports whether two sets hold exactly the same permissions
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if _, ok := other[p]; !ok {
			return false
		}
	}
	return true
}

// Slice returns the set's permissions in canonical catalog order. Members
// outside the catalog (possible when a Set is built from stored strings)
// are appended after the known ones.
func (s Set) Slice() []FeaturePermission {
	out := make([]FeaturePermission, 0, len(s))
	for _, p := range allPermissions {
		if _, ok := s[p]; ok {
			out = append(out, p)
		}
	}
	if len(out) != len(s) {
		for p := range s {
			if !IsValid(p) {
				out = append(out, p)
			}
		}
	}
	return out
}
