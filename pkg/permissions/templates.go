package permissions

// Template names a canonical permission set used for quick assignment in the
// member-editing UI
type Template string

const (
	TemplateFullAccess         Template = "fullAccess"
	TemplateProjectCoordinator Template = "projectCoordinator"
	TemplateFieldCollector     Template = "fieldCollector"
	TemplateReportViewer       Template = "reportViewer"

	// TemplateCustom is a computed sentinel, not a stored template: it means
	// the given permission set does not exactly equal any template's set.
	TemplateCustom Template = "custom"
)

// TemplateInfo carries display metadata for a template
type TemplateInfo struct {
	Name        Template `json:"name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
}

type templateDef struct {
	info  TemplateInfo
	perms []FeaturePermission
}

// templateDefs holds the fixed template catalog. Detection iterates in this
// order, so it doubles as the display order.
var templateDefs = []templateDef{
	{
		info: TemplateInfo{
			Name:        TemplateFullAccess,
			DisplayName: "Full Access",
			Description: "Every feature permission, matching what owners hold",
		},
		perms: allPermissions,
	},
	{
		info: TemplateInfo{
			Name:        TemplateProjectCoordinator,
			DisplayName: "Project Coordinator",
			Description: "Day-to-day project operations without member or settings administration",
		},
		perms: []FeaturePermission{
			PermViewMap, PermViewData, PermRunAnalysis, PermUseAIAssistant,
			PermManageFieldTasks, PermAssignFieldTasks, PermViewDonors,
			PermViewReports, PermCreateReports, PermExportData,
		},
	},
	{
		info: TemplateInfo{
			Name:        TemplateFieldCollector,
			DisplayName: "Field Collector",
			Description: "Map and task access for members working in the field",
		},
		perms: []FeaturePermission{
			PermViewMap, PermViewData, PermManageFieldTasks,
		},
	},
	{
		info: TemplateInfo{
			Name:        TemplateReportViewer,
			DisplayName: "Report Viewer",
			Description: "Read-only access to reports",
		},
		perms: []FeaturePermission{
			PermViewData, PermViewReports,
		},
	},
}

// Templates returns display metadata for all defined templates, in order
func Templates() []TemplateInfo {
	out := make([]TemplateInfo, 0, len(templateDefs))
	for _, def := range templateDefs {
		out = append(out, def.info)
	}
	return out
}

// TemplatePermissions returns a copy of the permission set for a template.
// The custom sentinel and unknown names return nil: they have no canonical
// set.
func TemplatePermissions(t Template) []FeaturePermission {
	for _, def := range templateDefs {
		if def.info.Name == t {
			out := make([]FeaturePermission, len(def.perms))
			copy(out, def.perms)
			return out
		}
	}
	return nil
}

// DetectTemplate returns the template whose canonical set exactly equals the
// given permissions, or TemplateCustom when none matches. Comparison is by
// set equality: input order is irrelevant and duplicates are ignored. Total
// over every input, including the empty set.
func DetectTemplate(perms []FeaturePermission) Template {
	set := NewSet(perms...)
	for _, def := range templateDefs {
		if set.Equal(NewSet(def.perms...)) {
			return def.info.Name
		}
	}
	return TemplateCustom
}
