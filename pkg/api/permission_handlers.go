package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fieldatlas/console/pkg/auth"
	"github.com/fieldatlas/console/pkg/httputil"
	"github.com/fieldatlas/console/pkg/middleware"
	"github.com/fieldatlas/console/pkg/permissions"
)

// PermissionInfo describes one catalog entry for the permission editor
type PermissionInfo struct {
	Name  permissions.FeaturePermission `json:"name"`
	Group permissions.Group             `json:"group"`
}

// GroupInfo describes a display group and its permissions in catalog order
type GroupInfo struct {
	Name        permissions.Group               `json:"name"`
	Permissions []permissions.FeaturePermission `json:"permissions"`
}

// TemplateResponse describes a named permission template
type TemplateResponse struct {
	Name        permissions.Template            `json:"name"`
	DisplayName string                          `json:"display_name"`
	Description string                          `json:"description"`
	Permissions []permissions.FeaturePermission `json:"permissions"`
}

// MemberPermissionsResponse reports a member's effective permission state
type MemberPermissionsResponse struct {
	ProjectID   string                          `json:"project_id"`
	UserID      string                          `json:"user_id"`
	Role        permissions.Role                `json:"role"`
	Permissions []permissions.FeaturePermission `json:"permissions"`
	Template    permissions.Template            `json:"template"`
}

// ReplacePermissionsRequest is the body of the replace-set mutation
type ReplacePermissionsRequest struct {
	Permissions []permissions.FeaturePermission `json:"permissions"`
}

// listPermissions handles GET /api/v1/permissions
func (s *Server) listPermissions(w http.ResponseWriter, r *http.Request) {
	var catalog []PermissionInfo
	for _, group := range permissions.Groups() {
		for _, p := range permissions.GroupPermissions(group) {
			catalog = append(catalog, PermissionInfo{Name: p, Group: group})
		}
	}
	httputil.WriteSuccess(w, catalog)
}

// listPermissionGroups handles GET /api/v1/permissions/groups
func (s *Server) listPermissionGroups(w http.ResponseWriter, r *http.Request) {
	var groups []GroupInfo
	for _, group := range permissions.Groups() {
		groups = append(groups, GroupInfo{
			Name:        group,
			Permissions: permissions.GroupPermissions(group),
		})
	}
	httputil.WriteSuccess(w, groups)
}

// listPermissionTemplates handles GET /api/v1/permissions/templates
func (s *Server) listPermissionTemplates(w http.ResponseWriter, r *http.Request) {
	var templates []TemplateResponse
	for _, info := range permissions.Templates() {
		templates = append(templates, TemplateResponse{
			Name:        info.Name,
			DisplayName: info.DisplayName,
			Description: info.Description,
			Permissions: permissions.TemplatePermissions(info.Name),
		})
	}
	httputil.WriteSuccess(w, templates)
}

// listMembers handles GET /api/v1/projects/{projectId}/members
func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]
	if _, err := uuid.Parse(projectID); err != nil {
		httputil.WriteBadRequest(w, "invalid project id")
		return
	}

	if !s.requireProjectAccess(w, r, projectID) {
		return
	}

	members, err := s.projectStore.ListMembers(r.Context(), projectID)
	if err != nil {
		s.logError(err, "failed to list members")
		httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
		return
	}

	httputil.WriteSuccess(w, members)
}

// getMemberPermissions handles GET /api/v1/projects/{projectId}/members/{userId}/permissions
func (s *Server) getMemberPermissions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID, userID := vars["projectId"], vars["userId"]
	if _, err := uuid.Parse(projectID); err != nil {
		httputil.WriteBadRequest(w, "invalid project id")
		return
	}
	if _, err := uuid.Parse(userID); err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}

	if !s.requireProjectAccess(w, r, projectID) {
		return
	}

	member, err := s.projectStore.GetMembership(r.Context(), projectID, userID)
	if err != nil {
		s.logError(err, "failed to get membership")
		httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
		return
	}
	if member == nil {
		httputil.WriteNotFoundError(w, "member not found")
		return
	}

	// The editor shows what the field app would receive, so the target's
	// global super-admin flag participates in the computation.
	targetSuper, err := s.isSuperAdminUser(r.Context(), userID)
	if err != nil {
		s.logError(err, "failed to check super-admin flag")
		httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
		return
	}

	var granted []permissions.FeaturePermission
	if !targetSuper && member.Role != permissions.RoleOwner {
		granted, err = s.projectStore.GetGrantedPermissions(r.Context(), projectID, userID)
		if err != nil {
			s.logError(err, "failed to get granted permissions")
			httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
			return
		}
	}

	effective := permissions.ComputeEffective(member.Role, targetSuper, granted, nil)

	httputil.WriteSuccess(w, MemberPermissionsResponse{
		ProjectID:   projectID,
		UserID:      userID,
		Role:        member.Role,
		Permissions: effective,
		Template:    permissions.DetectTemplate(effective),
	})
}

// replaceMemberPermissions handles PUT /api/v1/projects/{projectId}/members/{userId}/permissions
func (s *Server) replaceMemberPermissions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID, userID := vars["projectId"], vars["userId"]
	if _, err := uuid.Parse(projectID); err != nil {
		httputil.WriteBadRequest(w, "invalid project id")
		return
	}
	if _, err := uuid.Parse(userID); err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}

	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	// Only project admins and owners may edit grants
	caller, err := s.projectStore.GetMembership(r.Context(), projectID, principal.UserID)
	if err != nil {
		s.logError(err, "failed to get caller membership")
		httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
		return
	}
	if !principal.IsSuperAdmin() {
		if caller == nil || (caller.Role != permissions.RoleOwner && caller.Role != permissions.RoleAdmin) {
			httputil.WriteForbidden(w, "insufficient permissions to edit member grants")
			return
		}
	}

	target, err := s.projectStore.GetMembership(r.Context(), projectID, userID)
	if err != nil {
		s.logError(err, "failed to get target membership")
		httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
		return
	}
	if target == nil {
		httputil.WriteNotFoundError(w, "member not found")
		return
	}

	var req ReplacePermissionsRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := s.projectStore.ReplacePermissions(r.Context(), projectID, userID, req.Permissions, principal.UserID)
	if err != nil {
		s.logError(err, "failed to replace permissions")
		httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
		return
	}

	if s.recorder != nil {
		s.recorder.RecordFromRequest(r, &auth.AuditEvent{
			ActorID:   principal.UserID,
			ProjectID: projectID,
			Action:    auth.ActionPermissionReplace,
			TargetID:  userID,
			Status:    auth.StatusSuccess,
		})
	}

	httputil.WriteSuccess(w, result)
}

// requireProjectAccess verifies the caller belongs to the project (or is a
// super admin). Writes the failure response and returns false when access is
// denied.
func (s *Server) requireProjectAccess(w http.ResponseWriter, r *http.Request, projectID string) bool {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return false
	}
	if principal.IsSuperAdmin() {
		return true
	}

	member, err := s.projectStore.GetMembership(r.Context(), projectID, principal.UserID)
	if err != nil {
		s.logError(err, "failed to check project access")
		httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
		return false
	}
	if member == nil {
		httputil.WriteForbidden(w, "not a member of this project")
		return false
	}

	return true
}

// isSuperAdminUser consults the stored super-admin flag for a user. Servers
// wired without a user store treat everyone as a regular user.
func (s *Server) isSuperAdminUser(ctx context.Context, userID string) (bool, error) {
	if s.userStore == nil {
		return false, nil
	}
	return s.userStore.IsSuperAdmin(ctx, userID)
}

func (s *Server) logError(err error, msg string) {
	if s.logger != nil {
		s.logger.WithError(err).Error(msg)
	}
}
