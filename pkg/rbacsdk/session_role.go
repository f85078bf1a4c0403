package rbacsdk

import (
	"context"
	"net/http"
	"net/url"
)

// ============================================================================
// Roles
// ============================================================================

// ListRoles returns every role with its permission and user counts.
func (s *Session) ListRoles(ctx context.Context) ([]RoleSummary, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/roles", nil, RoleAdmin, RoleManager)
	if err != nil {
		return nil, err
	}

	var list ListRolesResponse
	if err := decodeJSON(resp, &list, http.StatusOK); err != nil {
		return nil, err
	}

	return list.Roles, nil
}

// CreateRole creates a role and returns its id.
func (s *Session) CreateRole(ctx context.Context, req RoleRequest) (string, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/roles", req, RoleAdmin)
	if err != nil {
		return "", err
	}

	var created CreatedResponse
	if err := decodeJSON(resp, &created, http.StatusCreated); err != nil {
		return "", err
	}

	return created.ID, nil
}

// GetRole returns a role with its assigned and available permissions.
func (s *Session) GetRole(ctx context.Context, roleID string) (*RoleResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/roles/"+url.PathEscape(roleID), nil, RoleAdmin, RoleManager)
	if err != nil {
		return nil, err
	}

	var role RoleResponse
	if err := decodeJSON(resp, &role, http.StatusOK); err != nil {
		return nil, err
	}

	return &role, nil
}

// UpdateRole renames a role or changes its description.
func (s *Session) UpdateRole(ctx context.Context, roleID string, req RoleRequest) error {
	return s.noContent(ctx, http.MethodPut, "/v1/roles/"+url.PathEscape(roleID), req)
}

// DeleteRole deletes a role that no user holds.
func (s *Session) DeleteRole(ctx context.Context, roleID string) error {
	return s.noContent(ctx, http.MethodDelete, "/v1/roles/"+url.PathEscape(roleID), nil)
}

// ReplaceRolePermissions sets the role's permissions to exactly permissionIDs.
func (s *Session) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs ...string) error {
	if permissionIDs == nil {
		permissionIDs = []string{}
	}
	return s.noContent(ctx, http.MethodPut, "/v1/roles/"+url.PathEscape(roleID)+"/permissions",
		ReplacePermissionsRequest{PermissionIDs: permissionIDs})
}

// GrantPermission grants one permission to a role.
func (s *Session) GrantPermission(ctx context.Context, roleID, permissionID string) error {
	return s.noContent(ctx, http.MethodPost, rolePermissionPath(roleID, permissionID), nil)
}

// RevokePermission revokes one permission from a role.
func (s *Session) RevokePermission(ctx context.Context, roleID, permissionID string) error {
	return s.noContent(ctx, http.MethodDelete, rolePermissionPath(roleID, permissionID), nil)
}

func rolePermissionPath(roleID, permissionID string) string {
	return "/v1/roles/" + url.PathEscape(roleID) + "/permissions/" + url.PathEscape(permissionID)
}

// ============================================================================
// Permissions
// ============================================================================

// ListPermissions returns every permission ordered by code.
func (s *Session) ListPermissions(ctx context.Context) ([]PermissionInfo, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/permissions", nil, RoleAdmin, RoleManager)
	if err != nil {
		return nil, err
	}

	var list ListPermissionsResponse
	if err := decodeJSON(resp, &list, http.StatusOK); err != nil {
		return nil, err
	}

	return list.Permissions, nil
}

// CreatePermission creates a permission and returns its id.
func (s *Session) CreatePermission(ctx context.Context, req PermissionRequest) (string, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/permissions", req, RoleAdmin)
	if err != nil {
		return "", err
	}

	var created CreatedResponse
	if err := decodeJSON(resp, &created, http.StatusCreated); err != nil {
		return "", err
	}

	return created.ID, nil
}

// UpdatePermission changes a permission's code or description.
func (s *Session) UpdatePermission(ctx context.Context, permissionID string, req PermissionRequest) error {
	return s.noContent(ctx, http.MethodPut, "/v1/permissions/"+url.PathEscape(permissionID), req)
}
