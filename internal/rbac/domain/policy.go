package domain

// Role and permission rules that span more than one aggregate.

// CanDeleteRole reports whether role holds no permissions.
func CanDeleteRole(role *Role) bool {
	return len(role.Permissions) == 0
}

// EnsureRoleCanBeDeleted returns a *RoleHasPermissionsError when role still
// holds permissions. Callers check that no user holds the role first.
func EnsureRoleCanBeDeleted(role *Role) error {
	if CanDeleteRole(role) {
		return nil
	}
	return &RoleHasPermissionsError{RoleName: role.Name, Count: len(role.Permissions)}
}

// CanAssignPermission reports whether granting p would add a link.
func CanAssignPermission(role *Role, p *Permission) bool {
	return !role.HasPermission(p.ID)
}

// CanRemovePermission reports whether revoking permissionID would remove a
// link.
func CanRemovePermission(role *Role, permissionID string) bool {
	return role.HasPermission(permissionID)
}
