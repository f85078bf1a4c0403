package domain

import "github.com/aussiebroadwan/warden/pkg/idx"

// UserRole links a user to a role. Links hold ids only; navigation goes
// through the repositories.
type UserRole struct {
	ID     string
	UserID string
	RoleID string
}

// NewUserRole is the only way to create a UserRole.
func NewUserRole(u *User, r *Role) UserRole {
	return UserRole{ID: idx.New().String(), UserID: u.ID, RoleID: r.ID}
}

// RolePermission links a role to a permission.
type RolePermission struct {
	ID           string
	RoleID       string
	PermissionID string
}

// NewRolePermission is the only way to create a RolePermission.
func NewRolePermission(r *Role, p *Permission) RolePermission {
	return RolePermission{ID: idx.New().String(), RoleID: r.ID, PermissionID: p.ID}
}
