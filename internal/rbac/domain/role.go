package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/warden/pkg/idx"
)

const (
	RoleNameMinLength    = 2
	RoleNameMaxLength    = 100
	DescriptionMaxLength = 500
)

// Role is a named set of permissions that can be assigned to users.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions []RolePermission
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewRole(name, description string) (*Role, error) {
	n, err := roleName(name)
	if err != nil {
		return nil, err
	}
	d, err := optionalText("description", description, DescriptionMaxLength)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Role{
		ID:          idx.New().String(),
		Name:        n,
		Description: d,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (r *Role) Rename(name string) error {
	n, err := roleName(name)
	if err != nil {
		return err
	}
	r.Name = n
	r.touch()
	return nil
}

func (r *Role) UpdateDescription(description string) error {
	d, err := optionalText("description", description, DescriptionMaxLength)
	if err != nil {
		return err
	}
	r.Description = d
	r.touch()
	return nil
}

func (r *Role) HasPermission(permissionID string) bool {
	for _, l := range r.Permissions {
		if l.PermissionID == permissionID {
			return true
		}
	}
	return false
}

// Grant links p to the role. Granting a held permission is a no-op and
// returns false.
func (r *Role) Grant(p *Permission) bool {
	if r.HasPermission(p.ID) {
		return false
	}
	r.Permissions = append(r.Permissions, NewRolePermission(r, p))
	r.touch()
	return true
}

// Revoke unlinks permissionID. Revoking an absent permission is a no-op and
// returns false.
func (r *Role) Revoke(permissionID string) bool {
	for i, l := range r.Permissions {
		if l.PermissionID == permissionID {
			r.Permissions = append(r.Permissions[:i], r.Permissions[i+1:]...)
			r.touch()
			return true
		}
	}
	return false
}

func (r *Role) PermissionIDs() []string {
	ids := make([]string, 0, len(r.Permissions))
	for _, l := range r.Permissions {
		ids = append(ids, l.PermissionID)
	}
	return ids
}

func (r *Role) touch() { r.UpdatedAt = time.Now().UTC() }

func roleName(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", invalid("name", "role name is required")
	}
	if n := utf8.RuneCountInString(v); n < RoleNameMinLength || n > RoleNameMaxLength {
		return "", invalid("name", "role name length must be 2-100 characters")
	}
	return v, nil
}
