package domain_test

import (
	"errors"
	"testing"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/stretchr/testify/require"
)

func TestEnsureRoleCanBeDeleted(t *testing.T) {
	t.Run("NoPermissions", func(t *testing.T) {
		r := newRole(t, "Empty")
		require.True(t, domain.CanDeleteRole(r))
		require.NoError(t, domain.EnsureRoleCanBeDeleted(r))
	})

	t.Run("WithPermissions", func(t *testing.T) {
		r := newRole(t, "Admin")
		r.Grant(newPermission(t, "users.read"))
		r.Grant(newPermission(t, "users.write"))

		require.False(t, domain.CanDeleteRole(r))
		err := domain.EnsureRoleCanBeDeleted(r)
		require.ErrorIs(t, err, domain.ErrRuleViolation)

		var perr *domain.RoleHasPermissionsError
		require.True(t, errors.As(err, &perr))
		require.Equal(t, "Admin", perr.RoleName)
		require.Equal(t, 2, perr.Count)
		require.Equal(t,
			"role 'Admin' cannot be deleted because it has 2 permission(s) assigned; remove all permissions before deleting the role",
			err.Error())
	})

	t.Run("AfterRevokingAll", func(t *testing.T) {
		r := newRole(t, "Admin")
		p := newPermission(t, "users.read")
		r.Grant(p)
		r.Revoke(p.ID)
		require.NoError(t, domain.EnsureRoleCanBeDeleted(r))
	})
}

func TestCanAssignAndRemovePermission(t *testing.T) {
	r := newRole(t, "Admin")
	p := newPermission(t, "users.read")

	require.True(t, domain.CanAssignPermission(r, p))
	require.False(t, domain.CanRemovePermission(r, p.ID))

	r.Grant(p)
	require.False(t, domain.CanAssignPermission(r, p))
	require.True(t, domain.CanRemovePermission(r, p.ID))
}

func TestRuleErrorsMatchRuleViolation(t *testing.T) {
	for _, err := range []error{
		&domain.RoleInUseError{RoleName: "Admin", Users: 1},
		&domain.MenuHasChildrenError{Title: "Settings", Children: 2},
		domain.ErrMenuSelfParent,
		domain.ErrMenuCycle,
	} {
		require.ErrorIs(t, err, domain.ErrRuleViolation)
		require.NotErrorIs(t, err, domain.ErrValidation)
	}
}
