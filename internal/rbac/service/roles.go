package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
	"github.com/aussiebroadwan/warden/pkg/slogx"
)

type RoleCommands struct {
	Store      store.Store
	Uniqueness UniquenessChecker // nil checks against Store
	Events     domain.EventDispatcher
}

func (c *RoleCommands) uniqueness() UniquenessChecker {
	if c.Uniqueness != nil {
		return c.Uniqueness
	}
	return StoreUniqueness{Store: c.Store}
}

// Create adds a role without permissions and returns its id.
func (c *RoleCommands) Create(ctx context.Context, name, description string) (string, error) {
	var id string
	err := retryOnConflict(ctx, "create role", func(ctx context.Context) error {
		r, err := domain.NewRole(name, description)
		if err != nil {
			return err
		}
		if err := checkRoleName(ctx, c.uniqueness(), r.Name, ""); err != nil {
			return err
		}

		uow := store.NewUnitOfWork(c.Store, c.Events)
		uow.Roles().Add(r)
		if _, err := uow.SaveChanges(ctx); err != nil {
			return err
		}
		id = r.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Info("role created", slog.String("role_id", id), slog.String("name", name))
	return id, nil
}

func (c *RoleCommands) Update(ctx context.Context, id, name, description string) error {
	return retryOnConflict(ctx, "update role", func(ctx context.Context) error {
		uow := store.NewUnitOfWork(c.Store, c.Events)
		r, err := uow.Roles().Get(ctx, id)
		if err != nil {
			return lookup(err, "role", id)
		}

		if err := r.Rename(name); err != nil {
			return err
		}
		if err := r.UpdateDescription(description); err != nil {
			return err
		}
		if err := checkRoleName(ctx, c.uniqueness(), r.Name, r.ID); err != nil {
			return err
		}

		if err := uow.Roles().Update(r); err != nil {
			return err
		}
		_, err = uow.SaveChanges(ctx)
		return err
	})
}

// Delete removes a role. A role still held by a user fails with
// *domain.RoleInUseError; that check runs before the permission policy, so
// a role both in use and holding permissions reports being in use.
func (c *RoleCommands) Delete(ctx context.Context, id string) error {
	err := retryOnConflict(ctx, "delete role", func(ctx context.Context) error {
		uow := store.NewUnitOfWork(c.Store, c.Events)
		r, err := uow.Roles().Get(ctx, id)
		if err != nil {
			return lookup(err, "role", id)
		}

		// 1. No user may hold the role
		users, err := c.Store.Users().CountWithRole(ctx, r.ID)
		if err != nil {
			return err
		}
		if users > 0 {
			return &domain.RoleInUseError{RoleName: r.Name, Users: users}
		}

		// 2. The role must not hold permissions
		if err := domain.EnsureRoleCanBeDeleted(r); err != nil {
			return err
		}

		// 3. Remove
		if err := uow.Roles().Remove(r); err != nil {
			return err
		}
		_, err = uow.SaveChanges(ctx)
		return err
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("role deleted", slog.String("role_id", id))
	return nil
}

// RolePermissionCommands grant and revoke permissions. Every operation is
// idempotent: granting a held permission or revoking an absent one
// succeeds without writing.
type RolePermissionCommands struct {
	Store  store.Store
	Events domain.EventDispatcher
}

func (c *RolePermissionCommands) Grant(ctx context.Context, roleID, permissionID string) error {
	return c.mutate(ctx, "grant permission", roleID, func(ctx context.Context, uow *store.UnitOfWork, r *domain.Role) (bool, error) {
		if r.HasPermission(permissionID) {
			return false, nil
		}
		p, err := uow.Permissions().Get(ctx, permissionID)
		if err != nil {
			return false, lookup(err, "permission", permissionID)
		}
		if !domain.CanAssignPermission(r, p) {
			return false, nil
		}
		return r.Grant(p), nil
	})
}

func (c *RolePermissionCommands) Revoke(ctx context.Context, roleID, permissionID string) error {
	return c.mutate(ctx, "revoke permission", roleID, func(_ context.Context, _ *store.UnitOfWork, r *domain.Role) (bool, error) {
		if !domain.CanRemovePermission(r, permissionID) {
			return false, nil
		}
		return r.Revoke(permissionID), nil
	})
}

// GrantMany grants every permission in permissionIDs. All permissions must
// exist.
func (c *RolePermissionCommands) GrantMany(ctx context.Context, roleID string, permissionIDs []string) error {
	permissionIDs = distinct(permissionIDs)
	if len(permissionIDs) == 0 {
		return nil
	}

	return c.mutate(ctx, "grant permissions", roleID, func(ctx context.Context, uow *store.UnitOfWork, r *domain.Role) (bool, error) {
		perms, err := loadPermissions(ctx, uow, permissionIDs)
		if err != nil {
			return false, err
		}
		changed := false
		for _, p := range perms {
			if domain.CanAssignPermission(r, p) && r.Grant(p) {
				changed = true
			}
		}
		return changed, nil
	})
}

// RevokeMany revokes every permission in permissionIDs the role holds.
func (c *RolePermissionCommands) RevokeMany(ctx context.Context, roleID string, permissionIDs []string) error {
	permissionIDs = distinct(permissionIDs)
	if len(permissionIDs) == 0 {
		return nil
	}

	return c.mutate(ctx, "revoke permissions", roleID, func(_ context.Context, _ *store.UnitOfWork, r *domain.Role) (bool, error) {
		changed := false
		for _, id := range permissionIDs {
			if domain.CanRemovePermission(r, id) && r.Revoke(id) {
				changed = true
			}
		}
		return changed, nil
	})
}

// Replace makes permissionIDs the role's exact permission set. Links that
// stay keep their identity.
func (c *RolePermissionCommands) Replace(ctx context.Context, roleID string, permissionIDs []string) error {
	permissionIDs = distinct(permissionIDs)

	return c.mutate(ctx, "replace permissions", roleID, func(ctx context.Context, uow *store.UnitOfWork, r *domain.Role) (bool, error) {
		perms, err := loadPermissions(ctx, uow, permissionIDs)
		if err != nil {
			return false, err
		}

		keep := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			keep[p.ID] = struct{}{}
		}

		changed := false
		for _, id := range r.PermissionIDs() {
			if _, ok := keep[id]; !ok && r.Revoke(id) {
				changed = true
			}
		}
		for _, p := range perms {
			if r.Grant(p) {
				changed = true
			}
		}
		return changed, nil
	})
}

// mutate loads the role tracked, applies fn and saves when fn reports a
// change, retrying once on conflict.
func (c *RolePermissionCommands) mutate(
	ctx context.Context,
	op, roleID string,
	fn func(ctx context.Context, uow *store.UnitOfWork, r *domain.Role) (bool, error),
) error {
	return retryOnConflict(ctx, op, func(ctx context.Context) error {
		uow := store.NewUnitOfWork(c.Store, c.Events)
		r, err := uow.Roles().Get(ctx, roleID)
		if err != nil {
			return lookup(err, "role", roleID)
		}

		changed, err := fn(ctx, uow, r)
		if err != nil || !changed {
			return err
		}

		if err := uow.Roles().Update(r); err != nil {
			return err
		}
		_, err = uow.SaveChanges(ctx)
		return err
	})
}

// loadPermissions returns the permissions with ids, failing with a
// NotFoundError that lists every unknown id.
func loadPermissions(ctx context.Context, uow *store.UnitOfWork, ids []string) ([]*domain.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	perms, err := uow.Permissions().List(ctx, store.Where(store.FieldID, store.In, ids))
	if err != nil {
		return nil, err
	}
	if missing := missingIDs(ids, perms, func(p *domain.Permission) string { return p.ID }); len(missing) > 0 {
		return nil, notFound("permission", missing...)
	}
	return perms, nil
}

type PermissionCommands struct {
	Store      store.Store
	Uniqueness UniquenessChecker // nil checks against Store
	Events     domain.EventDispatcher
}

func (c *PermissionCommands) uniqueness() UniquenessChecker {
	if c.Uniqueness != nil {
		return c.Uniqueness
	}
	return StoreUniqueness{Store: c.Store}
}

// Create adds a permission and returns its id.
func (c *PermissionCommands) Create(ctx context.Context, code, description string) (string, error) {
	var id string
	err := retryOnConflict(ctx, "create permission", func(ctx context.Context) error {
		p, err := domain.NewPermission(code, description)
		if err != nil {
			return err
		}
		if err := checkPermissionCode(ctx, c.uniqueness(), p.Code, ""); err != nil {
			return err
		}

		uow := store.NewUnitOfWork(c.Store, c.Events)
		uow.Permissions().Add(p)
		if _, err := uow.SaveChanges(ctx); err != nil {
			return err
		}
		id = p.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Info("permission created", slog.String("permission_id", id), slog.String("code", code))
	return id, nil
}

func (c *PermissionCommands) Update(ctx context.Context, id, code, description string) error {
	return retryOnConflict(ctx, "update permission", func(ctx context.Context) error {
		uow := store.NewUnitOfWork(c.Store, c.Events)
		p, err := uow.Permissions().Get(ctx, id)
		if err != nil {
			return lookup(err, "permission", id)
		}

		if err := p.Rename(code); err != nil {
			return err
		}
		if err := p.UpdateDescription(description); err != nil {
			return err
		}
		if err := checkPermissionCode(ctx, c.uniqueness(), p.Code, p.ID); err != nil {
			return err
		}

		if err := uow.Permissions().Update(p); err != nil {
			return err
		}
		_, err = uow.SaveChanges(ctx)
		return err
	})
}
