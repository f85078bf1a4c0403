package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
	"github.com/aussiebroadwan/warden/pkg/slogx"
)

// MenuCommands edit the console navigation tree.
type MenuCommands struct {
	Store  store.Store
	Events domain.EventDispatcher
}

// Create adds a menu under parentID, or at the root when parentID is empty.
func (c *MenuCommands) Create(ctx context.Context, in domain.MenuInput, parentID string) (string, error) {
	var id string
	err := retryOnConflict(ctx, "create menu", func(ctx context.Context) error {
		m, err := domain.NewMenu(in)
		if err != nil {
			return err
		}
		if err := c.ensurePermission(ctx, m.PermissionID); err != nil {
			return err
		}

		uow := store.NewUnitOfWork(c.Store, c.Events)
		if err := c.attach(ctx, uow, m, parentID); err != nil {
			return err
		}

		uow.Menus().Add(m)
		if _, err := uow.SaveChanges(ctx); err != nil {
			return err
		}
		id = m.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Info("menu created", slog.String("menu_id", id))
	return id, nil
}

// Update replaces the editable fields of a menu. The parent is changed with
// SetParent.
func (c *MenuCommands) Update(ctx context.Context, id string, in domain.MenuInput) error {
	if err := c.ensurePermission(ctx, in.PermissionID); err != nil {
		return err
	}
	return c.mutate(ctx, "update menu", id, func(_ context.Context, _ *store.UnitOfWork, m *domain.Menu) error {
		return m.Update(in)
	})
}

// Delete removes a menu without children.
func (c *MenuCommands) Delete(ctx context.Context, id string) error {
	return retryOnConflict(ctx, "delete menu", func(ctx context.Context) error {
		uow := store.NewUnitOfWork(c.Store, c.Events)
		m, err := uow.Menus().Get(ctx, id)
		if err != nil {
			return lookup(err, "menu", id)
		}

		children, err := c.Store.Menus().Count(ctx, store.Where(store.FieldParentID, store.Eq, m.ID))
		if err != nil {
			return err
		}
		if children > 0 {
			return &domain.MenuHasChildrenError{Title: m.Title, Children: children}
		}

		if err := uow.Menus().Remove(m); err != nil {
			return err
		}
		_, err = uow.SaveChanges(ctx)
		return err
	})
}

func (c *MenuCommands) SetVisibility(ctx context.Context, id string, visible bool) error {
	return c.mutate(ctx, "set menu visibility", id, func(_ context.Context, _ *store.UnitOfWork, m *domain.Menu) error {
		m.SetVisibility(visible)
		return nil
	})
}

func (c *MenuCommands) SetOrder(ctx context.Context, id string, order int) error {
	return c.mutate(ctx, "set menu order", id, func(_ context.Context, _ *store.UnitOfWork, m *domain.Menu) error {
		return m.SetOrder(order)
	})
}

// SetParent moves a menu under parentID, or to the root when parentID is
// empty. Moving a menu under itself or one of its descendants fails with a
// domain rule violation.
func (c *MenuCommands) SetParent(ctx context.Context, id, parentID string) error {
	return c.mutate(ctx, "set menu parent", id, func(ctx context.Context, uow *store.UnitOfWork, m *domain.Menu) error {
		return c.attach(ctx, uow, m, parentID)
	})
}

// attach resolves parentID and moves m under it.
func (c *MenuCommands) attach(ctx context.Context, uow *store.UnitOfWork, m *domain.Menu, parentID string) error {
	if parentID == "" {
		return m.SetParent(nil, nil)
	}
	if parentID == m.ID {
		return domain.ErrMenuSelfParent
	}

	parent, err := uow.Menus().Get(ctx, parentID)
	if err != nil {
		return lookup(err, "parent menu", parentID)
	}
	ancestors, err := c.Store.Menus().Ancestors(ctx, parent.ID)
	if err != nil {
		return lookup(err, "parent menu", parentID)
	}
	return m.SetParent(parent, ancestors)
}

func (c *MenuCommands) ensurePermission(ctx context.Context, permissionID string) error {
	if permissionID == "" {
		return nil
	}
	ok, err := c.Store.Permissions().Any(ctx, store.Where(store.FieldID, store.Eq, permissionID))
	if err != nil {
		return err
	}
	if !ok {
		return notFound("permission", permissionID)
	}
	return nil
}

func (c *MenuCommands) mutate(
	ctx context.Context,
	op, id string,
	fn func(ctx context.Context, uow *store.UnitOfWork, m *domain.Menu) error,
) error {
	return retryOnConflict(ctx, op, func(ctx context.Context) error {
		uow := store.NewUnitOfWork(c.Store, c.Events)
		m, err := uow.Menus().Get(ctx, id)
		if err != nil {
			return lookup(err, "menu", id)
		}
		if err := fn(ctx, uow, m); err != nil {
			return err
		}
		if err := uow.Menus().Update(m); err != nil {
			return err
		}
		_, err = uow.SaveChanges(ctx)
		return err
	})
}
