package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
	"github.com/aussiebroadwan/warden/pkg/slogx"
)

// errUnchanged tells mutate that nothing needs saving.
var errUnchanged = errors.New("unchanged")

// UserCommands are the write use cases of the user aggregate.
type UserCommands struct {
	Store      store.Store
	Hasher     PasswordHasher
	Uniqueness UniquenessChecker // nil checks against Store
	Events     domain.EventDispatcher
}

func (c *UserCommands) unitOfWork() *store.UnitOfWork {
	return store.NewUnitOfWork(c.Store, c.Events)
}

func (c *UserCommands) uniqueness() UniquenessChecker {
	if c.Uniqueness != nil {
		return c.Uniqueness
	}
	return StoreUniqueness{Store: c.Store}
}

// Create adds an active user without credentials and returns its id.
func (c *UserCommands) Create(ctx context.Context, username, email string) (string, error) {
	var id string
	err := retryOnConflict(ctx, "create user", func(ctx context.Context) error {
		u, err := domain.NewUser(username, email)
		if err != nil {
			return err
		}
		if err := checkUser(ctx, c.uniqueness(), u.Username.String(), u.Email.String(), ""); err != nil {
			return err
		}

		uow := c.unitOfWork()
		uow.Users().Add(u)
		if _, err := uow.SaveChanges(ctx); err != nil {
			return err
		}
		id = u.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Info("user created", slog.String("user_id", id))
	return id, nil
}

// CreateWithPassword creates the user, then stores its password hash. The
// two steps are not atomic: once the user is committed a failing
// credential write returns a *PartialFailureError carrying the user id.
func (c *UserCommands) CreateWithPassword(ctx context.Context, username, email, password string) (string, error) {
	if err := domain.ValidatePassword(password); err != nil {
		return "", err
	}

	id, err := c.Create(ctx, username, email)
	if err != nil {
		return "", err
	}

	if err := c.setPassword(ctx, id, password); err != nil {
		slogx.FromContext(ctx).Error("user created without credentials",
			slog.String("user_id", id),
			slog.Any("error", err),
		)
		return id, &PartialFailureError{UserID: id, Step: "storing the password", Err: err}
	}
	return id, nil
}

// Update renames the user and changes its email.
func (c *UserCommands) Update(ctx context.Context, id, username, email string) error {
	return retryOnConflict(ctx, "update user", func(ctx context.Context) error {
		uow := c.unitOfWork()
		u, err := uow.Users().Get(ctx, id)
		if err != nil {
			return lookup(err, "user", id)
		}

		if err := u.UpdateUsername(username); err != nil {
			return err
		}
		if err := u.UpdateEmail(email); err != nil {
			return err
		}
		if err := checkUser(ctx, c.uniqueness(), u.Username.String(), u.Email.String(), u.ID); err != nil {
			return err
		}

		if err := uow.Users().Update(u); err != nil {
			return err
		}
		_, err = uow.SaveChanges(ctx)
		return err
	})
}

// UpdatePassword replaces the user's password.
func (c *UserCommands) UpdatePassword(ctx context.Context, id, password string) error {
	if err := domain.ValidatePassword(password); err != nil {
		return err
	}
	if err := c.setPassword(ctx, id, password); err != nil {
		return lookup(err, "user", id)
	}

	slogx.FromContext(ctx).Info("user password updated", slog.String("user_id", id))
	return nil
}

func (c *UserCommands) setPassword(ctx context.Context, userID, password string) error {
	hash, err := c.Hasher.Hash(password)
	if err != nil {
		return err
	}
	return c.Store.Credentials().Set(ctx, domain.Credential{
		UserID:       userID,
		PasswordHash: hash,
		UpdatedAt:    time.Now().UTC(),
	})
}

func (c *UserCommands) Activate(ctx context.Context, id string) error {
	return c.mutate(ctx, "activate user", id, func(u *domain.User) error {
		if u.IsActive {
			return errUnchanged
		}
		u.Activate()
		return nil
	})
}

// Deactivate disables sign in. Deactivating an active user raises
// domain.UserDeactivated once the change is committed.
func (c *UserCommands) Deactivate(ctx context.Context, id string) error {
	return c.mutate(ctx, "deactivate user", id, func(u *domain.User) error {
		if !u.IsActive {
			return errUnchanged
		}
		u.Deactivate()
		return nil
	})
}

// AssignRole gives the user a role. Assigning a role the user already holds
// is a no-op.
func (c *UserCommands) AssignRole(ctx context.Context, userID, roleID string) error {
	return retryOnConflict(ctx, "assign role", func(ctx context.Context) error {
		uow := c.unitOfWork()
		u, err := uow.Users().Get(ctx, userID)
		if err != nil {
			return lookup(err, "user", userID)
		}
		if u.HasRole(roleID) {
			return nil
		}

		role, err := uow.Roles().Get(ctx, roleID)
		if err != nil {
			return lookup(err, "role", roleID)
		}
		if !u.AssignRole(role) {
			return nil
		}

		if err := uow.Users().Update(u); err != nil {
			return err
		}
		_, err = uow.SaveChanges(ctx)
		return err
	})
}

// RemoveRole takes a role away from the user. Removing a role the user does
// not hold is a no-op.
func (c *UserCommands) RemoveRole(ctx context.Context, userID, roleID string) error {
	return c.mutate(ctx, "remove role", userID, func(u *domain.User) error {
		if !u.RemoveRole(roleID) {
			return errUnchanged
		}
		return nil
	})
}

// AssignRoles gives the user every role in roleIDs. All roles must exist;
// roles the user already holds are skipped.
func (c *UserCommands) AssignRoles(ctx context.Context, userID string, roleIDs []string) error {
	roleIDs = distinct(roleIDs)
	if len(roleIDs) == 0 {
		return nil
	}

	return retryOnConflict(ctx, "assign roles", func(ctx context.Context) error {
		uow := c.unitOfWork()
		u, err := uow.Users().Get(ctx, userID)
		if err != nil {
			return lookup(err, "user", userID)
		}

		roles, err := uow.Roles().List(ctx, store.Where(store.FieldID, store.In, roleIDs))
		if err != nil {
			return err
		}
		if missing := missingIDs(roleIDs, roles, func(r *domain.Role) string { return r.ID }); len(missing) > 0 {
			return notFound("role", missing...)
		}

		changed := false
		for _, r := range roles {
			if u.AssignRole(r) {
				changed = true
			}
		}
		if !changed {
			return nil
		}

		if err := uow.Users().Update(u); err != nil {
			return err
		}
		_, err = uow.SaveChanges(ctx)
		return err
	})
}

// mutate loads the user, applies fn and saves it, retrying once on
// conflict. fn returns errUnchanged to skip the write.
func (c *UserCommands) mutate(ctx context.Context, op, id string, fn func(u *domain.User) error) error {
	return retryOnConflict(ctx, op, func(ctx context.Context) error {
		uow := c.unitOfWork()
		u, err := uow.Users().Get(ctx, id)
		if err != nil {
			return lookup(err, "user", id)
		}
		if err := fn(u); err != nil {
			if errors.Is(err, errUnchanged) {
				return nil
			}
			return err
		}
		if err := uow.Users().Update(u); err != nil {
			return err
		}
		_, err = uow.SaveChanges(ctx)
		return err
	})
}

// distinct drops empty and repeated ids, keeping the first occurrence.
func distinct(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// missingIDs returns the ids with no matching row, in request order.
func missingIDs[T any](want []string, got []*T, id func(*T) string) []string {
	found := make(map[string]struct{}, len(got))
	for _, v := range got {
		found[id(v)] = struct{}{}
	}
	var missing []string
	for _, w := range want {
		if _, ok := found[w]; !ok {
			missing = append(missing, w)
		}
	}
	return missing
}
