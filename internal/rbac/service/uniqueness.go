package service

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/warden/internal/rbac/store"
)

// UniquenessChecker answers whether a value is already used by another
// aggregate. An empty exclude id checks against every row. Values are
// compared case-insensitively.
type UniquenessChecker interface {
	IsUsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error)
	IsEmailTaken(ctx context.Context, email, excludeUserID string) (bool, error)
	IsRoleNameTaken(ctx context.Context, name, excludeRoleID string) (bool, error)
	IsPermissionCodeTaken(ctx context.Context, code, excludePermissionID string) (bool, error)
}

// StoreUniqueness checks uniqueness against the persisted state.
type StoreUniqueness struct {
	Store store.Store
}

func (u StoreUniqueness) IsUsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error) {
	return u.Store.Users().Any(ctx, excluding(store.Where(store.FieldUsername, store.Eq, username), excludeUserID))
}

func (u StoreUniqueness) IsEmailTaken(ctx context.Context, email, excludeUserID string) (bool, error) {
	return u.Store.Users().Any(ctx, excluding(store.Where(store.FieldEmail, store.Eq, email), excludeUserID))
}

func (u StoreUniqueness) IsRoleNameTaken(ctx context.Context, name, excludeRoleID string) (bool, error) {
	return u.Store.Roles().Any(ctx, excluding(store.Where(store.FieldName, store.Eq, name), excludeRoleID))
}

func (u StoreUniqueness) IsPermissionCodeTaken(ctx context.Context, code, excludePermissionID string) (bool, error) {
	return u.Store.Permissions().Any(ctx, excluding(store.Where(store.FieldCode, store.Eq, code), excludePermissionID))
}

func excluding(spec store.Spec, id string) store.Spec {
	if id == "" {
		return spec
	}
	return spec.And(store.FieldID, store.NotEq, id)
}

// checkUser fails with ErrUsernameTaken or ErrEmailTaken.
func checkUser(ctx context.Context, u UniquenessChecker, username, email, excludeUserID string) error {
	taken, err := u.IsUsernameTaken(ctx, username, excludeUserID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %q", ErrUsernameTaken, username)
	}

	taken, err = u.IsEmailTaken(ctx, email, excludeUserID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %q", ErrEmailTaken, email)
	}
	return nil
}

func checkRoleName(ctx context.Context, u UniquenessChecker, name, excludeRoleID string) error {
	taken, err := u.IsRoleNameTaken(ctx, name, excludeRoleID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %q", ErrRoleNameTaken, name)
	}
	return nil
}

func checkPermissionCode(ctx context.Context, u UniquenessChecker, code, excludePermissionID string) error {
	taken, err := u.IsPermissionCodeTaken(ctx, code, excludePermissionID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %q", ErrPermissionCodeTaken, code)
	}
	return nil
}
