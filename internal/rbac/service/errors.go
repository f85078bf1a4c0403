package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/warden/internal/rbac/store"
)

var (
	ErrNotFound = errors.New("not_found")

	// ErrInvalidCredentials covers unknown users, inactive users and wrong
	// passwords alike.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	ErrConcurrentModification = errors.New("the operation could not be completed due to concurrent modifications; refresh and try again")

	ErrUsernameTaken       = errors.New("username is already taken")
	ErrEmailTaken          = errors.New("email is already taken")
	ErrRoleNameTaken       = errors.New("role name is already taken")
	ErrPermissionCodeTaken = errors.New("permission code is already taken")

	ErrPartialFailure = errors.New("partial_failure")
)

// NotFoundError names the missing entity. It matches both ErrNotFound and
// store.ErrNotFound.
type NotFoundError struct {
	Entity string
	IDs    []string
}

func notFound(entity string, ids ...string) error {
	return &NotFoundError{Entity: entity, IDs: ids}
}

func (e *NotFoundError) Error() string {
	if len(e.IDs) == 0 {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Entity, strings.Join(e.IDs, ", "))
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) Unwrap() error { return store.ErrNotFound }

// PartialFailureError reports a user that was committed while a later step
// of the same request failed. The user exists but needs manual remediation.
type PartialFailureError struct {
	UserID string
	Step   string
	Err    error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("user %s was created but %s failed: %v", e.UserID, e.Step, e.Err)
}

func (e *PartialFailureError) Is(target error) bool { return target == ErrPartialFailure }

func (e *PartialFailureError) Unwrap() error { return e.Err }

// lookup turns store.ErrNotFound into a NotFoundError for entity.
func lookup(err error, entity, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(entity, id)
	}
	return err
}
