package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrRuleViolation matches every error raised when an operation would
	// break a business rule (role in use, self parenting, ...).
	ErrRuleViolation = errors.New("domain rule violated")
)

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// RuleError is a business rule violation with a fixed message.
type RuleError struct {
	Message string
}

func (e *RuleError) Error() string { return e.Message }

func (e *RuleError) Is(target error) bool { return target == ErrRuleViolation }

var (
	ErrMenuSelfParent = &RuleError{Message: "a menu cannot be its own parent"}
	ErrMenuCycle      = &RuleError{Message: "a menu cannot be moved under one of its own descendants"}
)

// RoleHasPermissionsError is returned when deleting a role that still holds
// permissions.
type RoleHasPermissionsError struct {
	RoleName string
	Count    int
}

func (e *RoleHasPermissionsError) Error() string {
	return fmt.Sprintf(
		"role '%s' cannot be deleted because it has %d permission(s) assigned; remove all permissions before deleting the role",
		e.RoleName, e.Count,
	)
}

func (e *RoleHasPermissionsError) Is(target error) bool { return target == ErrRuleViolation }

// RoleInUseError is returned when deleting a role that is still assigned to
// users.
type RoleInUseError struct {
	RoleName string
	Users    int
}

func (e *RoleInUseError) Error() string {
	return fmt.Sprintf(
		"role '%s' cannot be deleted because it is assigned to %d user(s); remove it from all users first",
		e.RoleName, e.Users,
	)
}

func (e *RoleInUseError) Is(target error) bool { return target == ErrRuleViolation }

// MenuHasChildrenError is returned when deleting a menu that still has
// child menus.
type MenuHasChildrenError struct {
	Title    string
	Children int
}

func (e *MenuHasChildrenError) Error() string {
	return fmt.Sprintf(
		"menu '%s' cannot be deleted because it has %d child menu(s); remove or reassign them first",
		e.Title, e.Children,
	)
}

func (e *MenuHasChildrenError) Is(target error) bool { return target == ErrRuleViolation }
