package store

import (
	"context"
	"slices"
)

// Op is a comparison used in a Cond.
type Op int

const (
	Eq Op = iota
	NotEq
	// Contains is a case-insensitive substring match on text fields.
	Contains
	// In matches any value of a []string.
	In
)

// Field names a queryable attribute. Each driver maps the fields it
// supports per aggregate and rejects the rest.
type Field string

const (
	FieldID        Field = "id"
	FieldCreatedAt Field = "created_at"

	// users
	FieldUsername Field = "username"
	FieldEmail    Field = "email"
	FieldIsActive Field = "is_active"
	FieldRoleID   Field = "role_id" // users holding the role

	// roles and permissions
	FieldName         Field = "name"
	FieldCode         Field = "code"
	FieldPermissionID Field = "permission_id" // roles granting it, menus guarded by it

	// menus
	FieldTitle     Field = "title"
	FieldParentID  Field = "parent_id" // "" matches root entries
	FieldOrder     Field = "order"
	FieldIsVisible Field = "is_visible"

	// login attempts
	FieldUserID       Field = "user_id"
	FieldAttemptedAt  Field = "attempted_at"
	FieldIsSuccessful Field = "is_successful"
)

// Include asks for owned links to be loaded with the aggregate.
type Include string

const (
	IncludeRoles       Include = "roles"
	IncludePermissions Include = "permissions"
)

const DefaultPageSize = 10

type Cond struct {
	Field Field
	Op    Op
	Value any
}

type Sort struct {
	Field Field
	Desc  bool
}

// Spec describes a query: conditions joined with AND, ordering, paging,
// include hints and whether a UnitOfWork should track the results. Specs
// are values; every builder method returns a copy.
type Spec struct {
	Where    []Cond
	Order    []Sort
	Offset   int
	Limit    int // 0 means no limit
	Includes []Include
	Tracking bool
}

// All matches every row.
func All() Spec { return Spec{} }

// Where starts a Spec with one condition.
func Where(field Field, op Op, value any) Spec {
	return Spec{}.And(field, op, value)
}

func (s Spec) And(field Field, op Op, value any) Spec {
	s.Where = append(slices.Clip(s.Where), Cond{Field: field, Op: op, Value: value})
	return s
}

func (s Spec) OrderBy(field Field) Spec {
	s.Order = append(slices.Clip(s.Order), Sort{Field: field})
	return s
}

func (s Spec) OrderByDesc(field Field) Spec {
	s.Order = append(slices.Clip(s.Order), Sort{Field: field, Desc: true})
	return s
}

// Page selects a zero based page. A negative index becomes 0 and a
// non-positive size becomes DefaultPageSize.
func (s Spec) Page(index, size int) Spec {
	index = max(index, 0)
	if size <= 0 {
		size = DefaultPageSize
	}
	s.Offset = index * size
	s.Limit = size
	return s
}

func (s Spec) Include(includes ...Include) Spec {
	for _, inc := range includes {
		if !s.Has(inc) {
			s.Includes = append(slices.Clip(s.Includes), inc)
		}
	}
	return s
}

func (s Spec) Has(inc Include) bool { return slices.Contains(s.Includes, inc) }

// Tracked marks results for change tracking when read through a UnitOfWork.
func (s Spec) Tracked() Spec {
	s.Tracking = true
	return s
}

// Unpaged drops paging and ordering, for counting the full result set.
func (s Spec) Unpaged() Spec {
	s.Offset, s.Limit, s.Order = 0, 0, nil
	return s
}

// ListAs lists through r and projects each row with fn.
func ListAs[T, R any](ctx context.Context, r Reader[T], spec Spec, fn func(*T) R) ([]R, error) {
	rows, err := r.List(ctx, spec)
	if err != nil {
		return nil, err
	}
	out := make([]R, 0, len(rows))
	for _, row := range rows {
		out = append(out, fn(row))
	}
	return out, nil
}
