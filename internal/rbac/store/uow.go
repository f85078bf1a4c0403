package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/pkg/slogx"
)

// ErrUnitOfWorkFailed is returned by a UnitOfWork whose SaveChanges failed.
// In-memory state no longer matches the database; start a new one.
var ErrUnitOfWorkFailed = errors.New("store: unit of work failed, start a new one")

type change struct {
	name string
	run  func(ctx context.Context, tx Tx) (int64, error)
}

type eventSource interface {
	PullEvents() []domain.Event
}

// UnitOfWork tracks aggregates loaded for mutation and writes every pending
// change in one transaction on SaveChanges. It is meant for a single
// operation and is not safe for concurrent use.
type UnitOfWork struct {
	store      Store
	dispatcher domain.EventDispatcher

	users       *Set[domain.User]
	roles       *Set[domain.Role]
	permissions *Set[domain.Permission]
	menus       *Set[domain.Menu]
	attempts    *Set[domain.LoginAttempt]

	pending []change
	touched []any
	failed  bool
}

// NewUnitOfWork starts a unit of work over s. dispatcher may be nil.
func NewUnitOfWork(s Store, dispatcher domain.EventDispatcher) *UnitOfWork {
	u := &UnitOfWork{store: s, dispatcher: dispatcher}

	u.users = newSet(u, "user",
		func(s Store) Repository[domain.User] { return s.Users() },
		func(v *domain.User) string { return v.ID },
		IncludeRoles)
	u.roles = newSet(u, "role",
		func(s Store) Repository[domain.Role] { return s.Roles() },
		func(v *domain.Role) string { return v.ID },
		IncludePermissions)
	u.permissions = newSet(u, "permission",
		func(s Store) Repository[domain.Permission] { return s.Permissions() },
		func(v *domain.Permission) string { return v.ID })
	u.menus = newSet(u, "menu",
		func(s Store) Repository[domain.Menu] { return s.Menus() },
		func(v *domain.Menu) string { return v.ID })
	u.attempts = newSet(u, "login_attempt",
		func(s Store) Repository[domain.LoginAttempt] { return s.LoginAttempts() },
		func(v *domain.LoginAttempt) string { return v.ID })
	u.attempts.appendOnly = true

	return u
}

func (u *UnitOfWork) Users() *Set[domain.User]                 { return u.users }
func (u *UnitOfWork) Roles() *Set[domain.Role]                 { return u.roles }
func (u *UnitOfWork) Permissions() *Set[domain.Permission]     { return u.permissions }
func (u *UnitOfWork) Menus() *Set[domain.Menu]                 { return u.menus }
func (u *UnitOfWork) LoginAttempts() *Set[domain.LoginAttempt] { return u.attempts }

// HasChanges reports whether SaveChanges has anything to write.
func (u *UnitOfWork) HasChanges() bool { return len(u.pending) > 0 }

// SaveChanges writes all pending changes in one transaction and returns the
// number of affected rows. Events raised by the touched aggregates are
// dispatched after the commit; dispatch failures are logged, the commit
// stands.
func (u *UnitOfWork) SaveChanges(ctx context.Context) (int, error) {
	if u.failed {
		return 0, ErrUnitOfWorkFailed
	}
	if len(u.pending) == 0 {
		return 0, nil
	}

	var affected int64
	err := u.store.WithTx(ctx, func(tx Tx) error {
		for _, c := range u.pending {
			n, err := c.run(ctx, tx)
			if err != nil {
				return fmt.Errorf("%s: %w", c.name, err)
			}
			affected += n
		}
		return nil
	})
	if err != nil {
		u.failed = true
		return 0, err
	}

	var events []domain.Event
	for _, v := range u.touched {
		if src, ok := v.(eventSource); ok {
			events = append(events, src.PullEvents()...)
		}
	}
	u.pending = nil
	u.touched = nil
	for _, s := range []interface{ settle() }{u.users, u.roles, u.permissions, u.menus, u.attempts} {
		s.settle()
	}

	if len(events) > 0 && u.dispatcher != nil {
		if err := u.dispatcher.Dispatch(ctx, events); err != nil {
			slogx.FromContext(ctx).Error("domain event dispatch failed",
				slog.Int("events", len(events)),
				slog.Any("error", err),
			)
		}
	}

	return int(affected), nil
}

func (u *UnitOfWork) enqueue(name string, v any, run func(ctx context.Context, tx Tx) (int64, error)) {
	u.pending = append(u.pending, change{name: name, run: run})
	u.touched = append(u.touched, v)
}

type entryState int

const (
	stateLoaded entryState = iota
	stateAdded
	stateModified
	stateRemoved
)

// Set is the tracked view of one aggregate type inside a UnitOfWork. Loads
// go through an identity map, so loading the same id twice yields the same
// pointer.
type Set[T any] struct {
	uow        *UnitOfWork
	name       string
	repo       func(Store) Repository[T]
	id         func(*T) string
	includes   []Include
	appendOnly bool

	tracked map[string]*T
	state   map[string]entryState
}

func newSet[T any](u *UnitOfWork, name string, repo func(Store) Repository[T], id func(*T) string, includes ...Include) *Set[T] {
	return &Set[T]{
		uow:      u,
		name:     name,
		repo:     repo,
		id:       id,
		includes: includes,
		tracked:  make(map[string]*T),
		state:    make(map[string]entryState),
	}
}

// Get returns the tracked instance with id, loading it when needed.
func (s *Set[T]) Get(ctx context.Context, id string) (*T, error) {
	if v, ok := s.tracked[id]; ok {
		return v, nil
	}
	v, err := s.repo(s.uow.store).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.attach(v), nil
}

// First returns the first match, tracked.
func (s *Set[T]) First(ctx context.Context, spec Spec) (*T, error) {
	v, err := s.repo(s.uow.store).First(ctx, spec.Include(s.includes...))
	if err != nil {
		return nil, err
	}
	return s.attach(v), nil
}

// List returns the matches. They are tracked only when spec.Tracking is
// set; untracked results cannot be passed to Update or Remove.
func (s *Set[T]) List(ctx context.Context, spec Spec) ([]*T, error) {
	if !spec.Tracking {
		return s.repo(s.uow.store).List(ctx, spec)
	}
	rows, err := s.repo(s.uow.store).List(ctx, spec.Include(s.includes...))
	if err != nil {
		return nil, err
	}
	for i, v := range rows {
		rows[i] = s.attach(v)
	}
	return rows, nil
}

func (s *Set[T]) attach(v *T) *T {
	id := s.id(v)
	if cur, ok := s.tracked[id]; ok {
		return cur
	}
	s.tracked[id] = v
	s.state[id] = stateLoaded
	return v
}

// Add tracks a new instance and schedules its insert.
func (s *Set[T]) Add(v *T) {
	id := s.id(v)
	s.tracked[id] = v
	s.state[id] = stateAdded
	s.uow.enqueue("add "+s.name, v, func(ctx context.Context, tx Tx) (int64, error) {
		return s.repo(tx).Add(ctx, v)
	})
}

// Update schedules a write of v's current state. v must be tracked.
func (s *Set[T]) Update(v *T) error {
	if s.appendOnly {
		return ErrAppendOnly
	}
	id := s.id(v)
	if s.tracked[id] != v {
		return ErrNotTracked
	}
	// The insert or earlier update writes the state as of SaveChanges.
	if st := s.state[id]; st == stateAdded || st == stateModified {
		return nil
	}
	s.state[id] = stateModified
	s.uow.enqueue("update "+s.name, v, func(ctx context.Context, tx Tx) (int64, error) {
		return s.repo(tx).Update(ctx, v)
	})
	return nil
}

// Remove schedules the delete of v. v must be tracked.
func (s *Set[T]) Remove(v *T) error {
	if s.appendOnly {
		return ErrAppendOnly
	}
	id := s.id(v)
	if s.tracked[id] != v {
		return ErrNotTracked
	}
	delete(s.tracked, id)
	s.state[id] = stateRemoved
	s.uow.enqueue("remove "+s.name, v, func(ctx context.Context, tx Tx) (int64, error) {
		return s.repo(tx).Remove(ctx, v)
	})
	return nil
}

// settle marks every tracked instance as loaded after a commit.
func (s *Set[T]) settle() {
	for id, st := range s.state {
		if st == stateRemoved {
			delete(s.state, id)
			continue
		}
		s.state[id] = stateLoaded
	}
}
