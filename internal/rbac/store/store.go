package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned when an update or delete matched no row at the
	// expected version, or a write broke a foreign key because another writer
	// got there first.
	ErrConflict = errors.New("store: concurrent modification")

	// ErrNotTracked is returned by a UnitOfWork when asked to update or remove
	// an instance it did not load or add.
	ErrNotTracked = errors.New("store: entity is not tracked")

	ErrAppendOnly = errors.New("store: records are append-only")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose one repository per aggregate. Repositories hand out copies; mutate
// aggregates through a UnitOfWork.
type Store interface {
	Users() Users
	Roles() Roles
	Permissions() Permissions
	Menus() Menus
	LoginAttempts() LoginAttempts
	Credentials() Credentials

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Reader is the read side of a repository. Every method takes a Spec; the
// zero Spec matches everything.
type Reader[T any] interface {
	// Get returns the whole aggregate with id, owned links included, or
	// ErrNotFound.
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, spec Spec) ([]*T, error)
	// First returns the first match in spec order or ErrNotFound.
	First(ctx context.Context, spec Spec) (*T, error)
	Any(ctx context.Context, spec Spec) (bool, error)
	Count(ctx context.Context, spec Spec) (int, error)
}

// Writer is the write side of a repository. Update writes the whole
// aggregate, owned links included, so it must be given an aggregate loaded
// with its links. Update and Remove compare the row version and return
// ErrConflict when it moved. On success the in-memory version is advanced.
// Each returns the number of rows touched.
type Writer[T any] interface {
	Add(ctx context.Context, v *T) (int64, error)
	Update(ctx context.Context, v *T) (int64, error)
	Remove(ctx context.Context, v *T) (int64, error)
}

type Repository[T any] interface {
	Reader[T]
	Writer[T]
}

type Users interface {
	Repository[domain.User]

	// CountWithRole returns how many users hold roleID.
	CountWithRole(ctx context.Context, roleID string) (int, error)
}

type Roles interface {
	Repository[domain.Role]

	// Names resolves role ids to names, ordered by name. Unknown ids are
	// skipped.
	Names(ctx context.Context, ids []string) ([]string, error)
}

type Permissions interface {
	Repository[domain.Permission]

	// Codes resolves permission ids to codes, ordered by code.
	Codes(ctx context.Context, ids []string) ([]string, error)
}

type Menus interface {
	Repository[domain.Menu]

	// Ancestors returns the ids from id up to the root, starting with id.
	Ancestors(ctx context.Context, id string) ([]string, error)
}

// LoginAttempts is append-only: Update and Remove return ErrAppendOnly.
type LoginAttempts interface {
	Repository[domain.LoginAttempt]
}

type Credentials interface {
	Get(ctx context.Context, userID string) (domain.Credential, error)
	// Set inserts or replaces the credential of a user.
	Set(ctx context.Context, c domain.Credential) error
}
