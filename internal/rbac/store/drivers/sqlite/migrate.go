package sqlite

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/warden/internal/rbac/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ApplyMigrations brings the schema up to the newest embedded migration.
// A database left dirty by a failed migration is refused.
func (s *Store) ApplyMigrations() error {
	db, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite: migration driver: %w", err)
	}
	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return fmt.Errorf("sqlite: migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", db)
	if err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}

	if _, dirty, err := m.Version(); err == nil && dirty {
		return errors.New("sqlite: schema is dirty, a previous migration failed")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: apply migrations: %w", err)
	}
	return nil
}
