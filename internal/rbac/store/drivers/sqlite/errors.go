package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/aussiebroadwan/warden/internal/rbac/store"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapWriteErr translates SQLite constraint failures into store errors. A
// unique violation means the value is taken. A foreign key violation means
// a referenced row vanished or is still referenced, which is another writer
// racing us.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}

	var serr *sqlitedrv.Error
	if !errors.As(err, &serr) {
		return err
	}

	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return errors.Join(store.ErrAlreadyExists, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return errors.Join(store.ErrConflict, err)
	}

	// Extended codes off: fall back to the message.
	if serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := serr.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return errors.Join(store.ErrAlreadyExists, err)
		case strings.Contains(msg, "FOREIGN KEY"):
			return errors.Join(store.ErrConflict, err)
		}
	}
	return err
}
