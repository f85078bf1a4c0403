package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/warden/internal/rbac/store"
	"github.com/aussiebroadwan/warden/pkg/slogx"
)

// retryOnConflict runs fn and, when the write lost a race, runs it once
// more. fn must start from fresh state on every call: open its own unit of
// work, reload aggregates and repeat any uniqueness checks. A second
// conflict is reported as ErrConcurrentModification.
func retryOnConflict(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if !isConflict(err) {
		return err
	}

	log := slogx.FromContext(ctx)
	log.Info("concurrent modification, retrying",
		slog.String("op", op),
		slog.Any("error", err),
	)
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}

	err = fn(ctx)
	if !isConflict(err) {
		return err
	}
	log.Warn("concurrent modification after retry",
		slog.String("op", op),
		slog.Any("error", err),
	)
	return fmt.Errorf("%s: %w", op, ErrConcurrentModification)
}

// isConflict reports whether err came from another writer committing first:
// a stale version, or a unique key claimed between check and insert.
func isConflict(err error) bool {
	return errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrAlreadyExists)
}
