package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/pkg/slogx"
)

// SessionTerminator ends the live sessions of a user.
type SessionTerminator interface {
	TerminateUserSessions(ctx context.Context, userID string) error
}

// LogSessionTerminator only records that the sessions should end. Access
// tokens are stateless and expire on their own.
type LogSessionTerminator struct{}

func (LogSessionTerminator) TerminateUserSessions(ctx context.Context, userID string) error {
	slogx.FromContext(ctx).Info("user sessions terminated", slog.String("user_id", userID))
	return nil
}

// Dispatcher delivers committed domain events to their handlers.
type Dispatcher struct {
	Sessions SessionTerminator // nil means LogSessionTerminator
}

func (d *Dispatcher) sessions() SessionTerminator {
	if d.Sessions != nil {
		return d.Sessions
	}
	return LogSessionTerminator{}
}

// Dispatch runs the handler of every event in order. A failing handler does
// not stop the others; their errors are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, events []domain.Event) error {
	var errs []error
	for _, e := range events {
		if err := d.handle(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.EventName(), err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) handle(ctx context.Context, e domain.Event) error {
	l := slogx.FromContext(ctx)

	switch ev := e.(type) {
	case domain.UserDeactivated:
		l.Info("user deactivated",
			slog.String("user_id", ev.UserID),
			slog.String("username", ev.Username),
			slog.Time("at", ev.At),
		)
		return d.sessions().TerminateUserSessions(ctx, ev.UserID)
	default:
		l.Debug("no handler for event", slog.String("event", e.EventName()))
		return nil
	}
}
