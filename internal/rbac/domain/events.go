package domain

import (
	"context"
	"time"
)

// Event is something that happened to an aggregate. Events are collected on
// the aggregate and handed to an EventDispatcher once the change committed.
type Event interface {
	EventName() string
}

// EventDispatcher delivers committed events to their handlers.
type EventDispatcher interface {
	Dispatch(ctx context.Context, events []Event) error
}

// UserDeactivated is raised when an active user is deactivated.
type UserDeactivated struct {
	UserID   string
	Username string
	At       time.Time
}

func (UserDeactivated) EventName() string { return "user.deactivated" }

// eventLog is embedded by aggregates that raise events.
type eventLog struct {
	pending []Event
}

func (l *eventLog) raise(e Event) { l.pending = append(l.pending, e) }

// PullEvents returns the pending events and clears them.
func (l *eventLog) PullEvents() []Event {
	out := l.pending
	l.pending = nil
	return out
}
