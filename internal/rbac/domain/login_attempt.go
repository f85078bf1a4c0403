package domain

import (
	"time"

	"github.com/aussiebroadwan/warden/pkg/idx"
)

// Audit column widths. Longer values are truncated, never rejected, so a
// hostile client cannot make an attempt go unrecorded.
const (
	LoginAttemptUsernameMax  = 128
	LoginAttemptRemoteIPMax  = 64
	LoginAttemptUserAgentMax = 512
)

// LoginAttempt is an append-only audit record of one sign in attempt.
type LoginAttempt struct {
	ID           string
	Username     string // as typed, not validated against users
	UserID       string // empty when no user matched
	AttemptedAt  time.Time
	IsSuccessful bool
	RemoteIP     string
	UserAgent    string
}

func NewLoginAttempt(username, userID string, at time.Time, successful bool, remoteIP, userAgent string) *LoginAttempt {
	return &LoginAttempt{
		ID:           idx.NewAt(at).String(),
		Username:     truncate(username, LoginAttemptUsernameMax),
		UserID:       userID,
		AttemptedAt:  at.UTC(),
		IsSuccessful: successful,
		RemoteIP:     truncate(remoteIP, LoginAttemptRemoteIPMax),
		UserAgent:    truncate(userAgent, LoginAttemptUserAgentMax),
	}
}
