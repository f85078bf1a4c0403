package http

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/warden/pkg/jwtx"
	"github.com/aussiebroadwan/warden/pkg/slogx"
)

var ErrSessionRevoked = errors.New("session revoked")

// SessionRevocations ends the sessions of deactivated users by refusing
// access tokens issued before the deactivation. Entries are kept in memory
// for one token lifetime, after which every such token has expired anyway.
type SessionRevocations struct {
	TTL time.Duration // zero means jwtx.DefaultAccessTokenTTL

	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewSessionRevocations(ttl time.Duration) *SessionRevocations {
	return &SessionRevocations{TTL: ttl, revoked: make(map[string]time.Time), now: time.Now}
}

func (s *SessionRevocations) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return jwtx.DefaultAccessTokenTTL
}

// TerminateUserSessions revokes every token of userID issued up to now.
func (s *SessionRevocations) TerminateUserSessions(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.revoked[userID] = now.Truncate(time.Second)
	s.pruneLocked(now)

	slogx.FromContext(ctx).Info("user sessions revoked", slog.String("user_id", userID))
	return nil
}

// Revoked reports whether a token of userID issued at issuedAt was revoked.
func (s *SessionRevocations) Revoked(userID string, issuedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.revoked[userID]
	return ok && !issuedAt.After(at)
}

// Prune drops revocations older than one token lifetime and reports how
// many were removed.
func (s *SessionRevocations) Prune(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(s.now()), nil
}

func (s *SessionRevocations) pruneLocked(now time.Time) int {
	cutoff := now.Add(-s.ttl())
	var n int
	for id, at := range s.revoked {
		if at.Before(cutoff) {
			delete(s.revoked, id)
			n++
		}
	}
	return n
}

// Verifier wraps v so that revoked tokens fail verification.
func (s *SessionRevocations) Verifier(v jwtx.Verifier) jwtx.Verifier {
	return revocationVerifier{next: v, revocations: s}
}

type revocationVerifier struct {
	next        jwtx.Verifier
	revocations *SessionRevocations
}

func (v revocationVerifier) Verify(token string) (jwtx.Claims, error) {
	claims, err := v.next.Verify(token)
	if err != nil {
		return jwtx.Claims{}, err
	}

	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	if v.revocations.Revoked(claims.Subject, issuedAt) {
		return jwtx.Claims{}, ErrSessionRevoked
	}
	return claims, nil
}
