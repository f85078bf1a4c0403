package rbacsdk

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Session is an authenticated session bound to one access token.
type Session struct {
	client *SDKClient

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
	username    string
	email       string
	roles       map[string]bool
}

func newSession(client *SDKClient, login *LoginResponse) *Session {
	expiresAt := login.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(time.Duration(login.ExpiresIn) * time.Second)
	}

	return &Session{
		client:      client,
		accessToken: login.AccessToken,
		expiresAt:   expiresAt,
		username:    login.Username,
		email:       login.Email,
		roles:       toSet(login.Roles),
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// ExpiresAt returns when the access token expires.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Username returns the signed in username as reported at login.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Email returns the signed in user's email as reported at login.
func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// Roles returns the role names granted at login.
func (s *Session) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]string, 0, len(s.roles))
	for role := range s.roles {
		roles = append(roles, role)
	}
	return roles
}

// HasRole returns true if the session was granted role.
func (s *Session) HasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles[role]
}

// Expired reports whether the access token has expired.
func (s *Session) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.expiresAt.IsZero() && !time.Now().Before(s.expiresAt)
}

func (s *Session) validToken() (string, error) {
	if s.Expired() {
		return "", ErrSessionExpired
	}
	return s.AccessToken(), nil
}

// checkRoles returns an error if role checking is enabled and the session
// holds none of anyRole.
func (s *Session) checkRoles(anyRole ...string) error {
	if !s.client.CheckRoles || len(anyRole) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, role := range anyRole {
		if s.roles[role] {
			return nil
		}
	}
	return fmt.Errorf("missing required role: one of %s", strings.Join(anyRole, ", "))
}
