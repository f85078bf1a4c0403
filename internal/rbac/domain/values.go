package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 50
	EmailMinLength    = 5
	EmailMaxLength    = 200
)

// Username is a trimmed login name. The zero value is not valid; use
// NewUsername.
type Username struct {
	value string
}

// NewUsername trims raw and checks its length.
func NewUsername(raw string) (Username, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return Username{}, invalid("username", "username is required")
	}
	if n := utf8.RuneCountInString(v); n < UsernameMinLength || n > UsernameMaxLength {
		return Username{}, invalid("username", "username length must be 3-50 characters")
	}
	return Username{value: v}, nil
}

func (u Username) String() string { return u.value }

// Equal compares usernames the way the store does, ignoring case.
func (u Username) Equal(o Username) bool { return strings.EqualFold(u.value, o.value) }

// Email is a trimmed address with a light format check. Full RFC parsing is
// left to whoever sends mail.
type Email struct {
	value string
}

// NewEmail trims raw and checks it looks like an address.
func NewEmail(raw string) (Email, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return Email{}, invalid("email", "email is required")
	}
	n := utf8.RuneCountInString(v)
	if !strings.Contains(v, "@") || n < EmailMinLength {
		return Email{}, invalid("email", "email is invalid")
	}
	if n > EmailMaxLength {
		return Email{}, invalid("email", "email must be at most 200 characters")
	}
	return Email{value: v}, nil
}

func (e Email) String() string { return e.value }

func (e Email) Equal(o Email) bool { return strings.EqualFold(e.value, o.value) }

// optionalText trims s and enforces a maximum rune count. Blank becomes "".
func optionalText(field, s string, maxLen int) (string, error) {
	v := strings.TrimSpace(s)
	if utf8.RuneCountInString(v) > maxLen {
		return "", invalid(field, field+" is too long")
	}
	return v, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
