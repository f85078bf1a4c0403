package domain

import (
	"time"
	"unicode/utf8"
)

const (
	PasswordMinLength = 8
	PasswordMaxLength = 128
)

// Credential is a user's password hash. It lives outside the User aggregate
// so that user reads never load secrets.
type Credential struct {
	UserID       string
	PasswordHash string // argon2id encoded
	UpdatedAt    time.Time
}

// ValidatePassword checks a plain text password before it is hashed.
// Passwords are not trimmed.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n < PasswordMinLength:
		return invalid("password", "must be at least 8 characters")
	case n > PasswordMaxLength:
		return invalid("password", "must be at most 128 characters")
	}
	return nil
}
