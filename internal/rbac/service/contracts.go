package service

import "time"

// PasswordHasher hashes and verifies passwords. cryptox.Argon2Hasher
// implements it.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	CreateToken(userID, username, email string, roles []string, issuedAt time.Time) (token string, expiresAt time.Time, err error)
}

// ClientContext describes the caller of a login, as seen by the transport.
type ClientContext interface {
	RemoteIP() string
	UserAgent() string
}
