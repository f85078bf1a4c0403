package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
	"github.com/aussiebroadwan/warden/pkg/jwtx"
	"github.com/aussiebroadwan/warden/pkg/slogx"
)

// AuthToken is the result of a successful login.
type AuthToken struct {
	AccessToken string
	ExpiresAt   time.Time
	Username    string
	Email       string
	Roles       []string
}

type AuthService struct {
	Store  store.Store
	Hasher PasswordHasher
	Tokens TokenIssuer

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Login verifies a username and password and issues an access token. Every
// call records exactly one login attempt, whatever the outcome. Unknown
// users, inactive users and wrong passwords all fail with
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string, client ClientContext) (AuthToken, error) {
	l := slogx.FromContext(ctx)
	now := s.now()

	var (
		userID     string
		successful bool
	)
	defer func() {
		s.recordAttempt(ctx, username, userID, now, successful, client)
	}()

	// 1. Find an active user by username
	name := strings.TrimSpace(username)
	if name == "" {
		return AuthToken{}, ErrInvalidCredentials
	}
	u, err := s.Store.Users().First(ctx, store.Where(store.FieldUsername, store.Eq, name).Include(store.IncludeRoles))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("login failed: unknown user", slog.String("username", name))
			return AuthToken{}, ErrInvalidCredentials
		}
		return AuthToken{}, err
	}
	userID = u.ID
	if !u.IsActive {
		l.Info("login failed: user inactive", slog.String("user_id", u.ID))
		return AuthToken{}, ErrInvalidCredentials
	}

	// 2. Verify the password
	cred, err := s.Store.Credentials().Get(ctx, u.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("login failed: no credentials", slog.String("user_id", u.ID))
			return AuthToken{}, ErrInvalidCredentials
		}
		return AuthToken{}, err
	}
	if !s.Hasher.Verify(password, cred.PasswordHash) {
		l.Info("login failed: wrong password", slog.String("user_id", u.ID))
		return AuthToken{}, ErrInvalidCredentials
	}

	// 3. Resolve role names
	roles, err := s.Store.Roles().Names(ctx, u.RoleIDs())
	if err != nil {
		return AuthToken{}, err
	}
	if roles == nil {
		roles = []string{}
	}

	// 4. Issue the token
	token, expiresAt, err := s.Tokens.CreateToken(u.ID, u.Username.String(), u.Email.String(), roles, now)
	if err != nil {
		l.Error("failed to issue access token", slog.String("user_id", u.ID), slog.Any("error", err))
		return AuthToken{}, err
	}

	successful = true
	l.Info("login succeeded", slog.String("user_id", u.ID))
	return AuthToken{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Username:    u.Username.String(),
		Email:       u.Email.String(),
		Roles:       roles,
	}, nil
}

// recordAttempt appends the audit row of a login. Failures are logged and
// never change the login result.
func (s *AuthService) recordAttempt(ctx context.Context, username, userID string, at time.Time, successful bool, client ClientContext) {
	var ip, agent string
	if client != nil {
		ip, agent = client.RemoteIP(), client.UserAgent()
	}

	// The attempt is recorded even when the request was cancelled mid-login.
	ctx = context.WithoutCancel(ctx)

	uow := store.NewUnitOfWork(s.Store, nil)
	uow.LoginAttempts().Add(domain.NewLoginAttempt(username, userID, at, successful, ip, agent))
	if _, err := uow.SaveChanges(ctx); err != nil {
		slogx.FromContext(ctx).Error("failed to record login attempt",
			slog.String("username", username),
			slog.Bool("successful", successful),
			slog.Any("error", err),
		)
	}
}

// JWTIssuer issues EdDSA access tokens.
type JWTIssuer struct {
	Signer   jwtx.Signer
	Issuer   string
	Audience []string
	TTL      time.Duration // zero means jwtx.DefaultAccessTokenTTL
}

func (i JWTIssuer) CreateToken(userID, username, email string, roles []string, issuedAt time.Time) (string, time.Time, error) {
	ttl := i.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	claims := jwtx.NewAccessClaims(userID, username, email, roles, ttl, i.Issuer, i.Audience, issuedAt)
	token, err := i.Signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// AccountService holds the self-service operations of a signed in user.
type AccountService struct {
	Store      store.Store
	Hasher     PasswordHasher
	Uniqueness UniquenessChecker // nil checks against Store
	Events     domain.EventDispatcher
}

func (s *AccountService) UpdateEmail(ctx context.Context, username, email string) error {
	uniq := s.Uniqueness
	if uniq == nil {
		uniq = StoreUniqueness{Store: s.Store}
	}

	return retryOnConflict(ctx, "update account email", func(ctx context.Context) error {
		uow := store.NewUnitOfWork(s.Store, s.Events)
		u, err := uow.Users().First(ctx, store.Where(store.FieldUsername, store.Eq, strings.TrimSpace(username)))
		if err != nil {
			return lookup(err, "user", username)
		}

		if err := u.UpdateEmail(email); err != nil {
			return err
		}
		taken, err := uniq.IsEmailTaken(ctx, u.Email.String(), u.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}

		if err := uow.Users().Update(u); err != nil {
			return err
		}
		_, err = uow.SaveChanges(ctx)
		return err
	})
}

// ChangePassword replaces the caller's password after checking the current
// one. A wrong current password fails with ErrInvalidCredentials.
func (s *AccountService) ChangePassword(ctx context.Context, username, current, next string) error {
	if err := domain.ValidatePassword(next); err != nil {
		return err
	}

	u, err := s.Store.Users().First(ctx, store.Where(store.FieldUsername, store.Eq, strings.TrimSpace(username)))
	if err != nil {
		return lookup(err, "user", username)
	}

	cred, err := s.Store.Credentials().Get(ctx, u.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if !s.Hasher.Verify(current, cred.PasswordHash) {
		slogx.FromContext(ctx).Info("password change refused: wrong current password", slog.String("user_id", u.ID))
		return ErrInvalidCredentials
	}

	hash, err := s.Hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.Store.Credentials().Set(ctx, domain.Credential{UserID: u.ID, PasswordHash: hash, UpdatedAt: time.Now().UTC()}); err != nil {
		return lookup(err, "user", u.ID)
	}

	slogx.FromContext(ctx).Info("password changed", slog.String("user_id", u.ID))
	return nil
}
