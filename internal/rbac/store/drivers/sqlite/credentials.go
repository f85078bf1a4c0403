package sqlite

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
)

type credentialsRepo struct {
	q dbtx
}

func (r *credentialsRepo) Get(ctx context.Context, userID string) (domain.Credential, error) {
	var (
		c       domain.Credential
		updated int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT user_id, password_hash, updated_at FROM user_credentials WHERE user_id = ?`, userID,
	).Scan(&c.UserID, &c.PasswordHash, &updated)
	if err != nil {
		return domain.Credential{}, mapNotFound(err)
	}
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}

func (r *credentialsRepo) Set(ctx context.Context, c domain.Credential) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO user_credentials (user_id, password_hash, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			password_hash = excluded.password_hash,
			updated_at = excluded.updated_at`,
		c.UserID, c.PasswordHash, toMillis(c.UpdatedAt),
	)
	err = mapWriteErr(err)
	if errors.Is(err, store.ErrConflict) {
		// the only foreign key is the user
		return store.ErrNotFound
	}
	return err
}
