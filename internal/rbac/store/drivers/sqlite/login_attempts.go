package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
)

var loginAttemptsTable = table{
	name: "login_attempts",
	columns: map[store.Field]column{
		store.FieldID:           {expr: "login_attempts.id"},
		store.FieldUsername:     {expr: "login_attempts.username", text: true, nocase: true},
		store.FieldUserID:       {expr: "login_attempts.user_id", nullable: true},
		store.FieldAttemptedAt:  {expr: "login_attempts.attempted_at"},
		store.FieldIsSuccessful: {expr: "login_attempts.is_successful"},
	},
}

const loginAttemptColumns = `login_attempts.id, login_attempts.username, login_attempts.user_id,
	login_attempts.attempted_at, login_attempts.is_successful, login_attempts.remote_ip, login_attempts.user_agent`

type loginAttemptsRepo struct {
	q dbtx
}

func scanLoginAttempt(sc interface{ Scan(...any) error }) (*domain.LoginAttempt, error) {
	var (
		a      domain.LoginAttempt
		userID sql.NullString
		at     int64
	)
	if err := sc.Scan(&a.ID, &a.Username, &userID, &at, &a.IsSuccessful, &a.RemoteIP, &a.UserAgent); err != nil {
		return nil, err
	}
	a.UserID = mapNullString(userID)
	a.AttemptedAt = fromMillis(at)
	return &a, nil
}

func (r *loginAttemptsRepo) Get(ctx context.Context, id string) (*domain.LoginAttempt, error) {
	a, err := scanLoginAttempt(r.q.QueryRowContext(ctx,
		`SELECT `+loginAttemptColumns+` FROM login_attempts WHERE id = ?`, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return a, nil
}

func (r *loginAttemptsRepo) List(ctx context.Context, spec store.Spec) ([]*domain.LoginAttempt, error) {
	query, args, err := loginAttemptsTable.selectQuery(loginAttemptColumns, spec)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []*domain.LoginAttempt
	for rows.Next() {
		a, err := scanLoginAttempt(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, a)
	}
	return out, closeRows(rows)
}

func (r *loginAttemptsRepo) First(ctx context.Context, spec store.Spec) (*domain.LoginAttempt, error) {
	attempts, err := r.List(ctx, firstSpec(spec))
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, store.ErrNotFound
	}
	return attempts[0], nil
}

func (r *loginAttemptsRepo) Any(ctx context.Context, spec store.Spec) (bool, error) {
	return queryExists(ctx, r.q, loginAttemptsTable, spec)
}

func (r *loginAttemptsRepo) Count(ctx context.Context, spec store.Spec) (int, error) {
	return queryCount(ctx, r.q, loginAttemptsTable, spec)
}

func (r *loginAttemptsRepo) Add(ctx context.Context, a *domain.LoginAttempt) (int64, error) {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO login_attempts (id, username, user_id, attempted_at, is_successful, remote_ip, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, mapStringNull(a.UserID), toMillis(a.AttemptedAt), a.IsSuccessful, a.RemoteIP, a.UserAgent,
	)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return 1, nil
}

func (r *loginAttemptsRepo) Update(context.Context, *domain.LoginAttempt) (int64, error) {
	return 0, store.ErrAppendOnly
}

func (r *loginAttemptsRepo) Remove(context.Context, *domain.LoginAttempt) (int64, error) {
	return 0, store.ErrAppendOnly
}
