package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
)

var usersTable = table{
	name: "users",
	columns: map[store.Field]column{
		store.FieldID:        {expr: "users.id"},
		store.FieldUsername:  {expr: "users.username", text: true},
		store.FieldEmail:     {expr: "users.email", text: true},
		store.FieldIsActive:  {expr: "users.is_active"},
		store.FieldCreatedAt: {expr: "users.created_at"},
	},
	special: map[store.Field]condFunc{
		store.FieldRoleID: linkCond("user_roles", "user_id", "users.id", "role_id"),
	},
}

const userColumns = `users.id, users.username, users.email, users.is_active, users.version, users.created_at, users.updated_at`

type usersRepo struct {
	q dbtx
}

func scanUser(sc interface{ Scan(...any) error }) (*domain.User, error) {
	var (
		u                domain.User
		username, email  string
		created, updated int64
	)
	if err := sc.Scan(&u.ID, &username, &email, &u.IsActive, &u.Version, &created, &updated); err != nil {
		return nil, err
	}

	var err error
	if u.Username, err = domain.NewUsername(username); err != nil {
		return nil, fmt.Errorf("sqlite: stored user %s: %w", u.ID, err)
	}
	if u.Email, err = domain.NewEmail(email); err != nil {
		return nil, fmt.Errorf("sqlite: stored user %s: %w", u.ID, err)
	}
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return &u, nil
}

func (r *usersRepo) Get(ctx context.Context, id string) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if err := r.loadRoles(ctx, []*domain.User{u}); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *usersRepo) List(ctx context.Context, spec store.Spec) ([]*domain.User, error) {
	query, args, err := usersTable.selectQuery(userColumns, spec)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, u)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	if spec.Has(store.IncludeRoles) {
		if err := r.loadRoles(ctx, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *usersRepo) First(ctx context.Context, spec store.Spec) (*domain.User, error) {
	users, err := r.List(ctx, firstSpec(spec))
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, store.ErrNotFound
	}
	return users[0], nil
}

func (r *usersRepo) Any(ctx context.Context, spec store.Spec) (bool, error) {
	return queryExists(ctx, r.q, usersTable, spec)
}

func (r *usersRepo) Count(ctx context.Context, spec store.Spec) (int, error) {
	return queryCount(ctx, r.q, usersTable, spec)
}

func (r *usersRepo) CountWithRole(ctx context.Context, roleID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_roles WHERE role_id = ?`, roleID).Scan(&n)
	return n, err
}

func (r *usersRepo) Add(ctx context.Context, u *domain.User) (int64, error) {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, username, email, is_active, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)`,
		u.ID, u.Username.String(), u.Email.String(), u.IsActive, toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	if err != nil {
		return 0, mapWriteErr(err)
	}

	n, err := r.syncRoles(ctx, u)
	if err != nil {
		return 0, err
	}
	u.Version = 1
	return 1 + n, nil
}

func (r *usersRepo) Update(ctx context.Context, u *domain.User) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET username = ?, email = ?, is_active = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		u.Username.String(), u.Email.String(), u.IsActive, toMillis(time.Now()), u.ID, u.Version,
	)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	n, err := checkVersioned(res)
	if err != nil {
		return 0, err
	}

	links, err := r.syncRoles(ctx, u)
	if err != nil {
		return 0, err
	}
	u.Version++
	return n + links, nil
}

func (r *usersRepo) Remove(ctx context.Context, u *domain.User) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ? AND version = ?`, u.ID, u.Version)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return checkVersioned(res)
}

// syncRoles makes user_roles match u.Roles.
func (r *usersRepo) syncRoles(ctx context.Context, u *domain.User) (int64, error) {
	ids := u.RoleIDs()
	links := make([]link, 0, len(u.Roles))
	for _, l := range u.Roles {
		links = append(links, link{id: l.ID, target: l.RoleID})
	}
	return syncLinks(ctx, r.q, "user_roles", "user_id", "role_id", u.ID, ids, links)
}

func (r *usersRepo) loadRoles(ctx context.Context, users []*domain.User) error {
	if len(users) == 0 {
		return nil
	}
	byID := make(map[string]*domain.User, len(users))
	ids := make([]string, 0, len(users))
	for _, u := range users {
		byID[u.ID] = u
		ids = append(ids, u.ID)
		u.Roles = nil
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT id, user_id, role_id FROM user_roles WHERE user_id IN (`+placeholders(len(ids))+`) ORDER BY rowid`,
		stringArgs(ids)...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var l domain.UserRole
		if err := rows.Scan(&l.ID, &l.UserID, &l.RoleID); err != nil {
			_ = rows.Close()
			return err
		}
		u := byID[l.UserID]
		u.Roles = append(u.Roles, l)
	}
	return closeRows(rows)
}

// link is one row of a join table as seen from its owner.
type link struct {
	id     string
	target string
}

// syncLinks deletes the owner's links whose target is not in targets and
// inserts the missing ones. Existing pairs are left alone, so two writers
// adding the same pair end up with one row.
func syncLinks(ctx context.Context, q dbtx, tbl, ownerCol, targetCol, ownerID string, targets []string, links []link) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if len(targets) == 0 {
		res, err = q.ExecContext(ctx, `DELETE FROM `+tbl+` WHERE `+ownerCol+` = ?`, ownerID)
	} else {
		args := append([]any{ownerID}, stringArgs(targets)...)
		res, err = q.ExecContext(ctx,
			`DELETE FROM `+tbl+` WHERE `+ownerCol+` = ? AND `+targetCol+` NOT IN (`+placeholders(len(targets))+`)`,
			args...)
	}
	if err != nil {
		return 0, mapWriteErr(err)
	}
	affected, _ := res.RowsAffected()

	// OR IGNORE covers the unique pair only; a vanished target still fails
	// its foreign key and surfaces as a conflict.
	for _, l := range links {
		res, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO `+tbl+` (id, `+ownerCol+`, `+targetCol+`) VALUES (?, ?, ?)`,
			l.id, ownerID, l.target)
		if err != nil {
			return 0, mapWriteErr(err)
		}
		n, _ := res.RowsAffected()
		affected += n
	}
	return affected, nil
}

func queryExists(ctx context.Context, q dbtx, t table, spec store.Spec) (bool, error) {
	query, args, err := t.existsQuery(spec)
	if err != nil {
		return false, err
	}
	var ok bool
	err = q.QueryRowContext(ctx, query, args...).Scan(&ok)
	return ok, err
}

func queryCount(ctx context.Context, q dbtx, t table, spec store.Spec) (int, error) {
	query, args, err := t.countQuery(spec)
	if err != nil {
		return 0, err
	}
	var n int
	err = q.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	return rows.Close()
}

// queryStrings runs a single column query and collects the values.
func queryStrings(ctx context.Context, q dbtx, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, s)
	}
	return out, closeRows(rows)
}
