package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
)

var permissionsTable = table{
	name: "permissions",
	columns: map[store.Field]column{
		store.FieldID:        {expr: "permissions.id"},
		store.FieldCode:      {expr: "permissions.code", text: true},
		store.FieldCreatedAt: {expr: "permissions.created_at"},
	},
	special: map[store.Field]condFunc{
		store.FieldRoleID: linkCond("role_permissions", "permission_id", "permissions.id", "role_id"),
	},
}

const permissionColumns = `permissions.id, permissions.code, permissions.description, permissions.version, permissions.created_at, permissions.updated_at`

type permissionsRepo struct {
	q dbtx
}

func scanPermission(sc interface{ Scan(...any) error }) (*domain.Permission, error) {
	var (
		p                domain.Permission
		created, updated int64
	)
	if err := sc.Scan(&p.ID, &p.Code, &p.Description, &p.Version, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return &p, nil
}

func (r *permissionsRepo) Get(ctx context.Context, id string) (*domain.Permission, error) {
	p, err := scanPermission(r.q.QueryRowContext(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = ?`, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return p, nil
}

func (r *permissionsRepo) List(ctx context.Context, spec store.Spec) ([]*domain.Permission, error) {
	query, args, err := permissionsTable.selectQuery(permissionColumns, spec)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []*domain.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	return out, closeRows(rows)
}

func (r *permissionsRepo) First(ctx context.Context, spec store.Spec) (*domain.Permission, error) {
	perms, err := r.List(ctx, firstSpec(spec))
	if err != nil {
		return nil, err
	}
	if len(perms) == 0 {
		return nil, store.ErrNotFound
	}
	return perms[0], nil
}

func (r *permissionsRepo) Any(ctx context.Context, spec store.Spec) (bool, error) {
	return queryExists(ctx, r.q, permissionsTable, spec)
}

func (r *permissionsRepo) Count(ctx context.Context, spec store.Spec) (int, error) {
	return queryCount(ctx, r.q, permissionsTable, spec)
}

func (r *permissionsRepo) Codes(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return queryStrings(ctx, r.q,
		`SELECT code FROM permissions WHERE id IN (`+placeholders(len(ids))+`) ORDER BY code COLLATE NOCASE`,
		stringArgs(ids)...)
}

func (r *permissionsRepo) Add(ctx context.Context, p *domain.Permission) (int64, error) {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO permissions (id, code, description, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)`,
		p.ID, p.Code, p.Description, toMillis(p.CreatedAt), toMillis(p.UpdatedAt),
	)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	p.Version = 1
	return 1, nil
}

func (r *permissionsRepo) Update(ctx context.Context, p *domain.Permission) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE permissions
		SET code = ?, description = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		p.Code, p.Description, toMillis(time.Now()), p.ID, p.Version,
	)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	n, err := checkVersioned(res)
	if err != nil {
		return 0, err
	}
	p.Version++
	return n, nil
}

// Remove deletes a permission no role grants. Granted permissions fail
// their foreign key and are reported as ErrConflict.
func (r *permissionsRepo) Remove(ctx context.Context, p *domain.Permission) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM permissions WHERE id = ? AND version = ?`, p.ID, p.Version)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return checkVersioned(res)
}
