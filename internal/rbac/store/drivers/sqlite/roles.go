package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
)

var rolesTable = table{
	name: "roles",
	columns: map[store.Field]column{
		store.FieldID:        {expr: "roles.id"},
		store.FieldName:      {expr: "roles.name", text: true},
		store.FieldCreatedAt: {expr: "roles.created_at"},
	},
	special: map[store.Field]condFunc{
		store.FieldPermissionID: linkCond("role_permissions", "role_id", "roles.id", "permission_id"),
		store.FieldUserID:       linkCond("user_roles", "role_id", "roles.id", "user_id"),
	},
}

const roleColumns = `roles.id, roles.name, roles.description, roles.version, roles.created_at, roles.updated_at`

type rolesRepo struct {
	q dbtx
}

func scanRole(sc interface{ Scan(...any) error }) (*domain.Role, error) {
	var (
		r                domain.Role
		created, updated int64
	)
	if err := sc.Scan(&r.ID, &r.Name, &r.Description, &r.Version, &created, &updated); err != nil {
		return nil, err
	}
	r.CreatedAt = fromMillis(created)
	r.UpdatedAt = fromMillis(updated)
	return &r, nil
}

func (r *rolesRepo) Get(ctx context.Context, id string) (*domain.Role, error) {
	role, err := scanRole(r.q.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = ?`, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	if err := r.loadPermissions(ctx, []*domain.Role{role}); err != nil {
		return nil, err
	}
	return role, nil
}

func (r *rolesRepo) List(ctx context.Context, spec store.Spec) ([]*domain.Role, error) {
	query, args, err := rolesTable.selectQuery(roleColumns, spec)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []*domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, role)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	if spec.Has(store.IncludePermissions) {
		if err := r.loadPermissions(ctx, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *rolesRepo) First(ctx context.Context, spec store.Spec) (*domain.Role, error) {
	roles, err := r.List(ctx, firstSpec(spec))
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, store.ErrNotFound
	}
	return roles[0], nil
}

func (r *rolesRepo) Any(ctx context.Context, spec store.Spec) (bool, error) {
	return queryExists(ctx, r.q, rolesTable, spec)
}

func (r *rolesRepo) Count(ctx context.Context, spec store.Spec) (int, error) {
	return queryCount(ctx, r.q, rolesTable, spec)
}

func (r *rolesRepo) Names(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return queryStrings(ctx, r.q,
		`SELECT name FROM roles WHERE id IN (`+placeholders(len(ids))+`) ORDER BY name COLLATE NOCASE`,
		stringArgs(ids)...)
}

func (r *rolesRepo) Add(ctx context.Context, role *domain.Role) (int64, error) {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO roles (id, name, description, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)`,
		role.ID, role.Name, role.Description, toMillis(role.CreatedAt), toMillis(role.UpdatedAt),
	)
	if err != nil {
		return 0, mapWriteErr(err)
	}

	n, err := r.syncPermissions(ctx, role)
	if err != nil {
		return 0, err
	}
	role.Version = 1
	return 1 + n, nil
}

func (r *rolesRepo) Update(ctx context.Context, role *domain.Role) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE roles
		SET name = ?, description = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		role.Name, role.Description, toMillis(time.Now()), role.ID, role.Version,
	)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	n, err := checkVersioned(res)
	if err != nil {
		return 0, err
	}

	links, err := r.syncPermissions(ctx, role)
	if err != nil {
		return 0, err
	}
	role.Version++
	return n + links, nil
}

// Remove deletes the role and its permission links. A role still held by a
// user fails its foreign key and is reported as ErrConflict.
func (r *rolesRepo) Remove(ctx context.Context, role *domain.Role) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM roles WHERE id = ? AND version = ?`, role.ID, role.Version)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return checkVersioned(res)
}

func (r *rolesRepo) syncPermissions(ctx context.Context, role *domain.Role) (int64, error) {
	links := make([]link, 0, len(role.Permissions))
	for _, l := range role.Permissions {
		links = append(links, link{id: l.ID, target: l.PermissionID})
	}
	return syncLinks(ctx, r.q, "role_permissions", "role_id", "permission_id", role.ID, role.PermissionIDs(), links)
}

func (r *rolesRepo) loadPermissions(ctx context.Context, roles []*domain.Role) error {
	if len(roles) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Role, len(roles))
	ids := make([]string, 0, len(roles))
	for _, role := range roles {
		byID[role.ID] = role
		ids = append(ids, role.ID)
		role.Permissions = nil
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT id, role_id, permission_id FROM role_permissions WHERE role_id IN (`+placeholders(len(ids))+`) ORDER BY rowid`,
		stringArgs(ids)...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var l domain.RolePermission
		if err := rows.Scan(&l.ID, &l.RoleID, &l.PermissionID); err != nil {
			_ = rows.Close()
			return err
		}
		role := byID[l.RoleID]
		role.Permissions = append(role.Permissions, l)
	}
	return closeRows(rows)
}
