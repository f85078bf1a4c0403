package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
)

var menusTable = table{
	name: "menus",
	columns: map[store.Field]column{
		store.FieldID:           {expr: "menus.id"},
		store.FieldTitle:        {expr: "menus.title", text: true},
		store.FieldParentID:     {expr: "menus.parent_id", nullable: true},
		store.FieldPermissionID: {expr: "menus.permission_id", nullable: true},
		store.FieldOrder:        {expr: "menus.sort_order"},
		store.FieldIsVisible:    {expr: "menus.is_visible"},
		store.FieldCreatedAt:    {expr: "menus.created_at"},
	},
}

const menuColumns = `menus.id, menus.title, menus.url, menus.description, menus.icon, menus.sort_order,
	menus.is_visible, menus.parent_id, menus.permission_id, menus.version, menus.created_at, menus.updated_at`

// maxMenuDepth bounds the ancestor walk in case a cycle slipped in.
const maxMenuDepth = 64

type menusRepo struct {
	q dbtx
}

func scanMenu(sc interface{ Scan(...any) error }) (*domain.Menu, error) {
	var (
		m                  domain.Menu
		parent, permission sql.NullString
		created, updated   int64
	)
	err := sc.Scan(&m.ID, &m.Title, &m.URL, &m.Description, &m.Icon, &m.Order,
		&m.IsVisible, &parent, &permission, &m.Version, &created, &updated)
	if err != nil {
		return nil, err
	}
	m.ParentID = mapNullString(parent)
	m.PermissionID = mapNullString(permission)
	m.CreatedAt = fromMillis(created)
	m.UpdatedAt = fromMillis(updated)
	return &m, nil
}

func (r *menusRepo) Get(ctx context.Context, id string) (*domain.Menu, error) {
	m, err := scanMenu(r.q.QueryRowContext(ctx, `SELECT `+menuColumns+` FROM menus WHERE id = ?`, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return m, nil
}

func (r *menusRepo) List(ctx context.Context, spec store.Spec) ([]*domain.Menu, error) {
	query, args, err := menusTable.selectQuery(menuColumns, spec)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []*domain.Menu
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, m)
	}
	return out, closeRows(rows)
}

func (r *menusRepo) First(ctx context.Context, spec store.Spec) (*domain.Menu, error) {
	menus, err := r.List(ctx, firstSpec(spec))
	if err != nil {
		return nil, err
	}
	if len(menus) == 0 {
		return nil, store.ErrNotFound
	}
	return menus[0], nil
}

func (r *menusRepo) Any(ctx context.Context, spec store.Spec) (bool, error) {
	return queryExists(ctx, r.q, menusTable, spec)
}

func (r *menusRepo) Count(ctx context.Context, spec store.Spec) (int, error) {
	return queryCount(ctx, r.q, menusTable, spec)
}

func (r *menusRepo) Ancestors(ctx context.Context, id string) ([]string, error) {
	ids, err := queryStrings(ctx, r.q, `
		WITH RECURSIVE chain(id, parent_id, depth) AS (
			SELECT id, parent_id, 0 FROM menus WHERE id = ?
			UNION ALL
			SELECT m.id, m.parent_id, c.depth + 1
			FROM menus m JOIN chain c ON m.id = c.parent_id
			WHERE c.depth < ?
		)
		SELECT id FROM chain ORDER BY depth`, id, maxMenuDepth)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, store.ErrNotFound
	}
	return ids, nil
}

func (r *menusRepo) Add(ctx context.Context, m *domain.Menu) (int64, error) {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO menus (id, title, url, description, icon, sort_order, is_visible,
			parent_id, permission_id, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		m.ID, m.Title, m.URL, m.Description, m.Icon, m.Order, m.IsVisible,
		mapStringNull(m.ParentID), mapStringNull(m.PermissionID), toMillis(m.CreatedAt), toMillis(m.UpdatedAt),
	)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	m.Version = 1
	return 1, nil
}

// Update writes m. A parent whose chain reaches m, because another move
// committed after m was loaded, is reported as ErrConflict so the caller
// reloads and sees the cycle.
func (r *menusRepo) Update(ctx context.Context, m *domain.Menu) (int64, error) {
	if m.ParentID != "" {
		chain, err := r.Ancestors(ctx, m.ParentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return 0, store.ErrConflict
			}
			return 0, err
		}
		if slices.Contains(chain, m.ID) {
			return 0, store.ErrConflict
		}
	}

	res, err := r.q.ExecContext(ctx, `
		UPDATE menus
		SET title = ?, url = ?, description = ?, icon = ?, sort_order = ?, is_visible = ?,
			parent_id = ?, permission_id = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		m.Title, m.URL, m.Description, m.Icon, m.Order, m.IsVisible,
		mapStringNull(m.ParentID), mapStringNull(m.PermissionID), toMillis(time.Now()),
		m.ID, m.Version,
	)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	n, err := checkVersioned(res)
	if err != nil {
		return 0, err
	}
	m.Version++
	return n, nil
}

// Remove deletes a leaf menu. A menu that gained a child fails its foreign
// key and is reported as ErrConflict.
func (r *menusRepo) Remove(ctx context.Context, m *domain.Menu) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM menus WHERE id = ? AND version = ?`, m.ID, m.Version)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return checkVersioned(res)
}
