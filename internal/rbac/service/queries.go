package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
	"golang.org/x/sync/errgroup"
)

// Page is one page of a larger result set.
type Page[T any] struct {
	Items      []T
	TotalCount int
	PageIndex  int
	PageSize   int
}

// normalizePage clamps a negative index to 0 and a non-positive size to
// store.DefaultPageSize.
func normalizePage(index, size int) (int, int) {
	if index < 0 {
		index = 0
	}
	if size <= 0 {
		size = store.DefaultPageSize
	}
	return index, size
}

// listPage counts and lists spec concurrently.
func listPage[T, R any](ctx context.Context, r store.Reader[T], spec store.Spec, index, size int, fn func(*T) R) (Page[R], error) {
	index, size = normalizePage(index, size)
	page := Page[R]{PageIndex: index, PageSize: size, Items: []R{}}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.Count(ctx, spec.Unpaged())
		page.TotalCount = n
		return err
	})
	var items []R
	g.Go(func() error {
		var err error
		items, err = store.ListAs(ctx, r, spec.Page(index, size), fn)
		return err
	})
	if err := g.Wait(); err != nil {
		return Page[R]{}, err
	}
	page.Items = append(page.Items, items...)
	return page, nil
}

type UserListItem struct {
	ID       string
	Username string
	Email    string
	IsActive bool
	Roles    []string
}

type RoleRef struct {
	ID   string
	Name string
}

type UserDetail struct {
	ID        string
	Username  string
	Email     string
	IsActive  bool
	Roles     []RoleRef
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserQueries struct {
	Store store.Store
}

// Page lists users ordered by username. A non-blank search keeps users whose
// username contains it, ignoring case.
func (q *UserQueries) Page(ctx context.Context, pageIndex, pageSize int, search string) (Page[UserListItem], error) {
	spec := store.All().OrderBy(store.FieldUsername).Include(store.IncludeRoles)
	if s := strings.TrimSpace(search); s != "" {
		spec = spec.And(store.FieldUsername, store.Contains, s)
	}

	page, err := listPage(ctx, store.Reader[domain.User](q.Store.Users()), spec, pageIndex, pageSize, func(u *domain.User) UserListItem {
		return UserListItem{
			ID:       u.ID,
			Username: u.Username.String(),
			Email:    u.Email.String(),
			IsActive: u.IsActive,
			Roles:    u.RoleIDs(),
		}
	})
	if err != nil {
		return Page[UserListItem]{}, err
	}

	// Swap role ids for names with one lookup for the whole page.
	var ids []string
	for _, item := range page.Items {
		ids = append(ids, item.Roles...)
	}
	names, err := q.roleNames(ctx, distinct(ids))
	if err != nil {
		return Page[UserListItem]{}, err
	}
	for i := range page.Items {
		resolved := make([]string, 0, len(page.Items[i].Roles))
		for _, id := range page.Items[i].Roles {
			if name, ok := names[id]; ok {
				resolved = append(resolved, name)
			}
		}
		slices.Sort(resolved)
		page.Items[i].Roles = resolved
	}
	return page, nil
}

func (q *UserQueries) Get(ctx context.Context, id string) (UserDetail, error) {
	u, err := q.Store.Users().Get(ctx, id)
	if err != nil {
		return UserDetail{}, lookup(err, "user", id)
	}

	names, err := q.roleNames(ctx, u.RoleIDs())
	if err != nil {
		return UserDetail{}, err
	}
	roles := make([]RoleRef, 0, len(names))
	for _, rid := range u.RoleIDs() {
		if name, ok := names[rid]; ok {
			roles = append(roles, RoleRef{ID: rid, Name: name})
		}
	}
	slices.SortFunc(roles, func(a, b RoleRef) int { return strings.Compare(a.Name, b.Name) })

	return UserDetail{
		ID:        u.ID,
		Username:  u.Username.String(),
		Email:     u.Email.String(),
		IsActive:  u.IsActive,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}, nil
}

func (q *UserQueries) roleNames(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	roles, err := q.Store.Roles().List(ctx, store.Where(store.FieldID, store.In, ids))
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		out[r.ID] = r.Name
	}
	return out, nil
}

type RoleSummary struct {
	ID              string
	Name            string
	Description     string
	PermissionCount int
	UserCount       int
	// CanDelete is true when neither users nor permissions block deletion.
	CanDelete bool
}

type PermissionItem struct {
	ID          string
	Code        string
	Description string
}

type RoleDetail struct {
	ID          string
	Name        string
	Description string
	Assigned    []PermissionItem
	Available   []PermissionItem
}

type RoleQueries struct {
	Store store.Store
}

// List returns every role ordered by name.
func (q *RoleQueries) List(ctx context.Context) ([]RoleSummary, error) {
	roles, err := q.Store.Roles().List(ctx, store.All().OrderBy(store.FieldName).Include(store.IncludePermissions))
	if err != nil {
		return nil, err
	}

	out := make([]RoleSummary, 0, len(roles))
	for _, r := range roles {
		users, err := q.Store.Users().CountWithRole(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RoleSummary{
			ID:              r.ID,
			Name:            r.Name,
			Description:     r.Description,
			PermissionCount: len(r.Permissions),
			UserCount:       users,
			CanDelete:       users == 0 && domain.CanDeleteRole(r),
		})
	}
	return out, nil
}

// Get returns a role with its granted permissions and the ones it could
// still be granted.
func (q *RoleQueries) Get(ctx context.Context, id string) (RoleDetail, error) {
	r, err := q.Store.Roles().Get(ctx, id)
	if err != nil {
		return RoleDetail{}, lookup(err, "role", id)
	}
	perms, err := q.Store.Permissions().List(ctx, store.All().OrderBy(store.FieldCode))
	if err != nil {
		return RoleDetail{}, err
	}

	detail := RoleDetail{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Assigned:    []PermissionItem{},
		Available:   []PermissionItem{},
	}
	for _, p := range perms {
		item := toPermissionItem(p)
		if r.HasPermission(p.ID) {
			detail.Assigned = append(detail.Assigned, item)
		} else {
			detail.Available = append(detail.Available, item)
		}
	}
	return detail, nil
}

type PermissionQueries struct {
	Store store.Store
}

// List returns every permission ordered by code.
func (q *PermissionQueries) List(ctx context.Context) ([]PermissionItem, error) {
	return store.ListAs(ctx, store.Reader[domain.Permission](q.Store.Permissions()),
		store.All().OrderBy(store.FieldCode), toPermissionItem)
}

// Codes returns the permission codes granted through the named roles, for
// building a caller's effective permission set.
func (q *PermissionQueries) Codes(ctx context.Context, roleNames []string) ([]string, error) {
	if len(roleNames) == 0 {
		return []string{}, nil
	}
	roles, err := q.Store.Roles().List(ctx, store.Where(store.FieldName, store.In, roleNames).Include(store.IncludePermissions))
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, r := range roles {
		ids = append(ids, r.PermissionIDs()...)
	}
	codes, err := q.Store.Permissions().Codes(ctx, distinct(ids))
	if err != nil {
		return nil, err
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}

func toPermissionItem(p *domain.Permission) PermissionItem {
	return PermissionItem{ID: p.ID, Code: p.Code, Description: p.Description}
}

type LoginAttemptItem struct {
	ID           string
	Username     string
	UserID       string
	AttemptedAt  time.Time
	IsSuccessful bool
	RemoteIP     string
	UserAgent    string
}

type LoginAttemptQueries struct {
	Store store.Store
}

func byUsername(username string) store.Spec {
	return store.Where(store.FieldUsername, store.Eq, strings.TrimSpace(username))
}

// Count returns how many attempts were recorded for username. A blank
// username has none.
func (q *LoginAttemptQueries) Count(ctx context.Context, username string) (int, error) {
	if strings.TrimSpace(username) == "" {
		return 0, nil
	}
	return q.Store.LoginAttempts().Count(ctx, byUsername(username))
}

// Page lists the attempts of username, newest first. A blank username
// returns an empty page.
func (q *LoginAttemptQueries) Page(ctx context.Context, username string, pageIndex, pageSize int) (Page[LoginAttemptItem], error) {
	if strings.TrimSpace(username) == "" {
		index, size := normalizePage(pageIndex, pageSize)
		return Page[LoginAttemptItem]{Items: []LoginAttemptItem{}, PageIndex: index, PageSize: size}, nil
	}

	spec := byUsername(username).OrderByDesc(store.FieldAttemptedAt).OrderByDesc(store.FieldID)
	return listPage(ctx, store.Reader[domain.LoginAttempt](q.Store.LoginAttempts()), spec, pageIndex, pageSize,
		func(a *domain.LoginAttempt) LoginAttemptItem {
			return LoginAttemptItem{
				ID:           a.ID,
				Username:     a.Username,
				UserID:       a.UserID,
				AttemptedAt:  a.AttemptedAt,
				IsSuccessful: a.IsSuccessful,
				RemoteIP:     a.RemoteIP,
				UserAgent:    a.UserAgent,
			}
		})
}

// MenuNode is a menu with its children, ordered by Order then title.
type MenuNode struct {
	ID           string
	Title        string
	URL          string
	Description  string
	Icon         string
	Order        int
	IsVisible    bool
	ParentID     string
	PermissionID string
	Children     []*MenuNode
}

type MenuQueries struct {
	Store store.Store
}

// Tree returns every menu as a tree. Entries whose parent is missing are
// returned as roots.
func (q *MenuQueries) Tree(ctx context.Context) ([]*MenuNode, error) {
	menus, err := q.Store.Menus().List(ctx, store.All().OrderBy(store.FieldOrder).OrderBy(store.FieldTitle))
	if err != nil {
		return nil, err
	}
	return buildMenuTree(menus, func(*domain.Menu) bool { return true }, true), nil
}

// TreeForRoles returns the visible menus the named roles may open. An entry
// without a permission is open to everyone; an entry hidden or denied
// hides its whole subtree.
func (q *MenuQueries) TreeForRoles(ctx context.Context, roleNames []string) ([]*MenuNode, error) {
	granted := map[string]struct{}{}
	if len(roleNames) > 0 {
		roles, err := q.Store.Roles().List(ctx, store.Where(store.FieldName, store.In, roleNames).Include(store.IncludePermissions))
		if err != nil {
			return nil, err
		}
		for _, r := range roles {
			for _, id := range r.PermissionIDs() {
				granted[id] = struct{}{}
			}
		}
	}

	menus, err := q.Store.Menus().List(ctx, store.Where(store.FieldIsVisible, store.Eq, true).
		OrderBy(store.FieldOrder).OrderBy(store.FieldTitle))
	if err != nil {
		return nil, err
	}

	allowed := func(m *domain.Menu) bool {
		if m.PermissionID == "" {
			return true
		}
		_, ok := granted[m.PermissionID]
		return ok
	}
	return buildMenuTree(menus, allowed, false), nil
}

// buildMenuTree links menus, already sorted, into a forest. Children of an
// entry that is filtered out or absent become roots when orphansAsRoots is
// set and are dropped with their subtree otherwise.
func buildMenuTree(menus []*domain.Menu, keep func(*domain.Menu) bool, orphansAsRoots bool) []*MenuNode {
	nodes := make(map[string]*MenuNode, len(menus))
	for _, m := range menus {
		if !keep(m) {
			continue
		}
		nodes[m.ID] = &MenuNode{
			ID:           m.ID,
			Title:        m.Title,
			URL:          m.URL,
			Description:  m.Description,
			Icon:         m.Icon,
			Order:        m.Order,
			IsVisible:    m.IsVisible,
			ParentID:     m.ParentID,
			PermissionID: m.PermissionID,
			Children:     []*MenuNode{},
		}
	}

	roots := []*MenuNode{}
	for _, m := range menus {
		n, ok := nodes[m.ID]
		if !ok {
			continue
		}
		if m.ParentID == "" {
			roots = append(roots, n)
			continue
		}
		if parent, ok := nodes[m.ParentID]; ok {
			parent.Children = append(parent.Children, n)
		} else if orphansAsRoots {
			roots = append(roots, n)
		}
	}

	return roots
}
