package service

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
	"github.com/aussiebroadwan/warden/internal/rbac/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.FileDSN(filepath.Join(t.TempDir(), "warden.db")))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// plainHasher keeps tests fast; argon2 is covered in pkg/cryptox.
type plainHasher struct {
	err error
}

func (h plainHasher) Hash(password string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "plain:" + password, nil
}

func (h plainHasher) Verify(password, hash string) bool {
	return hash == "plain:"+password
}

type fixedIssuer struct {
	ttl time.Duration
}

func (i fixedIssuer) CreateToken(userID, username, _ string, roles []string, issuedAt time.Time) (string, time.Time, error) {
	return userID + "|" + username + "|" + strings.Join(roles, ","), issuedAt.Add(i.ttl), nil
}

type testClient struct {
	ip, agent string
}

func (c testClient) RemoteIP() string  { return c.ip }
func (c testClient) UserAgent() string { return c.agent }

type recordingSessions struct {
	mu      sync.Mutex
	userIDs []string
	err     error
}

func (r *recordingSessions) TerminateUserSessions(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userIDs = append(r.userIDs, userID)
	return r.err
}

func (r *recordingSessions) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.userIDs...)
}

// fixture wires every command service to one store.
type fixture struct {
	store       *sqlite.Store
	users       *UserCommands
	roles       *RoleCommands
	grants      *RolePermissionCommands
	permissions *PermissionCommands
	menus       *MenuCommands
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := newTestStore(t)
	events := &Dispatcher{}
	return &fixture{
		store:       s,
		users:       &UserCommands{Store: s, Hasher: plainHasher{}, Events: events},
		roles:       &RoleCommands{Store: s, Events: events},
		grants:      &RolePermissionCommands{Store: s, Events: events},
		permissions: &PermissionCommands{Store: s, Events: events},
		menus:       &MenuCommands{Store: s, Events: events},
	}
}

func (f *fixture) user(t *testing.T, username string) string {
	t.Helper()
	id, err := f.users.CreateWithPassword(context.Background(), username, username+"@example.com", "password-"+username)
	require.NoError(t, err)
	return id
}

func (f *fixture) role(t *testing.T, name string) string {
	t.Helper()
	id, err := f.roles.Create(context.Background(), name, "")
	require.NoError(t, err)
	return id
}

func (f *fixture) permission(t *testing.T, code string) string {
	t.Helper()
	id, err := f.permissions.Create(context.Background(), code, "")
	require.NoError(t, err)
	return id
}

func (f *fixture) getUser(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := f.store.Users().Get(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *fixture) getRole(t *testing.T, id string) *domain.Role {
	t.Helper()
	r, err := f.store.Roles().Get(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (f *fixture) attempts(t *testing.T) int {
	t.Helper()
	n, err := f.store.LoginAttempts().Count(context.Background(), store.All())
	require.NoError(t, err)
	return n
}
