package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
	"github.com/stretchr/testify/require"
)

// barrier holds the first n callers of wait until all n have arrived, so
// every one of them reads before any of them writes. Later callers pass
// straight through.
type barrier struct {
	mu      sync.Mutex
	n       int
	arrived int
	release chan struct{}
}

func newBarrier(n int) *barrier {
	return &barrier{n: n, release: make(chan struct{})}
}

func (b *barrier) wait() {
	b.mu.Lock()
	if b.arrived >= b.n {
		b.mu.Unlock()
		return
	}
	b.arrived++
	if b.arrived == b.n {
		close(b.release)
	}
	b.mu.Unlock()

	select {
	case <-b.release:
	case <-time.After(5 * time.Second):
	}
}

// racingStore reads through the wrapped repositories. Transactions opened
// by a unit of work still use the inner store directly.
type racingStore struct {
	store.Store
	users store.Users
	menus store.Menus
}

func (s *racingStore) Users() store.Users {
	if s.users != nil {
		return s.users
	}
	return s.Store.Users()
}

func (s *racingStore) Menus() store.Menus {
	if s.menus != nil {
		return s.menus
	}
	return s.Store.Menus()
}

type gatedUsers struct {
	store.Users
	gate *barrier
}

func (u gatedUsers) Get(ctx context.Context, id string) (*domain.User, error) {
	v, err := u.Users.Get(ctx, id)
	u.gate.wait()
	return v, err
}

type gatedMenus struct {
	store.Menus
	gate *barrier
}

func (m gatedMenus) Ancestors(ctx context.Context, id string) ([]string, error) {
	ids, err := m.Menus.Ancestors(ctx, id)
	m.gate.wait()
	return ids, err
}

// rivalUniqueness runs rival once, right after the first username check
// passed and before the caller writes.
type rivalUniqueness struct {
	StoreUniqueness
	once  sync.Once
	rival func()
}

func (u *rivalUniqueness) IsUsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error) {
	taken, err := u.StoreUniqueness.IsUsernameTaken(ctx, username, excludeUserID)
	u.once.Do(u.rival)
	return taken, err
}

func runPair(fns ...func() error) []error {
	var wg sync.WaitGroup
	errs := make([]error, len(fns))
	for i, fn := range fns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fn()
		}()
	}
	wg.Wait()
	return errs
}

func TestMenuSetParentCrossedMoves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	a, err := f.menus.Create(ctx, domain.MenuInput{Title: "A", URL: "/a", IsVisible: true}, "")
	require.NoError(t, err)
	b, err := f.menus.Create(ctx, domain.MenuInput{Title: "B", URL: "/b", IsVisible: true}, "")
	require.NoError(t, err)

	racing := &MenuCommands{
		Store: &racingStore{Store: f.store, menus: gatedMenus{Menus: f.store.Menus(), gate: newBarrier(2)}},
	}

	errs := runPair(
		func() error { return racing.SetParent(ctx, a, b) },
		func() error { return racing.SetParent(ctx, b, a) },
	)

	var moved, refused int
	for _, err := range errs {
		switch {
		case err == nil:
			moved++
		case errors.Is(err, domain.ErrMenuCycle):
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, moved)
	require.Equal(t, 1, refused)

	for _, id := range []string{a, b} {
		chain, err := f.store.Menus().Ancestors(ctx, id)
		require.NoError(t, err)
		require.LessOrEqual(t, len(chain), 2)
		require.Equal(t, id, chain[0])
		if len(chain) == 2 {
			require.NotEqual(t, id, chain[1])
		}
	}

	roots, err := f.store.Menus().Count(ctx, store.Where(store.FieldParentID, store.Eq, ""))
	require.NoError(t, err)
	require.Equal(t, 1, roots, "one of the two menus stays at the root")
}

func TestUserAssignRoleInterleaved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	user := f.user(t, "alice")
	role := f.role(t, "Manager")

	racing := &UserCommands{
		Store:  &racingStore{Store: f.store, users: gatedUsers{Users: f.store.Users(), gate: newBarrier(2)}},
		Hasher: plainHasher{},
	}

	errs := runPair(
		func() error { return racing.AssignRole(ctx, user, role) },
		func() error { return racing.AssignRole(ctx, user, role) },
	)
	for _, err := range errs {
		require.NoError(t, err)
	}

	n, err := f.store.Users().CountWithRole(ctx, role)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Len(t, f.getUser(t, user).Roles, 1)
}

func TestUserUpdateRivalRename(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	alice := f.user(t, "alice")
	bobby := f.user(t, "bobby")

	uniq := &rivalUniqueness{StoreUniqueness: StoreUniqueness{Store: f.store}}
	uniq.rival = func() {
		require.NoError(t, f.users.Update(ctx, bobby, "carol", "bobby@example.com"))
	}
	racing := &UserCommands{Store: f.store, Hasher: plainHasher{}, Uniqueness: uniq}

	err := racing.Update(ctx, alice, "carol", "alice@example.com")
	require.ErrorIs(t, err, ErrUsernameTaken)

	require.Equal(t, "alice", f.getUser(t, alice).Username.String())
	require.Equal(t, "carol", f.getUser(t, bobby).Username.String())
}
