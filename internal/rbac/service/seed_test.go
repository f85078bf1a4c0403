package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
	"github.com/stretchr/testify/require"
)

func TestSeeder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	seeder := &Seeder{
		Store:         s,
		Hasher:        plainHasher{},
		AdminUsername: "admin",
		AdminEmail:    "admin@example.com",
		AdminPassword: "change me now",
	}

	seeded, err := seeder.Seed(ctx)
	require.NoError(t, err)
	require.True(t, seeded)

	roles, err := (&RoleQueries{Store: s}).List(ctx)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, r := range roles {
		counts[r.Name] = r.PermissionCount
	}
	require.Equal(t, map[string]int{RoleAdmin: 6, RoleManager: 4, RoleUser: 1}, counts)

	auth := &AuthService{Store: s, Hasher: plainHasher{}, Tokens: fixedIssuer{ttl: time.Hour}}
	tok, err := auth.Login(ctx, "admin", "change me now", nil)
	require.NoError(t, err)
	require.Equal(t, []string{RoleAdmin}, tok.Roles)

	menus, err := (&MenuQueries{Store: s}).TreeForRoles(ctx, []string{RoleUser})
	require.NoError(t, err)
	require.Len(t, menus, 2)

	t.Run("runs once", func(t *testing.T) {
		seeded, err := seeder.Seed(ctx)
		require.NoError(t, err)
		require.False(t, seeded)

		n, err := s.Users().Count(ctx, store.All())
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})
}

func TestSeederSkipsWhenAnchorExists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	_, err := (&PermissionCommands{Store: s}).Create(ctx, PermUsersRead, "")
	require.NoError(t, err)

	seeded, err := (&Seeder{Store: s, Hasher: plainHasher{}}).Seed(ctx)
	require.NoError(t, err)
	require.False(t, seeded)
}

func TestSeederRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name    string
		seeder  Seeder
		wantErr error
	}{
		{name: "missing admin", seeder: Seeder{Hasher: plainHasher{}}, wantErr: ErrSeedAdminRequired},
		{name: "weak password", seeder: Seeder{Hasher: plainHasher{}, AdminUsername: "admin", AdminEmail: "admin@example.com", AdminPassword: "short"}, wantErr: domain.ErrValidation},
		{name: "invalid email", seeder: Seeder{Hasher: plainHasher{}, AdminUsername: "admin", AdminEmail: "admin", AdminPassword: "long enough"}, wantErr: domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			tt.seeder.Store = s

			_, err := tt.seeder.Seed(ctx)
			require.ErrorIs(t, err, tt.wantErr)

			n, err := s.Permissions().Count(ctx, store.All())
			require.NoError(t, err)
			require.Zero(t, n)
		})
	}
}
