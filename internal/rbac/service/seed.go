package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
	"github.com/aussiebroadwan/warden/pkg/slogx"
)

const (
	PermUsersRead        = "users.read"
	PermUsersWrite       = "users.write"
	PermRolesRead        = "roles.read"
	PermRolesWrite       = "roles.write"
	PermPermissionsRead  = "permissions.read"
	PermPermissionsWrite = "permissions.write"

	RoleAdmin   = "Admin"
	RoleManager = "Manager"
	RoleUser    = "User"
)

var ErrSeedAdminRequired = errors.New("seeding requires an admin username, email and password")

type seedRole struct {
	name, description string
	permissions       []string
}

var seedRoles = []seedRole{
	{RoleAdmin, "System administrator", []string{
		PermUsersRead, PermUsersWrite, PermRolesRead, PermRolesWrite, PermPermissionsRead, PermPermissionsWrite,
	}},
	{RoleManager, "Management role", []string{PermUsersRead, PermUsersWrite, PermRolesRead, PermPermissionsRead}},
	{RoleUser, "Standard user role", []string{PermUsersRead}},
}

var seedMenus = []struct {
	in         domain.MenuInput
	permission string
}{
	{domain.MenuInput{Title: "Home", URL: "/", Description: "Home", Icon: "home", Order: 1, IsVisible: true}, ""},
	{domain.MenuInput{Title: "User Management", URL: "/users", Description: "User Management", Icon: "users", Order: 2, IsVisible: true}, PermUsersRead},
}

// Seeder creates the initial permissions, roles, admin account and menus
// of an empty database.
type Seeder struct {
	Store  store.Store
	Hasher PasswordHasher

	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Seed writes the initial data in one transaction. It does nothing when the
// Admin role or the users.read permission already exists, so it is safe to
// run on every start. It reports whether anything was written.
func (s *Seeder) Seed(ctx context.Context) (bool, error) {
	l := slogx.FromContext(ctx)

	// 1. Skip seeded databases
	seeded, err := s.seeded(ctx)
	if err != nil {
		return false, err
	}
	if seeded {
		l.Debug("seed data present, skipping")
		return false, nil
	}

	// 2. Build the admin account outside the transaction
	if s.AdminUsername == "" || s.AdminEmail == "" || s.AdminPassword == "" {
		return false, ErrSeedAdminRequired
	}
	if err := domain.ValidatePassword(s.AdminPassword); err != nil {
		return false, fmt.Errorf("admin password: %w", err)
	}
	admin, err := domain.NewUser(s.AdminUsername, s.AdminEmail)
	if err != nil {
		return false, fmt.Errorf("admin user: %w", err)
	}
	hash, err := s.Hasher.Hash(s.AdminPassword)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	// 3. Permissions, roles, admin user, credential and menus together
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		perms := make(map[string]*domain.Permission)
		for _, r := range seedRoles {
			for _, code := range r.permissions {
				if _, ok := perms[code]; ok {
					continue
				}
				p, err := domain.NewPermission(code, "Permission for "+code)
				if err != nil {
					return err
				}
				if _, err := tx.Permissions().Add(ctx, p); err != nil {
					return fmt.Errorf("add permission %q: %w", code, err)
				}
				perms[code] = p
			}
		}

		var adminRole *domain.Role
		for _, def := range seedRoles {
			r, err := domain.NewRole(def.name, def.description)
			if err != nil {
				return err
			}
			for _, code := range def.permissions {
				r.Grant(perms[code])
			}
			if _, err := tx.Roles().Add(ctx, r); err != nil {
				return fmt.Errorf("add role %q: %w", def.name, err)
			}
			if def.name == RoleAdmin {
				adminRole = r
			}
		}

		admin.AssignRole(adminRole)
		if _, err := tx.Users().Add(ctx, admin); err != nil {
			return fmt.Errorf("add admin user: %w", err)
		}
		if err := tx.Credentials().Set(ctx, domain.Credential{
			UserID:       admin.ID,
			PasswordHash: hash,
			UpdatedAt:    time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("set admin credential: %w", err)
		}

		return seedMenuTree(ctx, tx, perms)
	})
	if err != nil {
		l.Error("seeding failed", slog.Any("error", err))
		return false, err
	}

	l.Info("seeded initial data",
		slog.String("admin_user_id", admin.ID),
		slog.Int("roles", len(seedRoles)),
		slog.Int("menus", len(seedMenus)),
	)
	return true, nil
}

func (s *Seeder) seeded(ctx context.Context) (bool, error) {
	hasAdmin, err := s.Store.Roles().Any(ctx, store.Where(store.FieldName, store.Eq, RoleAdmin))
	if err != nil {
		return false, err
	}
	if hasAdmin {
		return true, nil
	}
	return s.Store.Permissions().Any(ctx, store.Where(store.FieldCode, store.Eq, PermUsersRead))
}

func seedMenuTree(ctx context.Context, tx store.Tx, perms map[string]*domain.Permission) error {
	for _, sm := range seedMenus {
		in := sm.in
		if sm.permission != "" {
			in.PermissionID = perms[sm.permission].ID
		}
		m, err := domain.NewMenu(in)
		if err != nil {
			return err
		}
		if _, err := tx.Menus().Add(ctx, m); err != nil {
			return fmt.Errorf("add menu %q: %w", in.Title, err)
		}
	}
	return nil
}
