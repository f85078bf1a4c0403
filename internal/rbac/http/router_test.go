package http

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/aussiebroadwan/warden/internal/rbac/store"
	"github.com/aussiebroadwan/warden/pkg/idx"
	"github.com/aussiebroadwan/warden/pkg/rbacsdk"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/auth/login", "", rbacsdk.LoginRequest{Username: "admin", Password: testAdminPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[rbacsdk.LoginResponse](t, rec)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, "admin", resp.Username)
	require.Equal(t, []string{"Admin"}, resp.Roles)
	require.Positive(t, resp.ExpiresIn)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	tests := []struct {
		name string
		body any
		code int
		err  string
	}{
		{"wrong password", rbacsdk.LoginRequest{Username: "admin", Password: "nope"}, http.StatusUnauthorized, "invalid_credentials"},
		{"unknown user", rbacsdk.LoginRequest{Username: "ghost", Password: "whatever"}, http.StatusUnauthorized, "invalid_credentials"},
		{"missing password", rbacsdk.LoginRequest{Username: "admin"}, http.StatusUnauthorized, "invalid_credentials"},
		{"missing username", rbacsdk.LoginRequest{Password: testAdminPassword}, http.StatusUnauthorized, "invalid_credentials"},
		{"malformed json", `{"username":`, http.StatusBadRequest, "invalid_request"},
		{"unknown field", `{"username":"admin","password":"x","mfa":"1"}`, http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/v1/auth/login", "", tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			require.Equal(t, tt.err, errorCode(t, rec))
		})
	}
}

func TestLoginBlankFieldsAreRecorded(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	before, err := s.store.LoginAttempts().Count(ctx, store.All())
	require.NoError(t, err)

	for _, body := range []rbacsdk.LoginRequest{{Username: "admin"}, {Password: testAdminPassword}, {}} {
		rec := s.do(t, http.MethodPost, "/v1/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	}

	after, err := s.store.LoginAttempts().Count(ctx, store.All())
	require.NoError(t, err)
	require.Equal(t, before+3, after)

	failed, err := s.store.LoginAttempts().Count(ctx, store.Where(store.FieldUsername, store.Eq, "admin"))
	require.NoError(t, err)
	require.Equal(t, 1, failed)
}

func TestAccount(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", testAdminPassword)

	rec := s.do(t, http.MethodGet, "/v1/account", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	acct := decode[rbacsdk.AccountResponse](t, rec)
	require.Equal(t, "admin", acct.Username)
	require.Equal(t, []string{"Admin"}, acct.Roles)
	require.Len(t, acct.Permissions, 6)

	rec = s.do(t, http.MethodGet, "/v1/account/menus", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	menus := decode[rbacsdk.MenuTreeResponse](t, rec).Menus
	require.Len(t, menus, 2)
	require.Equal(t, "Home", menus[0].Title)
	require.Equal(t, "User Management", menus[1].Title)

	t.Run("update email", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/v1/account/email", admin, rbacsdk.UpdateEmailRequest{Email: "root@example.com"})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = s.do(t, http.MethodGet, "/v1/account", admin, nil)
		require.Equal(t, "root@example.com", decode[rbacsdk.AccountResponse](t, rec).Email)
	})

	t.Run("change password", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/v1/account/password", admin, rbacsdk.ChangePasswordRequest{
			CurrentPassword: "wrong-password",
			NewPassword:     "another-password",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_credentials", errorCode(t, rec))

		rec = s.do(t, http.MethodPut, "/v1/account/password", admin, rbacsdk.ChangePasswordRequest{
			CurrentPassword: testAdminPassword,
			NewPassword:     "another-password",
		})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		s.login(t, "admin", "another-password")
	})
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", testAdminPassword)

	s.createUser(t, admin, "mia", "mia-password", "Manager")
	s.createUser(t, admin, "ula", "ula-password", "User")
	manager := s.login(t, "mia", "mia-password")
	user := s.login(t, "ula", "ula-password")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		code   int
	}{
		{"anonymous read", http.MethodGet, "/v1/users", "", nil, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/v1/users", "not-a-jwt", nil, http.StatusUnauthorized},
		{"user read", http.MethodGet, "/v1/users", user, nil, http.StatusForbidden},
		{"manager read", http.MethodGet, "/v1/users", manager, nil, http.StatusOK},
		{"manager roles", http.MethodGet, "/v1/roles", manager, nil, http.StatusOK},
		{"manager write", http.MethodPost, "/v1/roles", manager, rbacsdk.RoleRequest{Name: "Auditor"}, http.StatusForbidden},
		{"admin write", http.MethodPost, "/v1/roles", admin, rbacsdk.RoleRequest{Name: "Auditor"}, http.StatusCreated},
		{"user own account", http.MethodGet, "/v1/account", user, nil, http.StatusOK},
		{"user login attempts", http.MethodGet, "/v1/login-attempts?username=ula", user, nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.token, tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestUsersEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", testAdminPassword)

	id := s.createUser(t, admin, "Bob", "bob-password", "Manager", "User")

	rec := s.do(t, http.MethodGet, "/v1/users/"+id, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u := decode[rbacsdk.UserResponse](t, rec)
	require.Equal(t, "Bob", u.Username)
	require.True(t, u.IsActive)
	require.Len(t, u.Roles, 2)
	require.Equal(t, "Manager", u.Roles[0].Name)

	rec = s.do(t, http.MethodGet, "/v1/users?search=bo&size=5", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[rbacsdk.ListUsersResponse](t, rec)
	require.Equal(t, 1, list.TotalCount)
	require.Equal(t, 5, list.PageSize)
	require.Equal(t, []string{"Manager", "User"}, list.Users[0].Roles)

	t.Run("duplicate username", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/users", admin, rbacsdk.CreateUserRequest{Username: "bob", Email: "other@example.com"})
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "duplicate", errorCode(t, rec))
	})

	t.Run("invalid email", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/users", admin, rbacsdk.CreateUserRequest{Username: "carl", Email: "carl"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "validation_failed", errorCode(t, rec))
		require.Equal(t, map[string]string{"email": "email is invalid"}, decode[rbacsdk.ErrorResponse](t, rec).Details)
	})

	t.Run("padded fields are trimmed", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/users", admin, rbacsdk.CreateUserRequest{Username: "  carol ", Email: " carol@example.com "})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		created := decode[rbacsdk.CreatedResponse](t, rec)

		rec = s.do(t, http.MethodGet, "/v1/users/"+created.ID, admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		u := decode[rbacsdk.UserResponse](t, rec)
		require.Equal(t, "carol", u.Username)
		require.Equal(t, "carol@example.com", u.Email)
	})

	t.Run("overlong username", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/v1/users/"+id, admin, rbacsdk.UpdateUserRequest{Username: strings.Repeat("b", 51), Email: "bob@example.com"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "validation_failed", errorCode(t, rec))
		require.Contains(t, decode[rbacsdk.ErrorResponse](t, rec).Details, "username")
	})

	t.Run("domain validation", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/v1/users/"+id, admin, rbacsdk.UpdateUserRequest{Username: "   ", Email: "bob@example.com"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "validation_failed", errorCode(t, rec))
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/users/"+idx.New().String(), admin, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "not_found", errorCode(t, rec))
	})

	t.Run("unknown role", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/users/"+id+"/roles", admin, rbacsdk.AssignRolesRequest{
			RoleIDs: []string{idx.New().String(), idx.New().String()},
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("remove role", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, "/v1/users/"+id+"/roles/"+s.roleID(t, admin, "User"), admin, nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = s.do(t, http.MethodGet, "/v1/users/"+id, admin, nil)
		require.Len(t, decode[rbacsdk.UserResponse](t, rec).Roles, 1)
	})

	t.Run("set password", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/v1/users/"+id+"/password", admin, rbacsdk.SetPasswordRequest{Password: "short"})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = s.do(t, http.MethodPut, "/v1/users/"+id+"/password", admin, rbacsdk.SetPasswordRequest{Password: "bob-new-password"})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		s.login(t, "bob", "bob-new-password")
	})
}

func TestDeactivationRevokesTokens(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", testAdminPassword)

	id := s.createUser(t, admin, "dora", "dora-password", "Manager")
	dora := s.login(t, "dora", "dora-password")

	rec := s.do(t, http.MethodGet, "/v1/users", dora, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/users/"+id+"/deactivate", admin, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/users", dora, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", rbacsdk.LoginRequest{Username: "dora", Password: "dora-password"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/users/"+id, admin, nil)
	require.False(t, decode[rbacsdk.UserResponse](t, rec).IsActive)
}

func TestRolesEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", testAdminPassword)

	rec := s.do(t, http.MethodPost, "/v1/roles", admin, rbacsdk.RoleRequest{Name: "Auditor", Description: "Reads logs"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	roleID := decode[rbacsdk.CreatedResponse](t, rec).ID
	permID := s.permissionID(t, admin, "users.read")

	rec = s.do(t, http.MethodPost, "/v1/roles", admin, rbacsdk.RoleRequest{Name: "auditor"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "duplicate", errorCode(t, rec))

	// Granting twice is idempotent
	for range 2 {
		rec = s.do(t, http.MethodPost, "/v1/roles/"+roleID+"/permissions/"+permID, admin, nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/v1/roles/"+roleID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[rbacsdk.RoleResponse](t, rec)
	require.Len(t, detail.Assigned, 1)
	require.Equal(t, "users.read", detail.Assigned[0].Code)
	require.Len(t, detail.Available, 5)

	rec = s.do(t, http.MethodDelete, "/v1/roles/"+roleID, admin, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "rule_violation", errorCode(t, rec))

	rec = s.do(t, http.MethodPut, "/v1/roles/"+roleID+"/permissions", admin, rbacsdk.ReplacePermissionsRequest{PermissionIDs: []string{}})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/roles", admin, nil)
	for _, r := range decode[rbacsdk.ListRolesResponse](t, rec).Roles {
		switch r.Name {
		case "Auditor":
			require.True(t, r.CanDelete)
			require.Zero(t, r.PermissionCount)
		case "Admin":
			require.False(t, r.CanDelete)
			require.Equal(t, 1, r.UserCount)
		}
	}

	rec = s.do(t, http.MethodDelete, "/v1/roles/"+roleID, admin, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/roles/"+roleID, admin, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	t.Run("in use", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, "/v1/roles/"+s.roleID(t, admin, "Admin"), admin, nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Contains(t, decode[rbacsdk.ErrorResponse](t, rec).ErrorDescription, "Admin")
	})
}

func TestPermissionsEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", testAdminPassword)

	rec := s.do(t, http.MethodPost, "/v1/permissions", admin, rbacsdk.PermissionRequest{Code: "reports.read"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[rbacsdk.CreatedResponse](t, rec).ID

	rec = s.do(t, http.MethodPut, "/v1/permissions/"+id, admin, rbacsdk.PermissionRequest{Code: "users.read"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPut, "/v1/permissions/"+id, admin, rbacsdk.PermissionRequest{Code: "reports.view", Description: "View reports"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/permissions", admin, nil)
	perms := decode[rbacsdk.ListPermissionsResponse](t, rec).Permissions
	require.Len(t, perms, 7)
	require.Equal(t, "permissions.read", perms[0].Code)
}

func TestMenusEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", testAdminPassword)

	rec := s.do(t, http.MethodGet, "/v1/menus", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	roots := decode[rbacsdk.MenuTreeResponse](t, rec).Menus
	require.Len(t, roots, 2)
	home := roots[0].ID

	rec = s.do(t, http.MethodPost, "/v1/menus", admin, rbacsdk.MenuRequest{
		Title: "Reports", URL: "/reports", Order: 1, IsVisible: true, ParentID: home,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	child := decode[rbacsdk.CreatedResponse](t, rec).ID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
	}{
		{"self parent", http.MethodPut, "/v1/menus/" + home + "/parent", rbacsdk.MenuParentRequest{ParentID: home}, http.StatusConflict},
		{"cycle", http.MethodPut, "/v1/menus/" + home + "/parent", rbacsdk.MenuParentRequest{ParentID: child}, http.StatusConflict},
		{"delete with children", http.MethodDelete, "/v1/menus/" + home, nil, http.StatusConflict},
		{"negative order", http.MethodPut, "/v1/menus/" + child + "/order", rbacsdk.MenuOrderRequest{Order: -1}, http.StatusBadRequest},
		{"unknown parent", http.MethodPost, "/v1/menus", rbacsdk.MenuRequest{Title: "X", ParentID: idx.New().String()}, http.StatusNotFound},
		{"hide", http.MethodPut, "/v1/menus/" + child + "/visibility", rbacsdk.MenuVisibilityRequest{IsVisible: false}, http.StatusNoContent},
		{"move to root", http.MethodPut, "/v1/menus/" + child + "/parent", rbacsdk.MenuParentRequest{}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, admin, tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	// Hidden menus stay in the admin tree but not in the account tree
	rec = s.do(t, http.MethodGet, "/v1/menus", admin, nil)
	require.Len(t, decode[rbacsdk.MenuTreeResponse](t, rec).Menus, 3)
	rec = s.do(t, http.MethodGet, "/v1/account/menus", admin, nil)
	require.Len(t, decode[rbacsdk.MenuTreeResponse](t, rec).Menus, 2)

	rec = s.do(t, http.MethodDelete, "/v1/menus/"+child, admin, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
}

func TestLoginAttemptsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/auth/login", "", rbacsdk.LoginRequest{Username: "admin", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	admin := s.login(t, "admin", testAdminPassword)

	rec = s.do(t, http.MethodGet, "/v1/login-attempts?username=admin", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[rbacsdk.ListLoginAttemptsResponse](t, rec)
	require.Equal(t, 2, page.TotalCount)
	require.Equal(t, 10, page.PageSize)
	require.Len(t, page.Attempts, 2)

	var successes int
	for _, a := range page.Attempts {
		if a.IsSuccessful {
			successes++
		}
	}
	require.Equal(t, 1, successes)

	rec = s.do(t, http.MethodGet, "/v1/login-attempts?username=", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[rbacsdk.ListLoginAttemptsResponse](t, rec)
	require.Zero(t, page.TotalCount)
	require.Empty(t, page.Attempts)
}

func TestSystemEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", decode[rbacsdk.HealthResponse](t, rec).Version)

	rec = s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	health := decode[rbacsdk.HealthResponse](t, rec)
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "ok", health.Checks.Signer)

	rec = s.do(t, http.MethodGet, "/.well-known/jwks.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[rbacsdk.JWKSResponse](t, rec).Keys, 1)

	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestReadyzDegraded(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.Close())

	rec := s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "degraded", decode[rbacsdk.HealthResponse](t, rec).Status)
}
