package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/warden/internal/rbac/service"
	"github.com/aussiebroadwan/warden/internal/rbac/store/drivers/sqlite"
	"github.com/aussiebroadwan/warden/pkg/cryptox"
	"github.com/aussiebroadwan/warden/pkg/jwtx"
	"github.com/aussiebroadwan/warden/pkg/rbacsdk"
	"github.com/aussiebroadwan/warden/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer        = "warden-test"
	testAdminPassword = "admin-password"
)

var testAudience = []string{"warden"}

// plainHasher keeps tests fast; argon2 is covered in pkg/cryptox.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Verify(password, hash string) bool { return hash == "plain:"+password }

type testServer struct {
	router *Router
	store  *sqlite.Store
	keys   *jwtx.KeySet
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(sqlite.FileDSN(filepath.Join(t.TempDir(), "warden.db")))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	seeder := &service.Seeder{
		Store:         st,
		Hasher:        plainHasher{},
		AdminUsername: "admin",
		AdminEmail:    "admin@example.com",
		AdminPassword: testAdminPassword,
	}
	_, err = seeder.Seed(ctx)
	require.NoError(t, err)

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("test-key", pemKey)
	require.NoError(t, err)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	revocations := NewSessionRevocations(0)
	events := &service.Dispatcher{Sessions: revocations}

	r := NewRouter(keys, jwtx.NewCommonEdDSA(keys, testIssuer, testAudience), revocations, "test", true, st, slogx.Discard())
	r.AuthService = &service.AuthService{
		Store:  st,
		Hasher: plainHasher{},
		Tokens: service.JWTIssuer{Signer: signer, Issuer: testIssuer, Audience: testAudience},
	}
	r.AccountService = &service.AccountService{Store: st, Hasher: plainHasher{}, Events: events}
	r.UserCommands = &service.UserCommands{Store: st, Hasher: plainHasher{}, Events: events}
	r.RoleCommands = &service.RoleCommands{Store: st, Events: events}
	r.RolePermissionCommands = &service.RolePermissionCommands{Store: st, Events: events}
	r.PermissionCommands = &service.PermissionCommands{Store: st, Events: events}
	r.MenuCommands = &service.MenuCommands{Store: st, Events: events}
	r.ApplyRoutes()

	return &testServer{router: r, store: st, keys: keys}
}

// do sends body as JSON (when non-nil) with an optional bearer token.
func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/auth/login", "", rbacsdk.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[rbacsdk.LoginResponse](t, rec).AccessToken
}

// createUser creates a user with the given password and role names and
// returns its id.
func (s *testServer) createUser(t *testing.T, adminToken, username, password string, roles ...string) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/v1/users", adminToken, rbacsdk.CreateUserRequest{
		Username: username,
		Email:    strings.ToLower(username) + "@example.com",
		Password: password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[rbacsdk.CreatedResponse](t, rec).ID

	if len(roles) > 0 {
		ids := make([]string, len(roles))
		for i, name := range roles {
			ids[i] = s.roleID(t, adminToken, name)
		}
		rec = s.do(t, http.MethodPost, "/v1/users/"+id+"/roles", adminToken, rbacsdk.AssignRolesRequest{RoleIDs: ids})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	}
	return id
}

func (s *testServer) roleID(t *testing.T, token, name string) string {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/v1/roles", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, r := range decode[rbacsdk.ListRolesResponse](t, rec).Roles {
		if r.Name == name {
			return r.ID
		}
	}
	t.Fatalf("role %q not found", name)
	return ""
}

func (s *testServer) permissionID(t *testing.T, token, code string) string {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/v1/permissions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, p := range decode[rbacsdk.ListPermissionsResponse](t, rec).Permissions {
		if p.Code == code {
			return p.ID
		}
	}
	t.Fatalf("permission %q not found", code)
	return ""
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[rbacsdk.ErrorResponse](t, rec).Error
}
