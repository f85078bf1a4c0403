package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/warden/pkg/cryptox"
	"github.com/aussiebroadwan/warden/pkg/httpx"
	"github.com/aussiebroadwan/warden/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "warden-test"
	testAudience = "console"
)

func newVerifierAndToken(t *testing.T, roles ...string) (jwtx.Verifier, string) {
	t.Helper()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("k1", pemKey)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	claims := jwtx.NewAccessClaims("01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", "alice", "alice@example.com",
		roles, time.Minute, testIssuer, []string{testAudience}, time.Now())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	return jwtx.NewCommonEdDSA(keys, testIssuer, []string{testAudience}), token
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mark("first"), mark("second"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestAuthnMiddleware(t *testing.T) {
	verifier, token := newVerifierAndToken(t, "Admin")

	var gotUser string
	var gotClaims jwtx.Claims
	h := httpx.AuthnMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = httpx.UserIDFromContext(r.Context())
		gotClaims, _ = httpx.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "Valid", header: "Bearer " + token, want: http.StatusNoContent},
		{name: "Missing", header: "", want: http.StatusUnauthorized},
		{name: "WrongScheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "Garbage", header: "Bearer not.a.token", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
			}
		})
	}

	require.Equal(t, "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", gotUser)
	require.Equal(t, "alice", gotClaims.Username)
	require.Equal(t, []string{"Admin"}, gotClaims.Roles)
}

func TestRequireAnyRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{name: "Admin", roles: []string{"Admin"}, want: http.StatusOK},
		{name: "Manager", roles: []string{"User", "Manager"}, want: http.StatusOK},
		{name: "UserOnly", roles: []string{"User"}, want: http.StatusForbidden},
		{name: "NoRoles", roles: nil, want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier, token := newVerifierAndToken(t, tt.roles...)
			h := httpx.Chain(okHandler(),
				httpx.AuthnMiddleware(verifier),
				httpx.RequireAnyRole("Admin", "Manager"),
			)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestSecureHeaders(t *testing.T) {
	h := httpx.SecureHeaders(true)(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestClientFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	req.Header.Set("User-Agent", strings.Repeat("a", 600))

	c := httpx.ClientFromRequest(req)
	require.Equal(t, "203.0.113.9", c.RemoteIP())
	require.Len(t, c.UserAgent(), 512)
}

type createThing struct {
	Name  string   `json:"name" validate:"required,min=2,max=10"`
	Email string   `json:"email" validate:"omitempty,email"`
	Order int      `json:"order" validate:"gte=0"`
	IDs   []string `json:"ids" validate:"omitempty,dive,ulid"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantErr     bool
		wantDetails map[string]string
	}{
		{name: "Valid", body: `{"name":"widget","email":"a@b.co","order":1}`},
		{name: "Malformed", body: `{"name":`, wantErr: true},
		{name: "UnknownField", body: `{"name":"widget","colour":"red"}`, wantErr: true},
		{
			name:        "MissingName",
			body:        `{"order":1}`,
			wantErr:     true,
			wantDetails: map[string]string{"name": "is required"},
		},
		{
			name:    "Several",
			body:    `{"name":"x","email":"nope","order":-1}`,
			wantErr: true,
			wantDetails: map[string]string{
				"name":  "must be at least 2 characters",
				"email": "must be a valid email address",
				"order": "must be greater than or equal to 0",
			},
		},
		{
			name:        "BadID",
			body:        `{"name":"widget","ids":["nope"]}`,
			wantErr:     true,
			wantDetails: map[string]string{"ids[0]": "must be a valid identifier"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst createThing
			err := httpx.DecodeJSON(req, &dst)
			if !tt.wantErr {
				require.NoError(t, err)
				require.Equal(t, "widget", dst.Name)
				return
			}
			require.Error(t, err)

			rec := httptest.NewRecorder()
			httpx.WriteRequestError(rec, err)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body httpx.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			require.Equal(t, "invalid_request", body.Error)
			if tt.wantDetails != nil {
				require.Equal(t, tt.wantDetails, body.Details)
			}
		})
	}
}
