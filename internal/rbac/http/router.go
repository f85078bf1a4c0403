package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/warden/internal/rbac/service"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
	"github.com/aussiebroadwan/warden/pkg/httpx"
	"github.com/aussiebroadwan/warden/pkg/jwtx"
	"github.com/aussiebroadwan/warden/pkg/slogx"

	_ "github.com/aussiebroadwan/warden/api/rbac" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store                  store.Store
	AuthService            *service.AuthService
	AccountService         *service.AccountService
	UserCommands           *service.UserCommands
	RoleCommands           *service.RoleCommands
	RolePermissionCommands *service.RolePermissionCommands
	PermissionCommands     *service.PermissionCommands
	MenuCommands           *service.MenuCommands
	UserQueries            *service.UserQueries
	RoleQueries            *service.RoleQueries
	PermissionQueries      *service.PermissionQueries
	MenuQueries            *service.MenuQueries
	LoginAttemptQueries    *service.LoginAttemptQueries
}

// NewRouter builds a router whose query services read from st. Command
// services are assigned by the caller before ApplyRoutes. When revocations
// is non-nil, tokens of deactivated users stop verifying.
func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	revocations *SessionRevocations,
	buildVersion string,
	isDevelopment bool,
	st store.Store,
	logger *slog.Logger,
) *Router {
	if revocations != nil {
		verifier = revocations.Verifier(verifier)
	}

	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,

		UserQueries:         &service.UserQueries{Store: st},
		RoleQueries:         &service.RoleQueries{Store: st},
		PermissionQueries:   &service.PermissionQueries{Store: st},
		MenuQueries:         &service.MenuQueries{Store: st},
		LoginAttemptQueries: &service.LoginAttemptQueries{Store: st},
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.SecureHeaders(isDevelopment),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAccount()
	r.registerUsers()
	r.registerRoles()
	r.registerPermissions()
	r.registerMenus()
	r.registerLoginAttempts()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Warden RBAC API
//	@version		0.1.0
//	@description	User, role, permission and menu administration with password sign in.
//	@description
//	@description				Access tokens are EdDSA signed JWTs and can be verified using the JWKS endpoint.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/warden
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// reader wraps h for endpoints open to administrators and managers.
func (r *Router) reader(h http.HandlerFunc) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyRole(service.RoleAdmin, service.RoleManager),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)
}

// writer wraps h for endpoints open to administrators only.
func (r *Router) writer(h http.HandlerFunc) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyRole(service.RoleAdmin),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
}

func (r *Router) registerAuth() {
	// POST /login - strict rate limit by IP + username to slow password guessing
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(&LoginHandler{AuthService: r.AuthService},
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username"),
		),
	)

	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerAccount() {
	h := &AccountHandler{
		AccountService:    r.AccountService,
		UserQueries:       r.UserQueries,
		PermissionQueries: r.PermissionQueries,
		MenuQueries:       r.MenuQueries,
	}

	authenticated := func(next http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(limit),
		)
	}

	r.Mux.Handle("GET /v1/account", authenticated(h.HandleGet, httpx.LenientLimit))
	r.Mux.Handle("GET /v1/account/menus", authenticated(h.HandleMenus, httpx.LenientLimit))
	r.Mux.Handle("PUT /v1/account/email", authenticated(h.HandleUpdateEmail, httpx.ModerateLimit))

	// Password changes verify the current password, so they get the strict profile
	r.Mux.Handle("PUT /v1/account/password", authenticated(h.HandleChangePassword, httpx.StrictLimit))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Commands: r.UserCommands, Queries: r.UserQueries}

	r.Mux.Handle("GET /v1/users", r.reader(h.HandleList))
	r.Mux.Handle("POST /v1/users", r.writer(h.HandleCreate))
	r.Mux.Handle("GET /v1/users/{id}", r.reader(h.HandleGet))
	r.Mux.Handle("PUT /v1/users/{id}", r.writer(h.HandleUpdate))
	r.Mux.Handle("POST /v1/users/{id}/activate", r.writer(h.HandleActivate))
	r.Mux.Handle("POST /v1/users/{id}/deactivate", r.writer(h.HandleDeactivate))
	r.Mux.Handle("PUT /v1/users/{id}/password", r.writer(h.HandleSetPassword))
	r.Mux.Handle("POST /v1/users/{id}/roles", r.writer(h.HandleAssignRoles))
	r.Mux.Handle("DELETE /v1/users/{id}/roles/{roleID}", r.writer(h.HandleRemoveRole))
}

func (r *Router) registerRoles() {
	h := &RolesHandler{
		Commands: r.RoleCommands,
		Grants:   r.RolePermissionCommands,
		Queries:  r.RoleQueries,
	}

	r.Mux.Handle("GET /v1/roles", r.reader(h.HandleList))
	r.Mux.Handle("POST /v1/roles", r.writer(h.HandleCreate))
	r.Mux.Handle("GET /v1/roles/{id}", r.reader(h.HandleGet))
	r.Mux.Handle("PUT /v1/roles/{id}", r.writer(h.HandleUpdate))
	r.Mux.Handle("DELETE /v1/roles/{id}", r.writer(h.HandleDelete))
	r.Mux.Handle("PUT /v1/roles/{id}/permissions", r.writer(h.HandleReplacePermissions))
	r.Mux.Handle("POST /v1/roles/{id}/permissions/{permissionID}", r.writer(h.HandleGrant))
	r.Mux.Handle("DELETE /v1/roles/{id}/permissions/{permissionID}", r.writer(h.HandleRevoke))
}

func (r *Router) registerPermissions() {
	h := &PermissionsHandler{Commands: r.PermissionCommands, Queries: r.PermissionQueries}

	r.Mux.Handle("GET /v1/permissions", r.reader(h.HandleList))
	r.Mux.Handle("POST /v1/permissions", r.writer(h.HandleCreate))
	r.Mux.Handle("PUT /v1/permissions/{id}", r.writer(h.HandleUpdate))
}

func (r *Router) registerMenus() {
	h := &MenusHandler{Commands: r.MenuCommands, Queries: r.MenuQueries}

	r.Mux.Handle("GET /v1/menus", r.reader(h.HandleList))
	r.Mux.Handle("POST /v1/menus", r.writer(h.HandleCreate))
	r.Mux.Handle("PUT /v1/menus/{id}", r.writer(h.HandleUpdate))
	r.Mux.Handle("DELETE /v1/menus/{id}", r.writer(h.HandleDelete))
	r.Mux.Handle("PUT /v1/menus/{id}/parent", r.writer(h.HandleSetParent))
	r.Mux.Handle("PUT /v1/menus/{id}/order", r.writer(h.HandleSetOrder))
	r.Mux.Handle("PUT /v1/menus/{id}/visibility", r.writer(h.HandleSetVisibility))
}

func (r *Router) registerLoginAttempts() {
	h := &LoginAttemptsHandler{Queries: r.LoginAttemptQueries}
	r.Mux.Handle("GET /v1/login-attempts", r.reader(h.ServeHTTP))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
