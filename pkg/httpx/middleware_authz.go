package httpx

import (
	"net/http"
	"slices"
	"strings"
)

// RequireAnyRole the caller must hold at least one of the provided roles.
// Must run after AuthnMiddleware.
func RequireAnyRole(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, have := range rolesFromCtx(r.Context()) {
				if slices.Contains(required, have) {
					next.ServeHTTP(w, r)
					return
				}
			}

			w.Header().Set("WWW-Authenticate",
				`Bearer error="insufficient_scope", error_description="requires one of: `+strings.Join(required, " ")+`"`)
			WriteError(w, http.StatusForbidden, "forbidden", "Insufficient role for this operation")
		})
	}
}
