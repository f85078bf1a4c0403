package httpx

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecureHeaders sets the usual hardening headers on every response. The API
// serves JSON and the swagger UI only, so the CSP stays tight apart from the
// inline bits swagger needs. isDevelopment disables HSTS and SSL redirects.
func SecureHeaders(isDevelopment bool) Middleware {
	s := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'",
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         isDevelopment,
	})
	return func(next http.Handler) http.Handler {
		return s.Handler(next)
	}
}
