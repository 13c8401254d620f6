package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeadersMiddleware sets browser hardening headers. Overlay pages
// are loaded by streaming software that may frame them, so framing can be
// allowed per route group.
type SecurityHeadersMiddleware struct {
	isProduction bool
	allowFraming bool
}

func NewSecurityHeadersMiddleware(isProduction, allowFraming bool) *SecurityHeadersMiddleware {
	return &SecurityHeadersMiddleware{isProduction: isProduction, allowFraming: allowFraming}
}

func (m *SecurityHeadersMiddleware) Handler(next http.Handler) http.Handler {
	csp := m.contentSecurityPolicy()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if !m.allowFraming {
			w.Header().Set("X-Frame-Options", "DENY")
		}

		if m.isProduction {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		w.Header().Set("Content-Security-Policy", csp)
		next.ServeHTTP(w, r)
	})
}

func (m *SecurityHeadersMiddleware) contentSecurityPolicy() string {
	frameAncestors := "'none'"
	if m.allowFraming {
		frameAncestors = "*"
	}

	directives := []string{
		"default-src 'self'",
		"script-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"media-src 'self'",
		"font-src 'self'",
		"connect-src 'self' ws: wss:",
		"frame-ancestors " + frameAncestors,
		"base-uri 'self'",
	}
	return strings.Join(directives, "; ")
}
