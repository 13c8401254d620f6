package middleware

import (
	"net/http"
	"strings"

	"github.com/coneflip/overlay-server-go/internal/audit"
	apperrors "github.com/coneflip/overlay-server-go/internal/errors"
)

// AdminVerifier checks the admin secret.
type AdminVerifier interface {
	Configured() bool
	Verify(secret string) bool
}

// AdminAuthMiddleware guards the admin API with the admin secret sent as a
// bearer token.
type AdminAuthMiddleware struct {
	verifier AdminVerifier
}

func NewAdminAuthMiddleware(verifier AdminVerifier) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{verifier: verifier}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.verifier.Configured() {
			writeError(w, apperrors.AdminNotConfigured())
			return
		}

		secret := extractBearer(r)
		if secret == "" {
			writeError(w, apperrors.Unauthorized("Missing admin secret"))
			return
		}

		if !m.verifier.Verify(secret) {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"path": r.URL.Path},
			})
			writeError(w, apperrors.InvalidAdminSecret())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
