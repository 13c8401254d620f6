package service

import (
	"github.com/coneflip/overlay-server-go/internal/util"
)

// AdminAuthenticator checks the admin secret used by both the WebSocket
// admin_auth command and the admin HTTP API. A bcrypt hash takes precedence
// over a plaintext secret when both are configured.
type AdminAuthenticator struct {
	secret     string
	secretHash string
}

func NewAdminAuthenticator(secret, secretHash string) *AdminAuthenticator {
	return &AdminAuthenticator{secret: secret, secretHash: secretHash}
}

func (a *AdminAuthenticator) Configured() bool {
	return a.secret != "" || a.secretHash != ""
}

func (a *AdminAuthenticator) Verify(candidate string) bool {
	if candidate == "" {
		return false
	}
	if a.secretHash != "" {
		return util.CheckPasswordHash(candidate, a.secretHash)
	}
	if a.secret != "" {
		return util.ConstantTimeEqual(candidate, a.secret)
	}
	return false
}
