package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminAuthenticator(t *testing.T) {
	t.Run("plaintext secret", func(t *testing.T) {
		a := NewAdminAuthenticator("super-secret-value", "")
		assert.True(t, a.Configured())
		assert.True(t, a.Verify("super-secret-value"))
		assert.False(t, a.Verify("super-secret-valu"))
		assert.False(t, a.Verify(""))
	})

	t.Run("bcrypt hash wins over plaintext", func(t *testing.T) {
		hash, err := bcrypt.GenerateFromPassword([]byte("hashed-secret"), bcrypt.MinCost)
		require.NoError(t, err)

		a := NewAdminAuthenticator("plain-secret", string(hash))
		assert.True(t, a.Verify("hashed-secret"))
		assert.False(t, a.Verify("plain-secret"))
	})

	t.Run("unconfigured rejects everything", func(t *testing.T) {
		a := NewAdminAuthenticator("", "")
		assert.False(t, a.Configured())
		assert.False(t, a.Verify("anything"))
	})
}
