package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("0b8f2a4e-3c1d-4e5f-9a6b-7c8d9e0f1a2b"))
	assert.False(t, IsValidUUID(""))
	assert.False(t, IsValidUUID("0B8F2A4E-3C1D-4E5F-9A6B-7C8D9E0F1A2B"))
	assert.False(t, IsValidUUID("not-a-uuid"))
}

func TestHasIDPrefix(t *testing.T) {
	assert.True(t, HasIDPrefix("unbox_0b8f2a4e-3c1d-4e5f-9a6b-7c8d9e0f1a2b", "unbox_"))
	assert.False(t, HasIDPrefix("0b8f2a4e-3c1d-4e5f-9a6b-7c8d9e0f1a2b", "unbox_"))
	assert.False(t, HasIDPrefix("unbox_", "unbox_"))
}

func TestNormalizePlayerName(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"  alice ", "alice", true},
		{"", "", false},
		{"   ", "", false},
		{strings.Repeat("x", 65), "", false},
		{strings.Repeat("x", 64), strings.Repeat("x", 64), true},
	}
	for _, tc := range tests {
		got, ok := NormalizePlayerName(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
