package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coneflip/overlay-server-go/internal/model"
)

func sampleRecord() model.CredentialRecord {
	return model.CredentialRecord{
		Token:     strings.Repeat("a1", 32),
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Version:   model.CredentialVersion,
	}
}

func TestFileCredentialRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("returns nil when file is absent", func(t *testing.T) {
		repo := NewFileCredentialRepository(filepath.Join(t.TempDir(), "missing.json"), "")
		record, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("round trips plaintext record", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "token.json")
		repo := NewFileCredentialRepository(path, "")

		require.NoError(t, repo.Save(ctx, sampleRecord()))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), sampleRecord().Token)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		record, err := repo.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, sampleRecord().Token, record.Token)
		assert.True(t, sampleRecord().CreatedAt.Equal(record.CreatedAt))
		assert.Equal(t, model.CredentialVersion, record.Version)
	})

	t.Run("encrypts record at rest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		key := strings.Repeat("0f", 32)
		repo := NewFileCredentialRepository(path, key)

		require.NoError(t, repo.Save(ctx, sampleRecord()))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), sampleRecord().Token)

		record, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, sampleRecord().Token, record.Token)

		_, err = NewFileCredentialRepository(path, "").Load(ctx)
		assert.Error(t, err)
	})

	t.Run("reports unreadable content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		_, err := NewFileCredentialRepository(path, "").Load(ctx)
		assert.Error(t, err)
	})

	t.Run("save overwrites previous record", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		repo := NewFileCredentialRepository(path, "")
		require.NoError(t, repo.Save(ctx, sampleRecord()))

		next := sampleRecord()
		next.Token = strings.Repeat("b2", 32)
		require.NoError(t, repo.Save(ctx, next))

		record, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, next.Token, record.Token)

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestPostgresCredentialRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresCredentialRepository(db.DB)
	ctx := context.Background()

	record, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, record)

	require.NoError(t, repo.Save(ctx, sampleRecord()))

	next := sampleRecord()
	next.Token = strings.Repeat("c3", 32)
	require.NoError(t, repo.Save(ctx, next))

	record, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, next.Token, record.Token)
}
