package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coneflip/overlay-server-go/internal/clock"
	apperrors "github.com/coneflip/overlay-server-go/internal/errors"
	"github.com/coneflip/overlay-server-go/internal/model"
)

type mockCredentialRepo struct {
	mock.Mock
}

func (m *mockCredentialRepo) Load(ctx context.Context) (*model.CredentialRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CredentialRecord), args.Error(1)
}

func (m *mockCredentialRepo) Save(ctx context.Context, record model.CredentialRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// memCredentialRepo is an in-memory CredentialRepository.
type memCredentialRepo struct {
	mu      sync.Mutex
	record  *model.CredentialRecord
	saveErr error
	saves   int
}

func (r *memCredentialRepo) Load(context.Context) (*model.CredentialRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.record == nil {
		return nil, nil
	}
	rec := *r.record
	return &rec, nil
}

func (r *memCredentialRepo) Save(_ context.Context, record model.CredentialRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.record = &record
	r.saves++
	return nil
}

func newTestStore(t *testing.T) (*CredentialStore, *memCredentialRepo, *clock.FakeClock) {
	t.Helper()
	repo := &memCredentialRepo{}
	fc := clock.Fake(time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC))
	store := NewCredentialStore(repo, fc)
	require.NoError(t, store.Initialize(context.Background()))
	return store, repo, fc
}

func currentToken(t *testing.T, store *CredentialStore) string {
	t.Helper()
	c, ok := store.Current()
	require.True(t, ok)
	return c.Token
}

func TestCredentialStore_Initialize(t *testing.T) {
	ctx := context.Background()

	t.Run("generates and persists when no record exists", func(t *testing.T) {
		store, repo, _ := newTestStore(t)

		c, ok := store.Current()
		require.True(t, ok)
		assert.Len(t, c.Token, 64)
		assert.Empty(t, c.BoundIP)
		assert.False(t, c.InUse())
		require.NotNil(t, repo.record)
		assert.Equal(t, c.Token, repo.record.Token)
		assert.Equal(t, model.CredentialVersion, repo.record.Version)
	})

	t.Run("loads persisted record", func(t *testing.T) {
		existing := &model.CredentialRecord{
			Token:     strings.Repeat("ab", 32),
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Version:   model.CredentialVersion,
		}
		repo := new(mockCredentialRepo)
		repo.On("Load", mock.Anything).Return(existing, nil).Once()

		store := NewCredentialStore(repo, clock.Fake(time.Now()))
		require.NoError(t, store.Initialize(ctx))
		require.NoError(t, store.Initialize(ctx))

		assert.True(t, store.Validate(existing.Token))
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("replaces record with another version", func(t *testing.T) {
		old := &model.CredentialRecord{Token: strings.Repeat("cd", 32), Version: 0}
		repo := new(mockCredentialRepo)
		repo.On("Load", mock.Anything).Return(old, nil)
		repo.On("Save", mock.Anything, mock.MatchedBy(func(r model.CredentialRecord) bool {
			return r.Version == model.CredentialVersion && r.Token != old.Token
		})).Return(nil)

		store := NewCredentialStore(repo, clock.Fake(time.Now()))
		require.NoError(t, store.Initialize(ctx))

		assert.False(t, store.Validate(old.Token))
		repo.AssertExpectations(t)
	})

	t.Run("replaces unreadable record", func(t *testing.T) {
		repo := new(mockCredentialRepo)
		repo.On("Load", mock.Anything).Return(nil, errors.New("corrupt"))
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		store := NewCredentialStore(repo, clock.Fake(time.Now()))
		require.NoError(t, store.Initialize(ctx))

		_, ok := store.Current()
		assert.True(t, ok)
		repo.AssertExpectations(t)
	})

	t.Run("keeps in-memory credential when persist fails", func(t *testing.T) {
		repo := &memCredentialRepo{saveErr: errors.New("disk full")}
		store := NewCredentialStore(repo, clock.Fake(time.Now()))
		require.NoError(t, store.Initialize(ctx))

		assert.True(t, store.Validate(currentToken(t, store)))
	})
}

func TestCredentialStore_Validate(t *testing.T) {
	store, _, _ := newTestStore(t)
	token := currentToken(t, store)

	assert.True(t, store.Validate(token))
	assert.False(t, store.Validate(strings.Repeat("0", 64)))
	assert.False(t, store.Validate(""))
	assert.False(t, store.Validate(token[:63]))
}

func TestCredentialStore_Revoke(t *testing.T) {
	store, _, _ := newTestStore(t)
	token := currentToken(t, store)

	var revoked []string
	store.OnRevoke(func(tok string) { revoked = append(revoked, tok) })

	assert.True(t, store.Revoke(token))
	assert.False(t, store.Validate(token))
	assert.Equal(t, []string{token}, revoked)

	assert.False(t, store.Revoke(token))
	assert.Len(t, revoked, 1)
}

func TestCredentialStore_Regenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("old token stops validating", func(t *testing.T) {
		store, repo, _ := newTestStore(t)
		old := currentToken(t, store)

		var revoked []string
		store.OnRevoke(func(tok string) { revoked = append(revoked, tok) })

		fresh, err := store.Regenerate(ctx)
		require.NoError(t, err)

		assert.NotEqual(t, old, fresh)
		assert.False(t, store.Validate(old))
		assert.True(t, store.Validate(fresh))
		assert.Equal(t, []string{old}, revoked)
		assert.Equal(t, fresh, repo.record.Token)
	})

	t.Run("persist failure keeps old token active", func(t *testing.T) {
		store, repo, _ := newTestStore(t)
		old := currentToken(t, store)
		repo.saveErr = errors.New("read-only filesystem")

		_, err := store.Regenerate(ctx)
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInternal))
		assert.True(t, store.Validate(old))
	})
}

func TestCredentialStore_Update(t *testing.T) {
	store, _, _ := newTestStore(t)
	token := currentToken(t, store)

	err := store.Update(token, func(c *model.Credential) error {
		c.BoundIP = "1.1.1.1"
		return nil
	})
	require.NoError(t, err)

	c, _ := store.Current()
	assert.Equal(t, "1.1.1.1", c.BoundIP)

	err = store.Update("nope", func(*model.Credential) error { return nil })
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidCredential))
}

func TestCredentialStore_Status(t *testing.T) {
	store, _, fc := newTestStore(t)
	token := currentToken(t, store)

	status, ok := store.Status()
	require.True(t, ok)
	assert.Equal(t, token, status.Token)
	assert.False(t, status.InUse)
	assert.Nil(t, status.Info.LastActivity)

	_ = store.Update(token, func(c *model.Credential) error {
		c.LiveConnectionID = "conn-1"
		c.LastActivity = fc.Now()
		return nil
	})

	status, _ = store.Status()
	assert.True(t, status.InUse)
	assert.Equal(t, "conn-1", status.Info.ConnectionID)
	require.NotNil(t, status.Info.LastActivity)
}
