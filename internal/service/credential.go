package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coneflip/overlay-server-go/internal/clock"
	apperrors "github.com/coneflip/overlay-server-go/internal/errors"
	"github.com/coneflip/overlay-server-go/internal/model"
	"github.com/coneflip/overlay-server-go/internal/repository"
	"github.com/coneflip/overlay-server-go/internal/util"
)

// RevokeHook is called with each token removed from the active set. Hooks
// run after the store's lock is released.
type RevokeHook func(token string)

// CredentialStore owns the shared access credential. Exactly one token is
// active after Initialize; Regenerate swaps it for a fresh one.
type CredentialStore struct {
	repo  repository.CredentialRepository
	clock clock.Clock

	regenMu sync.Mutex

	mu          sync.Mutex
	active      []*model.Credential
	hooks       []RevokeHook
	initialized bool
}

func NewCredentialStore(repo repository.CredentialRepository, c clock.Clock) *CredentialStore {
	return &CredentialStore{repo: repo, clock: c}
}

// OnRevoke registers a hook invoked for every revoked token.
func (s *CredentialStore) OnRevoke(hook RevokeHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

func (s *CredentialStore) Generate() (string, error) {
	return util.GenerateToken()
}

// Initialize loads the persisted credential or creates one. A missing,
// unreadable or outdated record is replaced. Calling it again is a no-op.
func (s *CredentialStore) Initialize(ctx context.Context) error {
	s.regenMu.Lock()
	defer s.regenMu.Unlock()

	s.mu.Lock()
	done := s.initialized
	s.mu.Unlock()
	if done {
		return nil
	}

	record, err := s.repo.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("credential record unreadable, generating a new one")
		record = nil
	}
	if record != nil && (record.Version != model.CredentialVersion || record.Token == "") {
		log.Warn().Int("version", record.Version).Msg("credential record outdated, generating a new one")
		record = nil
	}

	if record == nil {
		fresh, err := s.newRecord()
		if err != nil {
			return err
		}
		if err := s.repo.Save(ctx, fresh); err != nil {
			// The token still works for this process; it just won't survive a restart.
			log.Error().Err(err).Msg("failed to persist new credential")
		}
		record = &fresh
		log.Info().Str("fingerprint", util.TokenFingerprint(fresh.Token)).Msg("generated access credential")
	} else {
		log.Info().Str("fingerprint", util.TokenFingerprint(record.Token)).Msg("loaded access credential")
	}

	s.mu.Lock()
	s.active = []*model.Credential{credentialFromRecord(*record)}
	s.initialized = true
	s.mu.Unlock()
	return nil
}

// Validate reports whether token is active.
func (s *CredentialStore) Validate(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(token) != nil
}

// Revoke removes token from the active set and runs revoke hooks. Returns
// false if the token was not active.
func (s *CredentialStore) Revoke(token string) bool {
	s.mu.Lock()
	idx := s.indexOf(token)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.active = append(s.active[:idx], s.active[idx+1:]...)
	hooks := s.hooks
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(token)
	}
	return true
}

// Regenerate persists a new credential, then revokes every previously
// active one. If persisting fails the old credential stays active.
func (s *CredentialStore) Regenerate(ctx context.Context) (string, error) {
	s.regenMu.Lock()
	defer s.regenMu.Unlock()

	fresh, err := s.newRecord()
	if err != nil {
		return "", err
	}
	if err := s.repo.Save(ctx, fresh); err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to persist credential", err)
	}

	s.mu.Lock()
	revoked := make([]string, 0, len(s.active))
	for _, c := range s.active {
		revoked = append(revoked, c.Token)
	}
	s.active = []*model.Credential{credentialFromRecord(fresh)}
	s.initialized = true
	hooks := s.hooks
	s.mu.Unlock()

	for _, token := range revoked {
		for _, hook := range hooks {
			hook(token)
		}
	}

	log.Info().
		Str("fingerprint", util.TokenFingerprint(fresh.Token)).
		Int("revoked", len(revoked)).
		Msg("access credential regenerated")
	return fresh.Token, nil
}

// Update runs fn on the active credential matching token while holding the
// store lock. Returns InvalidCredential if token is not active.
func (s *CredentialStore) Update(token string, fn func(c *model.Credential) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.find(token)
	if c == nil {
		return apperrors.InvalidCredential()
	}
	return fn(c)
}

// Current returns a copy of the newest active credential.
func (s *CredentialStore) Current() (model.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.active) == 0 {
		return model.Credential{}, false
	}
	return *s.active[len(s.active)-1], true
}

// Status describes the current credential for the admin view. The token is
// returned in full; callers mask it where needed.
func (s *CredentialStore) Status() (model.TokenStatus, bool) {
	c, ok := s.Current()
	if !ok {
		return model.TokenStatus{}, false
	}

	status := model.TokenStatus{
		Token: c.Token,
		InUse: c.InUse(),
		Info: model.TokenStatusInfo{
			BoundIP:      c.BoundIP,
			ConnectionID: c.LiveConnectionID,
			Client:       c.Client,
			CreatedAt:    c.CreatedAt,
		},
	}
	if !c.LastActivity.IsZero() {
		last := c.LastActivity
		status.Info.LastActivity = &last
	}
	return status, true
}

func (s *CredentialStore) newRecord() (model.CredentialRecord, error) {
	token, err := s.Generate()
	if err != nil {
		return model.CredentialRecord{}, apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to generate credential", err)
	}
	return model.CredentialRecord{
		Token:     token,
		CreatedAt: s.clock.Now().UTC(),
		Version:   model.CredentialVersion,
	}, nil
}

// find must be called with s.mu held.
func (s *CredentialStore) find(token string) *model.Credential {
	if idx := s.indexOf(token); idx >= 0 {
		return s.active[idx]
	}
	return nil
}

func (s *CredentialStore) indexOf(token string) int {
	if token == "" {
		return -1
	}
	idx := -1
	for i, c := range s.active {
		if util.ConstantTimeEqual(c.Token, token) {
			idx = i
		}
	}
	return idx
}

func credentialFromRecord(r model.CredentialRecord) *model.Credential {
	return &model.Credential{
		Token:     r.Token,
		CreatedAt: r.CreatedAt,
		Version:   r.Version,
	}
}
