package service

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coneflip/overlay-server-go/internal/clock"
	apperrors "github.com/coneflip/overlay-server-go/internal/errors"
	"github.com/coneflip/overlay-server-go/internal/model"
	"github.com/coneflip/overlay-server-go/internal/util"
)

// AssociateResult reports what a successful association displaced.
type AssociateResult struct {
	// Evicted is the connection that was the live session before this one,
	// or empty.
	Evicted string
	// FirstBind is true when this call locked the credential to the IP.
	FirstBind bool
}

// SessionBinder ties the shared credential to one client IP and at most one
// live connection. It keeps a reverse index from connection id to token,
// which is the only record of whether a connection is bound.
type SessionBinder struct {
	store *CredentialStore
	clock clock.Clock

	mu     sync.Mutex
	byConn map[string]string
}

func NewSessionBinder(store *CredentialStore, c clock.Clock) *SessionBinder {
	b := &SessionBinder{
		store:  store,
		clock:  c,
		byConn: make(map[string]string),
	}
	store.OnRevoke(b.evictToken)
	return b
}

// Associate binds token to connectionID. The first successful call locks
// the credential to ip; later calls from another ip fail with
// CredentialIPLocked until the credential is regenerated. A new connection
// from the locked ip replaces the previous live connection.
func (b *SessionBinder) Associate(token, connectionID, userAgent, ip string) (AssociateResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var result AssociateResult
	err := b.store.Update(token, func(c *model.Credential) error {
		switch {
		case c.BoundIP == "":
			c.BoundIP = ip
			result.FirstBind = true
		case c.BoundIP != ip:
			return apperrors.CredentialIPLocked()
		}

		if c.LiveConnectionID != "" && c.LiveConnectionID != connectionID {
			result.Evicted = c.LiveConnectionID
		}
		c.LiveConnectionID = connectionID
		c.Client = util.DescribeClient(userAgent)
		c.LastActivity = b.clock.Now()
		return nil
	})
	if err != nil {
		return AssociateResult{}, err
	}

	if result.Evicted != "" {
		delete(b.byConn, result.Evicted)
		log.Info().
			Str("connectionId", connectionID).
			Str("evicted", result.Evicted).
			Msg("live session replaced")
	}
	b.byConn[connectionID] = token
	return result, nil
}

// Disassociate clears the connection's reverse mapping and, if it was the
// live session, the credential's live pointer. The IP lock is kept.
// Returns true if the connection was the live session.
func (b *SessionBinder) Disassociate(connectionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disassociateLocked(connectionID)
}

// DetachConnectionOnly drops the reverse mapping and leaves the credential
// untouched.
func (b *SessionBinder) DetachConnectionOnly(connectionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.byConn, connectionID)
}

// Release is the disconnect path: the live connection is disassociated,
// any other connection is only detached. Returns true if the connection was
// the live session.
func (b *SessionBinder) Release(connectionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isLiveLocked(connectionID) {
		return b.disassociateLocked(connectionID)
	}
	delete(b.byConn, connectionID)
	return false
}

// Touch records activity on the credential bound to connectionID.
func (b *SessionBinder) Touch(connectionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	token, ok := b.byConn[connectionID]
	if !ok {
		return
	}
	_ = b.store.Update(token, func(c *model.Credential) error {
		c.LastActivity = b.clock.Now()
		return nil
	})
}

func (b *SessionBinder) TokenFor(connectionID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	token, ok := b.byConn[connectionID]
	return token, ok
}

func (b *SessionBinder) IsBound(connectionID string) bool {
	_, ok := b.TokenFor(connectionID)
	return ok
}

// IsLive reports whether connectionID is the credential's current live
// session.
func (b *SessionBinder) IsLive(connectionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isLiveLocked(connectionID)
}

func (b *SessionBinder) BoundCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byConn)
}

func (b *SessionBinder) isLiveLocked(connectionID string) bool {
	token, ok := b.byConn[connectionID]
	if !ok {
		return false
	}
	live := false
	_ = b.store.Update(token, func(c *model.Credential) error {
		live = c.LiveConnectionID == connectionID
		return nil
	})
	return live
}

func (b *SessionBinder) disassociateLocked(connectionID string) bool {
	token, ok := b.byConn[connectionID]
	if !ok {
		return false
	}
	delete(b.byConn, connectionID)

	wasLive := false
	_ = b.store.Update(token, func(c *model.Credential) error {
		if c.LiveConnectionID == connectionID {
			c.LiveConnectionID = ""
			wasLive = true
		}
		return nil
	})
	return wasLive
}

// evictToken runs as a revoke hook; every connection bound to the revoked
// token loses its binding.
func (b *SessionBinder) evictToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for connID, bound := range b.byConn {
		if util.ConstantTimeEqual(bound, token) {
			delete(b.byConn, connID)
			log.Info().Str("connectionId", connID).Msg("binding cleared by credential revocation")
		}
	}
}
