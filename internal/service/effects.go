package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/coneflip/overlay-server-go/internal/errors"
	"github.com/coneflip/overlay-server-go/internal/model"
	"github.com/coneflip/overlay-server-go/internal/scheduler"
)

const (
	DefaultEffectFallback = 30 * time.Second
	DefaultAnnounceDelay  = 2 * time.Second

	announceTimeout = 10 * time.Second
)

// Broadcaster sends an event to every connected client.
type Broadcaster interface {
	Broadcast(eventType string, data any)
}

// Announcer delivers a line of text to the external chat channel. It
// reports false when the message was not delivered.
type Announcer interface {
	SendChatMessage(ctx context.Context, text string) bool
}

// UnboxEvent asks overlays to play the reveal animation. It never carries
// the announcement text.
type UnboxEvent struct {
	Player   string `json:"player"`
	Subject  string `json:"subject"`
	EffectID string `json:"effectId"`
}

type EffectStats struct {
	Pending   int   `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Fallbacks int64 `json:"fallbacks"`
}

// PendingEffectTracker holds announcements back until an overlay confirms
// the paired animation finished, or a fallback timer expires. Removing the
// record under the lock decides which path runs, so each effect is
// announced exactly once.
type PendingEffectTracker struct {
	sched       *scheduler.Scheduler
	broadcaster Broadcaster
	announcer   Announcer

	fallback      time.Duration
	announceDelay time.Duration

	mu      sync.Mutex
	pending map[string]model.PendingEffect
	// confirmed effects waiting out the announce delay
	delayed map[string]model.PendingEffect

	confirmed atomic.Int64
	fallbacks atomic.Int64
}

func NewPendingEffectTracker(
	sched *scheduler.Scheduler,
	broadcaster Broadcaster,
	announcer Announcer,
	fallback time.Duration,
	announceDelay time.Duration,
) *PendingEffectTracker {
	if fallback <= 0 {
		fallback = DefaultEffectFallback
	}
	if announceDelay < 0 {
		announceDelay = DefaultAnnounceDelay
	}
	return &PendingEffectTracker{
		sched:         sched,
		broadcaster:   broadcaster,
		announcer:     announcer,
		fallback:      fallback,
		announceDelay: announceDelay,
		pending:       make(map[string]model.PendingEffect),
		delayed:       make(map[string]model.PendingEffect),
	}
}

// Register stores payload, arms the fallback timer and tells every client to
// start the reveal. Returns the effect id clients echo back on completion.
func (t *PendingEffectTracker) Register(payload model.EffectPayload) string {
	effect := model.PendingEffect{
		ID:        model.EffectIDPrefix + uuid.NewString(),
		Payload:   payload,
		CreatedAt: t.sched.Now(),
	}

	t.mu.Lock()
	t.pending[effect.ID] = effect
	t.mu.Unlock()

	t.sched.Schedule(effect.ID, t.fallback, func() { t.fireFallback(effect.ID) })

	t.broadcaster.Broadcast("unbox", UnboxEvent{
		Player:   payload.Player,
		Subject:  payload.Subject,
		EffectID: effect.ID,
	})

	log.Info().
		Str("effectId", effect.ID).
		Str("player", payload.Player).
		Str("subject", payload.Subject).
		Msg("pending effect registered")
	return effect.ID
}

// Confirm resolves a pending effect after its animation played. The
// announcement follows after a short delay so chat lines up with the
// overlay. Returns false, with no side effect, for unknown or already
// resolved ids.
func (t *PendingEffectTracker) Confirm(effectID string) bool {
	t.mu.Lock()
	effect, ok := t.pending[effectID]
	if ok {
		delete(t.pending, effectID)
		t.delayed[effectID] = effect
	}
	t.mu.Unlock()

	if !ok {
		log.Debug().Err(apperrors.UnknownPendingEffect(effectID)).Msg("confirm ignored")
		return false
	}

	t.sched.Cancel(effectID)
	t.confirmed.Add(1)
	t.sched.Schedule(announceTaskID(effectID), t.announceDelay, func() {
		t.fireDelayed(effectID)
	})
	return true
}

func (t *PendingEffectTracker) fireDelayed(effectID string) {
	t.mu.Lock()
	effect, ok := t.delayed[effectID]
	if ok {
		delete(t.delayed, effectID)
	}
	t.mu.Unlock()

	if ok {
		t.announce(effect, model.EffectConfirmed)
	}
}

// Flush announces every effect still waiting on a timer, confirmed or not,
// and cancels those timers. Called on shutdown before the scheduler stops.
// Returns the number of effects announced.
func (t *PendingEffectTracker) Flush() int {
	t.mu.Lock()
	pending, delayed := t.pending, t.delayed
	t.pending = make(map[string]model.PendingEffect)
	t.delayed = make(map[string]model.PendingEffect)
	t.mu.Unlock()

	for id, effect := range delayed {
		t.sched.Cancel(announceTaskID(id))
		t.announce(effect, model.EffectConfirmed)
	}
	for id, effect := range pending {
		t.sched.Cancel(id)
		t.fallbacks.Add(1)
		t.announce(effect, model.EffectFallback)
	}
	return len(pending) + len(delayed)
}

func (t *PendingEffectTracker) fireFallback(effectID string) {
	t.mu.Lock()
	effect, ok := t.pending[effectID]
	if ok {
		delete(t.pending, effectID)
	}
	t.mu.Unlock()

	if !ok {
		return
	}

	t.fallbacks.Add(1)
	log.Warn().
		Str("effectId", effectID).
		Dur("age", t.sched.Now().Sub(effect.CreatedAt)).
		Msg("no completion received, announcing via fallback")
	t.announce(effect, model.EffectFallback)
}

func (t *PendingEffectTracker) announce(effect model.PendingEffect, how model.EffectResolution) {
	if effect.Payload.Message == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), announceTimeout)
	defer cancel()

	if !t.announcer.SendChatMessage(ctx, effect.Payload.Message) {
		log.Warn().
			Err(apperrors.ChatDeliveryFailed(nil)).
			Str("effectId", effect.ID).
			Str("resolution", string(how)).
			Msg("effect announcement dropped")
		return
	}
	log.Info().
		Str("effectId", effect.ID).
		Str("resolution", string(how)).
		Msg("effect announced")
}

func (t *PendingEffectTracker) IsPending(effectID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[effectID]
	return ok
}

func (t *PendingEffectTracker) Stats() EffectStats {
	t.mu.Lock()
	n := len(t.pending)
	t.mu.Unlock()

	return EffectStats{
		Pending:   n,
		Confirmed: t.confirmed.Load(),
		Fallbacks: t.fallbacks.Load(),
	}
}

func announceTaskID(effectID string) string {
	return "announce:" + effectID
}
