// Package hub coordinates live client connections: sessions, rooms,
// credential binding, admin authentication and gameplay command dispatch.
package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coneflip/overlay-server-go/internal/audit"
	"github.com/coneflip/overlay-server-go/internal/clock"
	"github.com/coneflip/overlay-server-go/internal/config"
	"github.com/coneflip/overlay-server-go/internal/dedup"
	apperrors "github.com/coneflip/overlay-server-go/internal/errors"
	"github.com/coneflip/overlay-server-go/internal/model"
	"github.com/coneflip/overlay-server-go/internal/service"
	"github.com/coneflip/overlay-server-go/internal/util"
)

const (
	announceTimeout = 10 * time.Second
	maxRoomName     = 64
)

// Scorer records gameplay outcomes.
type Scorer interface {
	RecordOutcome(ctx context.Context, player string, kind model.OutcomeKind) (*model.PlayerStats, error)
	RecordDuel(ctx context.Context, winner, loser string) ([]model.PlayerStats, error)
	Leaderboard(ctx context.Context) ([]model.PlayerStats, error)
}

// Effects resolves pending reveal effects.
type Effects interface {
	Confirm(effectID string) bool
	Stats() service.EffectStats
}

type AdminVerifier interface {
	Configured() bool
	Verify(secret string) bool
}

type Deps struct {
	Registry    *Registry
	Credentials *service.CredentialStore
	Binder      *service.SessionBinder
	Effects     Effects
	Dedup       dedup.Store
	Scorer      Scorer
	Announcer   service.Announcer
	Admin       AdminVerifier
	Clock       clock.Clock
}

// Hub owns the per-connection state machine. Each connection's commands
// are dispatched sequentially by its read loop; shared state lives in the
// registry and the injected services, each guarded by its own lock.
type Hub struct {
	registry    *Registry
	credentials *service.CredentialStore
	binder      *service.SessionBinder
	effects     Effects
	dedup       dedup.Store
	scorer      Scorer
	announcer   service.Announcer
	admin       AdminVerifier
	clock       clock.Clock

	announcements sync.WaitGroup
}

func New(d Deps) *Hub {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Registry == nil {
		d.Registry = NewRegistry()
	}
	return &Hub{
		registry:    d.Registry,
		credentials: d.Credentials,
		binder:      d.Binder,
		effects:     d.Effects,
		dedup:       d.Dedup,
		scorer:      d.Scorer,
		announcer:   d.Announcer,
		admin:       d.Admin,
		clock:       d.Clock,
	}
}

// ConnInfo is what the transport knows about a new connection.
type ConnInfo struct {
	IP        string
	UserAgent string
}

type Ack struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Code    apperrors.ErrorCode `json:"code,omitempty"`
}

type ConnectedEvent struct {
	ConnectionID string `json:"connectionId"`
}

type StatsEvent struct {
	Stats model.PlayerStats `json:"stats"`
}

type LeaderboardEvent struct {
	Players []model.PlayerStats `json:"players"`
}

type ShutdownEvent struct {
	Message string `json:"message"`
}

func NewConnectionID() string {
	return uuid.NewString()
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// Connect registers a session for conn and greets it with its id.
func (h *Hub) Connect(conn Conn, info ConnInfo) model.Session {
	now := h.clock.Now()
	session := model.Session{
		ID:          conn.ID(),
		IP:          info.IP,
		Client:      util.DescribeClient(info.UserAgent),
		UserAgent:   info.UserAgent,
		ConnectedAt: now,
		LastSeenAt:  now,
	}
	h.registry.Add(conn, session)
	h.registry.Send(session.ID, "connected", ConnectedEvent{ConnectionID: session.ID})

	log.Info().
		Str("connectionId", session.ID).
		Str("ip", session.IP).
		Str("client", session.Client).
		Msg("client connected")
	return session
}

// Disconnect tears down a connection. If it was the credential's live
// session the admin room gets a fresh status.
func (h *Hub) Disconnect(connectionID string) {
	session, ok := h.registry.Remove(connectionID)
	if !ok {
		return
	}

	wasLive := h.binder.Release(connectionID)
	if wasLive {
		h.broadcastTokenStatus()
	}

	log.Info().
		Str("connectionId", connectionID).
		Str("ip", session.IP).
		Bool("wasLive", wasLive).
		Dur("duration", h.clock.Now().Sub(session.ConnectedAt)).
		Msg("client disconnected")
}

// HandleFrame parses and dispatches one raw inbound frame. Malformed and
// unknown frames are logged and dropped.
func (h *Hub) HandleFrame(ctx context.Context, connectionID string, raw []byte) {
	cmd, err := ParseFrame(raw)
	if err != nil {
		log.Warn().Err(err).Str("connectionId", connectionID).Msg("inbound frame rejected")
		return
	}
	h.Dispatch(ctx, connectionID, cmd)
}

// Dispatch runs one command for a connection.
func (h *Hub) Dispatch(ctx context.Context, connectionID string, cmd Command) {
	session, ok := h.registry.UpdateSession(connectionID, func(s *model.Session) {
		s.LastSeenAt = h.clock.Now()
	})
	if !ok {
		log.Debug().Str("connectionId", connectionID).Str("command", cmd.Name()).Msg("command from unknown connection")
		return
	}

	switch c := cmd.(type) {
	case AssociateToken:
		h.associate(ctx, session, c)
	case AdminAuth:
		h.adminAuth(ctx, session, c)
	case JoinRoom:
		h.joinRoom(ctx, session, c.Room)
	case LeaveRoom:
		h.registry.Leave(session.ID, c.Room)
	case Ping:
		h.registry.Send(session.ID, "pong", nil)
	case Win, Fail, DuelWin, UpsideDown, UnboxFinished:
		h.gameplay(ctx, session, c.(GameplayCommand))
	default:
		log.Warn().Err(apperrors.UnknownCommand(cmd.Name())).Str("connectionId", session.ID).Msg("command dropped")
	}
}

func (h *Hub) associate(ctx context.Context, session model.Session, c AssociateToken) {
	result, err := h.binder.Associate(c.Token, session.ID, session.UserAgent, session.IP)
	if err != nil {
		h.ack(session.ID, "token_associated", err)

		event := audit.EventCredentialRejected
		if apperrors.HasCode(err, apperrors.ErrCodeCredentialIPLocked) {
			event = audit.EventCredentialIPLocked
		}
		audit.Log(ctx, audit.Event{
			Type:         event,
			ConnectionID: session.ID,
			IP:           session.IP,
			UserAgent:    session.UserAgent,
		})
		return
	}

	h.ack(session.ID, "token_associated", nil)
	if result.FirstBind {
		audit.Log(ctx, audit.Event{
			Type:         audit.EventCredentialBound,
			ConnectionID: session.ID,
			IP:           session.IP,
			UserAgent:    session.UserAgent,
		})
	}
	h.broadcastTokenStatus()
}

func (h *Hub) adminAuth(ctx context.Context, session model.Session, c AdminAuth) {
	if session.AdminFailures >= config.MaxAdminAuthAttempts {
		h.ack(session.ID, "admin_authenticated", apperrors.TooManyAdminAttempts())
		audit.Log(ctx, audit.Event{
			Type:         audit.EventAdminAuthLocked,
			ConnectionID: session.ID,
			IP:           session.IP,
		})
		return
	}

	if !h.admin.Configured() {
		h.ack(session.ID, "admin_authenticated", apperrors.AdminNotConfigured())
		return
	}

	if h.admin.Verify(c.Secret) {
		h.registry.UpdateSession(session.ID, func(s *model.Session) { s.IsAdmin = true })
		h.ack(session.ID, "admin_authenticated", nil)
		audit.Log(ctx, audit.Event{
			Type:         audit.EventAdminAuthSuccess,
			ConnectionID: session.ID,
			IP:           session.IP,
		})
		return
	}

	updated, _ := h.registry.UpdateSession(session.ID, func(s *model.Session) { s.AdminFailures++ })
	h.ack(session.ID, "admin_authenticated", apperrors.InvalidAdminSecret())
	audit.Log(ctx, audit.Event{
		Type:         audit.EventAdminAuthFailure,
		ConnectionID: session.ID,
		IP:           session.IP,
		Details:      map[string]interface{}{"failures": updated.AdminFailures},
	})
}

func (h *Hub) joinRoom(ctx context.Context, session model.Session, room string) {
	if room == "" || len(room) > maxRoomName {
		log.Warn().Str("connectionId", session.ID).Int("length", len(room)).Msg("invalid room name")
		return
	}

	if room == config.AdminRoom && !session.IsAdmin {
		audit.Log(ctx, audit.Event{
			Type:         audit.EventRoomAccessDenied,
			ConnectionID: session.ID,
			IP:           session.IP,
			Details:      map[string]interface{}{"room": room},
		})
		return
	}

	h.registry.Join(session.ID, room)
	if room == config.AdminRoom {
		if status, ok := h.tokenStatus(); ok {
			h.registry.Send(session.ID, "tokenStatusUpdate", status)
		}
	}
}

func (h *Hub) gameplay(ctx context.Context, session model.Session, cmd GameplayCommand) {
	if !h.binder.IsBound(session.ID) {
		log.Warn().
			Err(apperrors.UnauthorizedEvent(cmd.Name())).
			Str("connectionId", session.ID).
			Str("ip", session.IP).
			Msg("gameplay event dropped")
		return
	}

	if err := cmd.Validate(); err != nil {
		log.Warn().
			Err(err).
			Str("connectionId", session.ID).
			Str("command", cmd.Name()).
			Msg("gameplay event rejected")
		return
	}

	if key := cmd.IdempotencyKey(); key != "" {
		first, err := h.dedup.Claim(ctx, key)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("idempotency check failed, event dropped")
			return
		}
		if !first {
			log.Info().
				Err(apperrors.DuplicateEvent(key)).
				Str("connectionId", session.ID).
				Msg("duplicate event dropped")
			return
		}
	}

	h.binder.Touch(session.ID)

	switch c := cmd.(type) {
	case Win:
		h.recordSingle(ctx, c.PlayerName, model.OutcomeWin)
	case Fail:
		h.recordSingle(ctx, c.PlayerName, model.OutcomeLoss)
	case DuelWin:
		h.recordDuel(ctx, c)
	case UpsideDown:
		h.recordUpsideDown(ctx, c)
	case UnboxFinished:
		if !h.effects.Confirm(c.EffectID) {
			log.Debug().
				Err(apperrors.UnknownPendingEffect(c.EffectID)).
				Str("connectionId", session.ID).
				Msg("completion ignored")
		}
	}
}

func (h *Hub) recordSingle(ctx context.Context, rawPlayer string, kind model.OutcomeKind) {
	player, ok := util.NormalizePlayerName(rawPlayer)
	if !ok {
		log.Warn().Str("kind", string(kind)).Msg("outcome without valid player name dropped")
		return
	}

	stats, err := h.scorer.RecordOutcome(ctx, player, kind)
	if err != nil {
		log.Error().Err(err).Str("player", player).Str("kind", string(kind)).Msg("failed to record outcome")
		return
	}
	h.publishStats(ctx, *stats)
}

func (h *Hub) recordDuel(ctx context.Context, c DuelWin) {
	winner, okW := util.NormalizePlayerName(c.Winner)
	loser, okL := util.NormalizePlayerName(c.Loser)
	if !okW || !okL {
		log.Warn().Str("duelId", c.DuelID).Msg("duel without valid player names dropped")
		return
	}

	rows, err := h.scorer.RecordDuel(ctx, winner, loser)
	if err != nil {
		log.Error().Err(err).Str("duelId", c.DuelID).Msg("failed to record duel")
		return
	}
	h.publishStats(ctx, rows...)
	h.announce(fmt.Sprintf("%s won a duel against %s!", winner, loser))
}

func (h *Hub) recordUpsideDown(ctx context.Context, c UpsideDown) {
	player, ok := util.NormalizePlayerName(c.PlayerName)
	if !ok {
		log.Warn().Str("coneId", c.ConeID).Msg("upside down without valid player name dropped")
		return
	}

	stats, err := h.scorer.RecordOutcome(ctx, player, model.OutcomeUpsideDown)
	if err != nil {
		log.Error().Err(err).Str("player", player).Msg("failed to record upside down")
		return
	}
	h.publishStats(ctx, *stats)

	text := fmt.Sprintf("%s landed a cone upside down!", player)
	if loser, ok := util.NormalizePlayerName(c.LoserName); ok {
		text = fmt.Sprintf("%s landed a cone upside down against %s!", player, loser)
	}
	h.announce(text)
}

func (h *Hub) publishStats(ctx context.Context, rows ...model.PlayerStats) {
	for _, s := range rows {
		h.registry.Broadcast("statsUpdate", StatsEvent{Stats: s})
	}

	players, err := h.scorer.Leaderboard(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load leaderboard")
		return
	}
	h.registry.Broadcast("leaderboardUpdate", LeaderboardEvent{Players: players})
}

// announce posts to chat in the background; failures never affect the
// scoring that triggered them.
func (h *Hub) announce(text string) {
	h.announcements.Add(1)
	go func() {
		defer h.announcements.Done()

		ctx, cancel := context.WithTimeout(context.Background(), announceTimeout)
		defer cancel()
		if !h.announcer.SendChatMessage(ctx, text) {
			log.Warn().Err(apperrors.ChatDeliveryFailed(nil)).Msg("announcement dropped")
		}
	}()
}

// WaitAnnouncements blocks until in-flight chat announcements finish.
func (h *Hub) WaitAnnouncements() {
	h.announcements.Wait()
}

func (h *Hub) ack(connectionID, eventType string, err error) {
	if err == nil {
		h.registry.Send(connectionID, eventType, Ack{Success: true})
		return
	}

	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal("An unexpected error occurred")
	}
	h.registry.Send(connectionID, eventType, Ack{
		Success: false,
		Error:   appErr.Message,
		Code:    appErr.Code,
	})
}
