package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coneflip/overlay-server-go/internal/util"
)

type EventType string

const (
	EventAdminAuthSuccess    EventType = "admin_auth_success"
	EventAdminAuthFailure    EventType = "admin_auth_failure"
	EventAdminAuthLocked     EventType = "admin_auth_locked"
	EventCredentialBound     EventType = "credential_bound"
	EventCredentialRejected  EventType = "credential_rejected"
	EventCredentialIPLocked  EventType = "credential_ip_locked"
	EventTokenRegenerate     EventType = "token_regenerate"
	EventRoomAccessDenied    EventType = "room_access_denied"
	EventUnauthorizedCommand EventType = "unauthorized_command"
	EventRateLimitExceed     EventType = "rate_limit_exceeded"
	EventAuthFailure         EventType = "auth_failure"
)

type Event struct {
	Type         EventType
	ConnectionID string
	IP           string
	UserAgent    string
	Details      map[string]interface{}
}

func Log(ctx context.Context, event Event) {
	logger := log.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &log.Logger
	}

	sub := logger.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.ConnectionID != "" {
		sub = sub.With().Str("connection_id", event.ConnectionID).Logger()
	}
	if event.IP != "" {
		sub = sub.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		sub = sub.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := sub.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	case error:
		return e.AnErr(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = util.ResolveClientIP(r.Header, r.RemoteAddr)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}
