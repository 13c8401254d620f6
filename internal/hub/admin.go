package hub

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/coneflip/overlay-server-go/internal/config"
	"github.com/coneflip/overlay-server-go/internal/model"
	"github.com/coneflip/overlay-server-go/internal/service"
	"github.com/coneflip/overlay-server-go/internal/util"
)

type Status struct {
	Connections int                 `json:"connections"`
	Admins      int                 `json:"admins"`
	Bound       int                 `json:"bound"`
	Token       *model.TokenStatus  `json:"token,omitempty"`
	Effects     service.EffectStats `json:"effects"`
	Sessions    []model.SessionInfo `json:"sessions"`
}

// Regenerate replaces the shared credential. Every connection bound to the
// old one loses its binding; the admin room sees the new status.
func (h *Hub) Regenerate(ctx context.Context) (string, error) {
	token, err := h.credentials.Regenerate(ctx)
	if err != nil {
		return "", err
	}
	h.broadcastTokenStatus()
	return token, nil
}

// ForceRefresh tells every client to reload. Returns how many were
// connected.
func (h *Hub) ForceRefresh() int {
	n := h.registry.Count()
	h.registry.Broadcast("forceRefresh", nil)
	log.Info().Int("clients", n).Msg("force refresh broadcast")
	return n
}

// Shutdown warns every client and closes its connection.
func (h *Hub) Shutdown() {
	h.registry.Broadcast("server_shutdown", ShutdownEvent{Message: "Server is restarting"})
	h.registry.CloseAll()
}

func (h *Hub) Status() Status {
	sessions := h.registry.Snapshot()
	for i := range sessions {
		sessions[i].Bound = h.binder.IsBound(sessions[i].ID)
		sessions[i].Live = sessions[i].Bound && h.binder.IsLive(sessions[i].ID)
	}

	status := Status{
		Connections: len(sessions),
		Admins:      h.registry.RoomSize(config.AdminRoom),
		Bound:       h.binder.BoundCount(),
		Effects:     h.effects.Stats(),
		Sessions:    sessions,
	}
	if token, ok := h.tokenStatus(); ok {
		status.Token = &token
	}
	return status
}

// tokenStatus is the admin-room view of the credential with the token
// masked.
func (h *Hub) tokenStatus() (model.TokenStatus, bool) {
	status, ok := h.credentials.Status()
	if !ok {
		return model.TokenStatus{}, false
	}
	status.Token = util.MaskToken(status.Token)
	return status, true
}

func (h *Hub) broadcastTokenStatus() {
	if status, ok := h.tokenStatus(); ok {
		h.registry.BroadcastRoom(config.AdminRoom, "tokenStatusUpdate", status)
	}
}
