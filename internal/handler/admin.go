package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/coneflip/overlay-server-go/internal/audit"
	apperrors "github.com/coneflip/overlay-server-go/internal/errors"
	"github.com/coneflip/overlay-server-go/internal/hub"
	"github.com/coneflip/overlay-server-go/internal/model"
	"github.com/coneflip/overlay-server-go/internal/service"
	"github.com/coneflip/overlay-server-go/internal/util"
)

// AdminHub is the part of the connection hub the admin API drives.
type AdminHub interface {
	Regenerate(ctx context.Context) (string, error)
	ForceRefresh() int
	Status() hub.Status
}

type TokenReader interface {
	Status() (model.TokenStatus, bool)
}

type Unboxer interface {
	Unbox(ctx context.Context, player string) (*service.UnboxResult, error)
}

// AdminHandler serves the admin API. Authentication and rate limiting are
// applied by the router.
type AdminHandler struct {
	hub    AdminHub
	tokens TokenReader
	unbox  Unboxer
}

func NewAdminHandler(h AdminHub, tokens TokenReader, unbox Unboxer) *AdminHandler {
	return &AdminHandler{hub: h, tokens: tokens, unbox: unbox}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/token", h.Token)
	r.Post("/token/regenerate", h.RegenerateToken)
	r.Post("/refresh", h.Refresh)
	r.Post("/unbox", h.Unbox)
	r.Get("/status", h.Status)

	return r
}

// Token returns the full credential. Only the admin API reveals it
// unmasked.
func (h *AdminHandler) Token(w http.ResponseWriter, r *http.Request) {
	status, ok := h.tokens.Status()
	if !ok {
		writeError(w, apperrors.NotFound("credential"))
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *AdminHandler) RegenerateToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.hub.Regenerate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventTokenRegenerate,
		Details: map[string]interface{}{"fingerprint": util.TokenFingerprint(token)},
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
	})
}

func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	n := h.hub.ForceRefresh()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"clients": n,
	})
}

func (h *AdminHandler) Unbox(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Player string `json:"player"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	player, ok := util.NormalizePlayerName(req.Player)
	if !ok {
		writeError(w, apperrors.InvalidInput("player", "must be 1-64 characters"))
		return
	}

	result, err := h.unbox.Unbox(r.Context(), player)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("player", player).Msg("unbox failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.hub.Status())
}
