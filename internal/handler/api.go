package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/coneflip/overlay-server-go/internal/errors"
	"github.com/coneflip/overlay-server-go/internal/model"
	"github.com/coneflip/overlay-server-go/internal/util"
)

type StatsReader interface {
	Leaderboard(ctx context.Context) ([]model.PlayerStats, error)
	PlayerStats(ctx context.Context, player string) (*model.PlayerStats, error)
}

type InventoryReader interface {
	Inventory(ctx context.Context, player string) ([]model.InventoryItem, error)
}

// APIHandler serves the public read-only endpoints used by the overlay.
type APIHandler struct {
	stats     StatsReader
	inventory InventoryReader
}

func NewAPIHandler(stats StatsReader, inventory InventoryReader) *APIHandler {
	return &APIHandler{stats: stats, inventory: inventory}
}

func (h *APIHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/leaderboard", h.Leaderboard)
	r.Get("/players/{player}", h.Player)
	r.Get("/inventory/{player}", h.Inventory)

	return r
}

func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	players, err := h.stats.Leaderboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": players})
}

func (h *APIHandler) Player(w http.ResponseWriter, r *http.Request) {
	player, ok := playerParam(r)
	if !ok {
		writeError(w, apperrors.InvalidInput("player", "must be 1-64 characters"))
		return
	}

	stats, err := h.stats.PlayerStats(r.Context(), player)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *APIHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	player, ok := playerParam(r)
	if !ok {
		writeError(w, apperrors.InvalidInput("player", "must be 1-64 characters"))
		return
	}

	items, err := h.inventory.Inventory(r.Context(), player)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"player": player,
		"items":  items,
	})
}

func playerParam(r *http.Request) (string, bool) {
	return util.NormalizePlayerName(chi.URLParam(r, "player"))
}
