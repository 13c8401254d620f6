package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/coneflip/overlay-server-go/internal/errors"
	"github.com/coneflip/overlay-server-go/internal/model"
	"github.com/coneflip/overlay-server-go/internal/repository"
)

const inventoryPageSize = 50

// LootChooser picks the outcome of one unbox.
type LootChooser interface {
	Choose() model.LootOutcome
}

// EffectRegistrar defers an announcement until the overlay confirms it.
type EffectRegistrar interface {
	Register(payload model.EffectPayload) string
}

type UnboxResult struct {
	Item     model.InventoryItem `json:"item"`
	EffectID string              `json:"effectId"`
}

// UnboxService draws loot for a player, stores it, and starts the reveal.
// The chat line is held back until the reveal finishes.
type UnboxService struct {
	loot      LootChooser
	inventory repository.InventoryRepository
	effects   EffectRegistrar
}

func NewUnboxService(loot LootChooser, inventory repository.InventoryRepository, effects EffectRegistrar) *UnboxService {
	return &UnboxService{loot: loot, inventory: inventory, effects: effects}
}

func (s *UnboxService) Unbox(ctx context.Context, player string) (*UnboxResult, error) {
	outcome := s.loot.Choose()

	item, err := s.inventory.Create(ctx, model.CreateInventoryItemParams{
		ID:     uuid.NewString(),
		Player: player,
		Item:   outcome.Item,
		Rarity: outcome.Rarity,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	effectID := s.effects.Register(model.EffectPayload{
		Player:  player,
		Subject: outcome.Item,
		Message: fmt.Sprintf("%s unboxed %s (%s)!", player, outcome.Item, outcome.Rarity),
	})

	log.Info().
		Str("player", player).
		Str("item", outcome.Item).
		Str("rarity", string(outcome.Rarity)).
		Str("effectId", effectID).
		Msg("unbox drawn")

	return &UnboxResult{Item: *item, EffectID: effectID}, nil
}

func (s *UnboxService) Inventory(ctx context.Context, player string) ([]model.InventoryItem, error) {
	items, err := s.inventory.ListByPlayer(ctx, player, inventoryPageSize)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return items, nil
}
