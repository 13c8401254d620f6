package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/coneflip/overlay-server-go/internal/database"
	"github.com/coneflip/overlay-server-go/internal/model"
)

type InventoryRepository interface {
	Create(ctx context.Context, params model.CreateInventoryItemParams) (*model.InventoryItem, error)
	ListByPlayer(ctx context.Context, player string, limit int) ([]model.InventoryItem, error)
	WithTx(tx *sqlx.Tx) InventoryRepository
}

type inventoryRepo struct {
	db database.DBTX
}

func NewInventoryRepository(db *sqlx.DB) InventoryRepository {
	return &inventoryRepo{db: db}
}

func (r *inventoryRepo) WithTx(tx *sqlx.Tx) InventoryRepository {
	return &inventoryRepo{db: tx}
}

func (r *inventoryRepo) Create(ctx context.Context, params model.CreateInventoryItemParams) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.GetContext(ctx, &item, `
		INSERT INTO inventory_items (id, player, item, rarity)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.ID, params.Player, params.Item, params.Rarity)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepo) ListByPlayer(ctx context.Context, player string, limit int) ([]model.InventoryItem, error) {
	items := []model.InventoryItem{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM inventory_items
		WHERE player = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, player, limit)
	if err != nil {
		return nil, err
	}
	return items, nil
}
