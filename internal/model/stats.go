package model

import "time"

type PlayerStats struct {
	Player      string    `db:"player" json:"player"`
	Wins        int       `db:"wins" json:"wins"`
	Losses      int       `db:"losses" json:"losses"`
	DuelWins    int       `db:"duel_wins" json:"duelWins"`
	DuelLosses  int       `db:"duel_losses" json:"duelLosses"`
	UpsideDowns int       `db:"upside_downs" json:"upsideDowns"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type InventoryItem struct {
	ID        string    `db:"id" json:"id"`
	Player    string    `db:"player" json:"player"`
	Item      string    `db:"item" json:"item"`
	Rarity    Rarity    `db:"rarity" json:"rarity"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateInventoryItemParams struct {
	ID     string
	Player string
	Item   string
	Rarity Rarity
}

// LootOutcome is the result of one unbox draw.
type LootOutcome struct {
	Item   string `json:"item"`
	Rarity Rarity `json:"rarity"`
}
