package service

import (
	"math/rand/v2"
	"sync"

	"github.com/coneflip/overlay-server-go/internal/model"
)

type LootEntry struct {
	Item   string
	Rarity model.Rarity
	Weight int
}

// DefaultLootTable roughly follows case-opening odds: most draws are common,
// covert items are rare.
var DefaultLootTable = []LootEntry{
	{Item: "traffic_cone", Rarity: model.RarityCommon, Weight: 400},
	{Item: "striped_cone", Rarity: model.RarityCommon, Weight: 392},
	{Item: "neon_cone", Rarity: model.RarityUncommon, Weight: 100},
	{Item: "chrome_cone", Rarity: model.RarityUncommon, Weight: 60},
	{Item: "golden_cone", Rarity: model.RarityRare, Weight: 32},
	{Item: "diamond_cone", Rarity: model.RarityLegendary, Weight: 10},
	{Item: "covert_x", Rarity: model.RarityCovert, Weight: 6},
}

// LootTable picks weighted random outcomes.
type LootTable struct {
	entries []LootEntry
	total   int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewLootTable panics on an empty table or a non-positive weight; tables are
// static configuration.
func NewLootTable(entries []LootEntry, rng *rand.Rand) *LootTable {
	if len(entries) == 0 {
		panic("loot: empty table")
	}
	total := 0
	for _, e := range entries {
		if e.Weight <= 0 {
			panic("loot: non-positive weight for " + e.Item)
		}
		total += e.Weight
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &LootTable{entries: entries, total: total, rng: rng}
}

func (t *LootTable) Choose() model.LootOutcome {
	t.mu.Lock()
	n := t.rng.IntN(t.total)
	t.mu.Unlock()

	for _, e := range t.entries {
		if n < e.Weight {
			return model.LootOutcome{Item: e.Item, Rarity: e.Rarity}
		}
		n -= e.Weight
	}
	last := t.entries[len(t.entries)-1]
	return model.LootOutcome{Item: last.Item, Rarity: last.Rarity}
}
