package model

// OutcomeKind is a scoring outcome reported to the stats store.
type OutcomeKind string

const (
	OutcomeWin        OutcomeKind = "win"
	OutcomeLoss       OutcomeKind = "loss"
	OutcomeDuelWin    OutcomeKind = "duel_win"
	OutcomeDuelLoss   OutcomeKind = "duel_loss"
	OutcomeUpsideDown OutcomeKind = "upside_down"
)

func (k OutcomeKind) Valid() bool {
	switch k {
	case OutcomeWin, OutcomeLoss, OutcomeDuelWin, OutcomeDuelLoss, OutcomeUpsideDown:
		return true
	}
	return false
}

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
	RarityCovert    Rarity = "covert"
)
