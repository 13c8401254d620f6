package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/coneflip/overlay-server-go/internal/database"
	"github.com/coneflip/overlay-server-go/internal/model"
)

type StatsRepository interface {
	Increment(ctx context.Context, player string, kind model.OutcomeKind) (*model.PlayerStats, error)
	FindByPlayer(ctx context.Context, player string) (*model.PlayerStats, error)
	Top(ctx context.Context, limit int) ([]model.PlayerStats, error)
	WithTx(tx *sqlx.Tx) StatsRepository
}

// outcomeColumns is the only source of column names interpolated into SQL.
var outcomeColumns = map[model.OutcomeKind]string{
	model.OutcomeWin:        "wins",
	model.OutcomeLoss:       "losses",
	model.OutcomeDuelWin:    "duel_wins",
	model.OutcomeDuelLoss:   "duel_losses",
	model.OutcomeUpsideDown: "upside_downs",
}

type statsRepo struct {
	db database.DBTX
}

func NewStatsRepository(db *sqlx.DB) StatsRepository {
	return &statsRepo{db: db}
}

func (r *statsRepo) WithTx(tx *sqlx.Tx) StatsRepository {
	return &statsRepo{db: tx}
}

func (r *statsRepo) Increment(ctx context.Context, player string, kind model.OutcomeKind) (*model.PlayerStats, error) {
	column, ok := outcomeColumns[kind]
	if !ok {
		return nil, fmt.Errorf("unknown outcome kind %q", kind)
	}

	var stats model.PlayerStats
	err := r.db.GetContext(ctx, &stats, fmt.Sprintf(`
		INSERT INTO player_stats (player, %[1]s, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (player) DO UPDATE SET
			%[1]s = player_stats.%[1]s + 1,
			updated_at = NOW()
		RETURNING *
	`, column), player)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *statsRepo) FindByPlayer(ctx context.Context, player string) (*model.PlayerStats, error) {
	var stats model.PlayerStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT * FROM player_stats WHERE player = $1
	`, player)
	return HandleNotFound(&stats, err)
}

func (r *statsRepo) Top(ctx context.Context, limit int) ([]model.PlayerStats, error) {
	var rows []model.PlayerStats
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM player_stats
		ORDER BY wins + duel_wins DESC, losses ASC, player ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
