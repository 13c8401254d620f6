package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/coneflip/overlay-server-go/internal/config"
	"github.com/coneflip/overlay-server-go/internal/database"
	apperrors "github.com/coneflip/overlay-server-go/internal/errors"
	"github.com/coneflip/overlay-server-go/internal/model"
	"github.com/coneflip/overlay-server-go/internal/repository"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// ScoringService applies game outcomes to player stats. It never decides
// outcomes, it only records them.
type ScoringService struct {
	tx    TxRunner
	stats repository.StatsRepository
}

func NewScoringService(tx TxRunner, stats repository.StatsRepository) *ScoringService {
	return &ScoringService{tx: tx, stats: stats}
}

func (s *ScoringService) RecordOutcome(ctx context.Context, player string, kind model.OutcomeKind) (*model.PlayerStats, error) {
	if !kind.Valid() {
		return nil, apperrors.InvalidInput("kind", fmt.Sprintf("unknown outcome %q", kind))
	}
	stats, err := s.stats.Increment(ctx, player, kind)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return stats, nil
}

// RecordDuel credits the winner and debits the loser atomically.
func (s *ScoringService) RecordDuel(ctx context.Context, winner, loser string) ([]model.PlayerStats, error) {
	if winner == loser {
		return nil, apperrors.InvalidInput("loser", "must differ from winner")
	}

	var result []model.PlayerStats
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.stats.WithTx(tx)

		w, err := repo.Increment(ctx, winner, model.OutcomeDuelWin)
		if err != nil {
			return fmt.Errorf("record duel win: %w", err)
		}
		l, err := repo.Increment(ctx, loser, model.OutcomeDuelLoss)
		if err != nil {
			return fmt.Errorf("record duel loss: %w", err)
		}
		result = []model.PlayerStats{*w, *l}
		return nil
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return result, nil
}

func (s *ScoringService) Leaderboard(ctx context.Context) ([]model.PlayerStats, error) {
	rows, err := s.stats.Top(ctx, config.LeaderboardSize)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if rows == nil {
		rows = []model.PlayerStats{}
	}
	return rows, nil
}

func (s *ScoringService) PlayerStats(ctx context.Context, player string) (*model.PlayerStats, error) {
	stats, err := s.stats.FindByPlayer(ctx, player)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if stats == nil {
		return nil, apperrors.NotFound("player")
	}
	return stats, nil
}
