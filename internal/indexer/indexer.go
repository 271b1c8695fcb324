// Package indexer turns resolved rounds into durable history: PostgreSQL
// rows for rounds, trades, and per-user settlements, a refreshed leaderboard
// cache, a cold-storage archive, and a resolution event on the signal bus.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/minuteflip/flipd/internal/domain"
	"github.com/minuteflip/flipd/internal/settle"
)

// RoundsChannel is the signal bus channel resolution events are published on.
const RoundsChannel = "rounds"

// Indexer persists settled rounds. The archiver, leaderboard cache, and
// signal bus are optional; a nil field skips that step.
type Indexer struct {
	rounds      domain.RoundStore
	trades      domain.TradeStore
	leaderboard domain.LeaderboardStore
	lbCache     domain.LeaderboardCache
	archiver    domain.Archiver
	bus         domain.SignalBus
	logger      *slog.Logger
}

// Config collects the indexer's collaborators.
type Config struct {
	Rounds      domain.RoundStore
	Trades      domain.TradeStore
	Leaderboard domain.LeaderboardStore
	LBCache     domain.LeaderboardCache
	Archiver    domain.Archiver
	Bus         domain.SignalBus
}

// New creates an Indexer from the given collaborators.
func New(cfg Config, logger *slog.Logger) *Indexer {
	return &Indexer{
		rounds:      cfg.Rounds,
		trades:      cfg.Trades,
		leaderboard: cfg.Leaderboard,
		lbCache:     cfg.LBCache,
		archiver:    cfg.Archiver,
		bus:         cfg.Bus,
		logger:      logger.With(slog.String("component", "indexer")),
	}
}

// IndexRound persists one resolved round with its trades and settles every
// participant's P&L. Database writes are idempotent, so re-indexing the same
// round after a partial failure is safe. Archival and cache refresh are
// best-effort and never fail the call; the resolution event is published
// regardless.
func (ix *Indexer) IndexRound(ctx context.Context, round domain.Round, trades []domain.Trade) error {
	if !round.Resolved() {
		return fmt.Errorf("indexer: round %s is not resolved", round.ID)
	}

	if err := ix.rounds.Insert(ctx, round); err != nil {
		return fmt.Errorf("indexer: persist round %s: %w", round.ID, err)
	}
	if err := ix.trades.InsertBatch(ctx, trades); err != nil {
		return fmt.Errorf("indexer: persist %d trades for round %s: %w", len(trades), round.ID, err)
	}

	if err := ix.settleUsers(ctx, round, trades); err != nil {
		return err
	}

	ix.archive(ctx, round, trades)
	ix.publish(ctx, round)

	ix.logger.Info("round indexed",
		slog.String("round_id", round.ID),
		slog.String("outcome", string(round.Outcome)),
		slog.Int("trades", len(trades)),
	)
	return nil
}

// settleUsers records one settlement row per participant and mirrors the P&L
// delta into the leaderboard cache.
func (ix *Indexer) settleUsers(ctx context.Context, round domain.Round, trades []domain.Trade) error {
	byUser := make(map[string][]domain.Trade)
	for _, t := range trades {
		byUser[t.User] = append(byUser[t.User], t)
	}

	for user, userTrades := range byUser {
		pos := domain.BuildPosition(userTrades)
		pnl := settle.PnL(round.Outcome, pos)
		volume := pos.CostUp + pos.CostDown

		if err := ix.leaderboard.RecordSettlement(ctx, round.ID, user, pnl, volume, round.EndsAt); err != nil {
			return fmt.Errorf("indexer: record settlement for %s in round %s: %w", user, round.ID, err)
		}

		if ix.lbCache != nil {
			if err := ix.lbCache.AddPnL(ctx, user, pnl); err != nil {
				ix.logger.Warn("leaderboard cache update failed",
					slog.String("user", user),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	return nil
}

func (ix *Indexer) archive(ctx context.Context, round domain.Round, trades []domain.Trade) {
	if ix.archiver == nil {
		return
	}
	path, err := ix.archiver.ArchiveRound(ctx, round, trades)
	if err != nil {
		ix.logger.Warn("round archive failed",
			slog.String("round_id", round.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	ix.logger.Debug("round archived", slog.String("path", path))
}

func (ix *Indexer) publish(ctx context.Context, round domain.Round) {
	if ix.bus == nil {
		return
	}
	payload, err := json.Marshal(round)
	if err != nil {
		ix.logger.Warn("marshal resolution event failed", slog.String("error", err.Error()))
		return
	}
	if err := ix.bus.Publish(ctx, RoundsChannel, payload); err != nil {
		ix.logger.Warn("publish resolution event failed",
			slog.String("round_id", round.ID),
			slog.String("error", err.Error()),
		)
	}
}
