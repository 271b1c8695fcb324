package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// RoundStore persists resolved round snapshots for the history views. The
// in-memory engine stays authoritative; these are reporting rows only.
type RoundStore interface {
	Insert(ctx context.Context, round Round) error
	GetByID(ctx context.Context, id string) (Round, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]Round, error)
	Count(ctx context.Context) (int64, error)
}

// TradeStore persists accepted trades for settled rounds.
type TradeStore interface {
	InsertBatch(ctx context.Context, trades []Trade) error
	ListByRound(ctx context.Context, roundID string, opts ListOpts) ([]Trade, error)
	ListByUser(ctx context.Context, user string, opts ListOpts) ([]Trade, error)
}

// LeaderboardStore aggregates realized P&L per user over settled rounds.
type LeaderboardStore interface {
	RecordSettlement(ctx context.Context, roundID, user string, pnl, volume float64, settledAt time.Time) error
	Top(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}
