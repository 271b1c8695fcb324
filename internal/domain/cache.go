package domain

import (
	"context"
	"time"
)

// PriceCache provides fast access to the latest oracle prices.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, symbol string) (float64, time.Time, error)
}

// LeaderboardCache keeps a ranked realized-P&L view for cheap top-N reads.
type LeaderboardCache interface {
	AddPnL(ctx context.Context, user string, delta float64) error
	Top(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus provides pub/sub fan-out for round and price events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
