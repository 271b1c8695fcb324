package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/minuteflip/flipd/internal/domain"
)

// leaderboardKey is the sorted set holding cumulative realized P&L per user.
const leaderboardKey = "leaderboard:pnl"

// LeaderboardCache implements domain.LeaderboardCache with a Redis ZSET so
// top-N reads cost O(log n + n) instead of an aggregate query per request.
// The postgres leaderboard store remains the durable source; this view is
// rebuilt by the indexer as rounds settle.
type LeaderboardCache struct {
	rdb *redis.Client
}

// NewLeaderboardCache creates a LeaderboardCache backed by the given Client.
func NewLeaderboardCache(c *Client) *LeaderboardCache {
	return &LeaderboardCache{rdb: c.Underlying()}
}

// AddPnL adds a settled round's realized P&L to the user's running score.
func (lc *LeaderboardCache) AddPnL(ctx context.Context, user string, delta float64) error {
	if err := lc.rdb.ZIncrBy(ctx, leaderboardKey, delta, user).Err(); err != nil {
		return fmt.Errorf("redis: leaderboard incr %s: %w", user, err)
	}
	return nil
}

// Top returns the highest-P&L users, best first.
func (lc *LeaderboardCache) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	zs, err := lc.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: leaderboard top: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		user, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			User: user,
			PnL:  z.Score,
		})
	}
	return entries, nil
}

var _ domain.LeaderboardCache = (*LeaderboardCache)(nil)
