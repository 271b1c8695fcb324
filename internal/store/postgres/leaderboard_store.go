package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minuteflip/flipd/internal/domain"
)

// LeaderboardStore implements domain.LeaderboardStore using PostgreSQL.
// Each settled (round, user) pair becomes one settlement row; the leaderboard
// itself is an aggregate over those rows.
type LeaderboardStore struct {
	pool *pgxpool.Pool
}

// NewLeaderboardStore creates a new LeaderboardStore backed by the given
// connection pool.
func NewLeaderboardStore(pool *pgxpool.Pool) *LeaderboardStore {
	return &LeaderboardStore{pool: pool}
}

var _ domain.LeaderboardStore = (*LeaderboardStore)(nil)

// RecordSettlement stores one user's realized P&L for a settled round.
// Re-recording the same (round, user) pair is a no-op, keeping indexer
// retries idempotent.
func (s *LeaderboardStore) RecordSettlement(ctx context.Context, roundID, user string, pnl, volume float64, settledAt time.Time) error {
	const query = `
		INSERT INTO settlements (round_id, "user", pnl, volume, settled_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (round_id, "user") DO NOTHING`

	_, err := s.pool.Exec(ctx, query, roundID, user, pnl, volume, settledAt)
	if err != nil {
		return fmt.Errorf("postgres: record settlement %s/%s: %w", roundID, user, err)
	}
	return nil
}

// Top returns users ranked by cumulative realized P&L.
func (s *LeaderboardStore) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	const query = `
		SELECT "user", SUM(pnl), COUNT(*), SUM(volume)
		FROM settlements
		GROUP BY "user"
		ORDER BY SUM(pnl) DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.User, &e.PnL, &e.Rounds, &e.Volume); err != nil {
			return nil, fmt.Errorf("postgres: scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
