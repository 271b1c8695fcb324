package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minuteflip/flipd/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

var _ domain.TradeStore = (*TradeStore)(nil)

const tradeSelectCols = `id, round_id, "user", side, amount_usd, shares,
	price_per_share, executed_at`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(
			&t.ID, &t.RoundID, &t.User, &t.Side,
			&t.AmountUSD, &t.Shares, &t.PricePerShare, &t.ExecutedAt,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// InsertBatch inserts multiple trades efficiently using pgx Batch. Duplicate
// trade IDs are silently skipped via ON CONFLICT DO NOTHING so a re-archived
// round does not double-count.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO trades (
			id, round_id, "user", side,
			amount_usd, shares, price_per_share, executed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8
		) ON CONFLICT (id) DO NOTHING`

	for _, t := range trades {
		batch.Queue(query,
			t.ID, t.RoundID, t.User, t.Side,
			t.AmountUSD, t.Shares, t.PricePerShare, t.ExecutedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range trades {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert trade batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListByRound returns trades for one round ordered by execution time.
func (s *TradeStore) ListByRound(ctx context.Context, roundID string, opts domain.ListOpts) ([]domain.Trade, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 200
	}

	query := `SELECT ` + tradeSelectCols + ` FROM trades
		WHERE round_id = $1 ORDER BY executed_at ASC LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, query, roundID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades for round %s: %w", roundID, err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades for round %s: %w", roundID, err)
	}
	return trades, nil
}

// ListByUser returns a user's trades across rounds, newest first.
func (s *TradeStore) ListByUser(ctx context.Context, user string, opts domain.ListOpts) ([]domain.Trade, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 200
	}

	query := `SELECT ` + tradeSelectCols + ` FROM trades
		WHERE "user" = $1 ORDER BY executed_at DESC LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, query, user, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades for user %s: %w", user, err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades for user %s: %w", user, err)
	}
	return trades, nil
}
