package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minuteflip/flipd/internal/domain"
)

// RoundStore implements domain.RoundStore using PostgreSQL.
type RoundStore struct {
	pool *pgxpool.Pool
}

// NewRoundStore creates a new RoundStore backed by the given connection pool.
func NewRoundStore(pool *pgxpool.Pool) *RoundStore {
	return &RoundStore{pool: pool}
}

var _ domain.RoundStore = (*RoundStore)(nil)

const roundSelectCols = `id, start_at, ends_at, trading_closes_at,
	price_at_start, price_at_end, outcome, status,
	q_up, q_down, volume_traded`

func scanRound(row pgx.Row) (domain.Round, error) {
	var r domain.Round
	err := row.Scan(
		&r.ID, &r.StartAt, &r.EndsAt, &r.TradingClosesAt,
		&r.PriceAtStart, &r.PriceAtEnd, &r.Outcome, &r.Status,
		&r.Pool.QUp, &r.Pool.QDown, &r.Pool.VolumeTraded,
	)
	return r, err
}

// Insert persists a resolved round snapshot. Re-inserting the same round ID is
// a no-op, so indexer retries after partial failures stay safe.
func (s *RoundStore) Insert(ctx context.Context, round domain.Round) error {
	const query = `
		INSERT INTO rounds (
			id, start_at, ends_at, trading_closes_at,
			price_at_start, price_at_end, outcome, status,
			q_up, q_down, volume_traded
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11
		) ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		round.ID, round.StartAt, round.EndsAt, round.TradingClosesAt,
		round.PriceAtStart, round.PriceAtEnd, round.Outcome, round.Status,
		round.Pool.QUp, round.Pool.QDown, round.Pool.VolumeTraded,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert round %s: %w", round.ID, err)
	}
	return nil
}

// GetByID returns one round by its identifier.
func (s *RoundStore) GetByID(ctx context.Context, id string) (domain.Round, error) {
	query := `SELECT ` + roundSelectCols + ` FROM rounds WHERE id = $1`
	r, err := scanRound(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Round{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Round{}, fmt.Errorf("postgres: get round %s: %w", id, err)
	}
	return r, nil
}

// ListRecent returns rounds ordered newest first.
func (s *RoundStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Round, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + roundSelectCols + ` FROM rounds ORDER BY start_at DESC LIMIT $1 OFFSET $2`
	rows, err := s.pool.Query(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []domain.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan round: %w", err)
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

// Count returns the total number of persisted rounds.
func (s *RoundStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM rounds").Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count rounds: %w", err)
	}
	return n, nil
}
