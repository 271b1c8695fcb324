// Package round owns the authoritative in-memory set of 60-second market
// rounds: lazy minute-aligned creation, trading-window enforcement, trade
// execution against the AMM, and one-way resolution.
//
// The store is an explicit object constructed at startup and injected into
// the API layer. State is process-scoped and intentionally unpersisted: on
// restart the market simulation begins empty.
package round

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minuteflip/flipd/internal/amm"
	"github.com/minuteflip/flipd/internal/domain"
	"github.com/minuteflip/flipd/internal/settle"
)

const (
	// DefaultCloseBufferMin and DefaultCloseBufferMax bound the randomized
	// trading-close offset before round end. The offset is drawn once per
	// round so users cannot mechanically time trades against a fixed,
	// predictable close.
	DefaultCloseBufferMin = 10 * time.Second
	DefaultCloseBufferMax = 14 * time.Second
)

// Config controls store construction. The zero value is usable; the clock and
// random source are injectable so tests can pin window boundaries.
type Config struct {
	Liquidity      float64       // AMM base liquidity B0; 0 means amm.DefaultLiquidity
	CloseBufferMin time.Duration // 0 means DefaultCloseBufferMin
	CloseBufferMax time.Duration // 0 means DefaultCloseBufferMax
	Now            func() time.Time
	Rand           *rand.Rand
}

// Store owns every round created during the process lifetime, keyed by id,
// plus the pointer to the current round. All access is mutex-guarded: the
// HTTP layer serves requests concurrently.
type Store struct {
	mu      sync.Mutex
	engine  *amm.Engine
	rounds  map[string]*domain.Round
	trades  map[string][]domain.Trade
	current string

	closeMin time.Duration
	closeMax time.Duration
	now      func() time.Time
	rng      *rand.Rand
	logger   *slog.Logger
}

// NewStore creates an empty round store.
func NewStore(cfg Config, logger *slog.Logger) *Store {
	if cfg.CloseBufferMin <= 0 {
		cfg.CloseBufferMin = DefaultCloseBufferMin
	}
	if cfg.CloseBufferMax < cfg.CloseBufferMin {
		cfg.CloseBufferMax = DefaultCloseBufferMax
		if cfg.CloseBufferMax < cfg.CloseBufferMin {
			cfg.CloseBufferMax = cfg.CloseBufferMin
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Store{
		engine:   amm.New(cfg.Liquidity),
		rounds:   make(map[string]*domain.Round),
		trades:   make(map[string][]domain.Trade),
		closeMin: cfg.CloseBufferMin,
		closeMax: cfg.CloseBufferMax,
		now:      cfg.Now,
		rng:      cfg.Rand,
		logger:   logger.With(slog.String("component", "round")),
	}
}

// Engine exposes the pricing engine for read-only price previews.
func (s *Store) Engine() *amm.Engine {
	return s.engine
}

// CreateRound creates the round for the given start time, idempotently: if a
// round for that minute already exists it is returned unchanged, so duplicate
// creation under concurrent requests collapses to one round.
func (s *Store) CreateRound(startAt time.Time, priceAtStart float64) domain.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.createLocked(startAt, priceAtStart)
}

func (s *Store) createLocked(startAt time.Time, priceAtStart float64) *domain.Round {
	id := domain.RoundID(startAt)
	if existing, ok := s.rounds[id]; ok {
		return existing
	}

	endsAt := startAt.Add(domain.RoundDuration)

	// Uniform integer second offset in [closeMin, closeMax], drawn once.
	spread := int(s.closeMax/time.Second-s.closeMin/time.Second) + 1
	buffer := s.closeMin + time.Duration(s.rng.Intn(spread))*time.Second

	r := &domain.Round{
		ID:              id,
		StartAt:         startAt,
		EndsAt:          endsAt,
		TradingClosesAt: endsAt.Add(-buffer),
		PriceAtStart:    priceAtStart,
		Status:          domain.StatusTrading,
	}
	s.rounds[id] = r
	s.current = id

	s.logger.Info("round created",
		slog.String("round_id", id),
		slog.Float64("price_at_start", priceAtStart),
		slog.Time("trading_closes_at", r.TradingClosesAt),
	)
	return r
}

// GetOrCreateCurrent is the central entry point. While the current round is
// still open it is returned untouched. Once its time has elapsed (or no round
// exists yet), exactly one oracle price is fetched and serves both boundaries:
// the closing print for the elapsed round and the opening print for the new
// one. This avoids two dependent external calls whose partial failure would
// leave a gap; economically the two prints are the same instant.
//
// The just-resolved round, if any, is returned alongside the current one so
// callers can surface the outcome before it is superseded.
func (s *Store) GetOrCreateCurrent(ctx context.Context, oracle domain.PriceOracle) (domain.Round, *domain.Round, error) {
	s.mu.Lock()
	if cur, ok := s.rounds[s.current]; ok && cur.Status == domain.StatusTrading && s.now().Before(cur.EndsAt) {
		snap := *cur
		s.mu.Unlock()
		return snap, nil, nil
	}
	prevID := s.current
	s.mu.Unlock()

	// Suspension point: no lock held across the external fetch.
	price, err := oracle.SpotPrice(ctx)
	if err != nil {
		return domain.Round{}, nil, fmt.Errorf("round: boundary price fetch: %w", err)
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return domain.Round{}, nil, fmt.Errorf("round: %w: bad spot price %v", domain.ErrOracleFailure, price)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have crossed the boundary while we were fetching.
	if cur, ok := s.rounds[s.current]; ok && cur.Status == domain.StatusTrading && s.now().Before(cur.EndsAt) {
		return *cur, nil, nil
	}

	var resolved *domain.Round
	if prev, ok := s.rounds[prevID]; ok && prev.Status == domain.StatusTrading && !s.now().Before(prev.EndsAt) {
		snap := *s.resolveLocked(prev, price)
		resolved = &snap
	}

	cur := s.createLocked(s.now().Truncate(time.Minute), price)
	return *cur, resolved, nil
}

// ResolveRound settles the round with the given closing price. It is a no-op
// returning nil when the round does not exist or is already resolved, so
// double invocation is harmless.
func (s *Store) ResolveRound(id string, priceAtEnd float64) *domain.Round {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok || r.Status != domain.StatusTrading {
		return nil
	}
	snap := *s.resolveLocked(r, priceAtEnd)
	return &snap
}

func (s *Store) resolveLocked(r *domain.Round, priceAtEnd float64) *domain.Round {
	r.PriceAtEnd = priceAtEnd
	r.Outcome = settle.OutcomeFor(r.PriceAtStart, priceAtEnd)
	r.Status = domain.StatusResolved

	s.logger.Info("round resolved",
		slog.String("round_id", r.ID),
		slog.String("outcome", string(r.Outcome)),
		slog.Float64("price_at_start", r.PriceAtStart),
		slog.Float64("price_at_end", priceAtEnd),
		slog.Float64("volume", r.Pool.VolumeTraded),
	)
	return r
}

// ExecuteTrade buys shares in a round. Every failure is reported in the
// result, never panicked or returned as an error, so the API layer maps
// outcomes to status codes directly. The trading window is checked against
// the store's wall clock, independent of any client countdown.
func (s *Store) ExecuteTrade(roundID, user string, side domain.Side, amountUSD float64) domain.TradeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[roundID]
	if !ok {
		return domain.TradeResult{Error: "round not found"}
	}
	if r.Status != domain.StatusTrading {
		return domain.TradeResult{Error: "round not trading"}
	}
	if !s.now().Before(r.EffectiveClose()) {
		return domain.TradeResult{Error: "trading window closed"}
	}
	if side != domain.SideUp && side != domain.SideDown {
		return domain.TradeResult{Error: "invalid side"}
	}
	if amountUSD <= 0 {
		return domain.TradeResult{Error: "invalid amount"}
	}

	res := s.engine.BuyShares(r.Pool, side, amountUSD)
	if res.SharesReceived <= 0 {
		return domain.TradeResult{Error: "insufficient amount"}
	}

	// Single mutation point for pool state after creation.
	r.Pool = res.NewPool

	s.trades[roundID] = append(s.trades[roundID], domain.Trade{
		ID:            uuid.NewString(),
		RoundID:       roundID,
		User:          user,
		Side:          side,
		AmountUSD:     amountUSD,
		Shares:        res.SharesReceived,
		PricePerShare: res.PricePerShare,
		ExecutedAt:    s.now(),
	})

	return domain.TradeResult{
		Success:        true,
		SharesReceived: res.SharesReceived,
		PricePerShare:  res.PricePerShare,
	}
}

// GetRound returns a snapshot of the round with the given id.
func (s *Store) GetRound(id string) (domain.Round, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok {
		return domain.Round{}, false
	}
	return *r, true
}

// ListRecent returns up to limit rounds sorted by start time descending.
func (s *Store) ListRecent(limit int) []domain.Round {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Round, 0, len(s.rounds))
	for _, r := range s.rounds {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartAt.After(out[j].StartAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Trades returns a copy of all accepted trades for a round in execution order.
func (s *Store) Trades(roundID string) []domain.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	trades := s.trades[roundID]
	out := make([]domain.Trade, len(trades))
	copy(out, trades)
	return out
}

// PositionFor replays a user's accepted trades for a round into a position.
func (s *Store) PositionFor(roundID, user string) domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pos domain.Position
	for _, t := range s.trades[roundID] {
		if t.User == user {
			pos.Add(t)
		}
	}
	return pos
}
