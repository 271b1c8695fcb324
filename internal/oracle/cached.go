package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/minuteflip/flipd/internal/domain"
)

// Cached decorates a PriceOracle with a shared price cache. Quotes younger
// than maxAge are served from the cache so a burst of polling clients does
// not hammer the upstream exchange; cache writes after a refresh are
// best-effort.
type Cached struct {
	inner  domain.PriceOracle
	cache  domain.PriceCache
	symbol string
	maxAge time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewCached wraps inner with the given cache. A nil cache or non-positive
// maxAge disables caching and passes every call through.
func NewCached(inner domain.PriceOracle, cache domain.PriceCache, symbol string, maxAge time.Duration, logger *slog.Logger) *Cached {
	return &Cached{
		inner:  inner,
		cache:  cache,
		symbol: symbol,
		maxAge: maxAge,
		now:    time.Now,
		logger: logger.With(slog.String("component", "oracle_cache")),
	}
}

// SpotPrice returns a cached quote when fresh enough, refreshing through the
// underlying oracle otherwise.
func (c *Cached) SpotPrice(ctx context.Context) (float64, error) {
	if c.cache != nil && c.maxAge > 0 {
		if price, ts, err := c.cache.GetPrice(ctx, c.symbol); err == nil {
			if c.now().Sub(ts) < c.maxAge && price > 0 {
				return price, nil
			}
		}
	}

	price, err := c.inner.SpotPrice(ctx)
	if err != nil {
		return 0, err
	}

	if c.cache != nil {
		if err := c.cache.SetPrice(ctx, c.symbol, price, c.now()); err != nil {
			c.logger.Warn("price cache write failed", slog.String("error", err.Error()))
		}
	}
	return price, nil
}

var _ domain.PriceOracle = (*Cached)(nil)
