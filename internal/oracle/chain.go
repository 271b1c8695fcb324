package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/minuteflip/flipd/internal/domain"
)

// Chain tries an ordered list of price sources and returns the first healthy
// quote. It fails only when every source fails; there is no synthetic
// fallback price.
type Chain struct {
	sources []domain.PriceOracle
	logger  *slog.Logger
}

// NewChain creates a failover chain over the given sources, tried in order.
func NewChain(logger *slog.Logger, sources ...domain.PriceOracle) *Chain {
	return &Chain{
		sources: sources,
		logger:  logger.With(slog.String("component", "oracle")),
	}
}

// SpotPrice returns the first positive finite price produced by a source.
func (c *Chain) SpotPrice(ctx context.Context) (float64, error) {
	var errs []error
	for i, src := range c.sources {
		price, err := src.SpotPrice(ctx)
		if err == nil && price > 0 && !math.IsInf(price, 0) && !math.IsNaN(price) {
			return price, nil
		}
		if err == nil {
			err = fmt.Errorf("%w: bad quote %v", domain.ErrOracleFailure, price)
		}
		c.logger.Warn("price source failed",
			slog.Int("source", i),
			slog.String("error", err.Error()),
		)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return 0, fmt.Errorf("oracle: %w: no sources configured", domain.ErrOracleFailure)
	}
	return 0, fmt.Errorf("oracle: all sources failed: %w", errors.Join(errs...))
}

var _ domain.PriceOracle = (*Chain)(nil)
