package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minuteflip/flipd/internal/domain"
	"github.com/minuteflip/flipd/internal/server"
	"github.com/minuteflip/flipd/internal/server/handler"
	"github.com/minuteflip/flipd/internal/server/ws"
)

// tickInterval is how often the round ticker polls the oracle, checks the
// minute boundary, and publishes a price tick. Boundary crossings resolve on
// the first tick past the minute regardless of client traffic.
const tickInterval = 2 * time.Second

// MarketMode runs the in-memory market engine with the HTTP + WebSocket API.
// No database is involved; history is capped to process lifetime.
func (a *App) MarketMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting market mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHub(ctx, g, deps)
	a.startServer(ctx, g, deps)
	a.startTicker(ctx, g, deps)
	return g.Wait()
}

// IndexMode runs the engine plus the history indexer: resolved rounds are
// persisted to PostgreSQL, leaderboards aggregated, and archives uploaded.
func (a *App) IndexMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting index mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHub(ctx, g, deps)
	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps)
	}
	a.startTicker(ctx, g, deps)
	return g.Wait()
}

// FullMode runs everything: engine, API, indexer, archiver, and the chain
// proxy when enabled.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHub(ctx, g, deps)
	a.startServer(ctx, g, deps)
	a.startTicker(ctx, g, deps)
	return g.Wait()
}

// startHub launches the WebSocket hub event loop.
func (a *App) startHub(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	a.hub = hub

	g.Go(func() error {
		err := hub.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})
}

// startServer builds the handler set and runs the HTTP server with graceful
// shutdown on context cancellation.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Rounds: handler.NewRoundHandler(
			deps.Engine, deps.Oracle, deps.RoundStore, a.logger),
		Trades: handler.NewTradeHandler(deps.Engine, a.logger),
		Prices: handler.NewPriceHandler(
			deps.Oracle, deps.Candles, a.cfg.Oracle.BinanceSymbol, a.logger),
		Leaderboard: handler.NewLeaderboardHandler(
			deps.LeaderboardCache, deps.LeaderboardStore, a.logger),
		Positions: handler.NewPositionHandler(deps.Engine, a.logger),
	}
	if deps.Chain != nil {
		handlers.Chain = handler.NewChainHandler(deps.Chain, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, handlers, a.hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startTicker launches the round ticker: it drives minute-boundary crossings
// even with no polling clients, publishes price ticks, and hands resolved
// rounds to the indexer when one is wired.
func (a *App) startTicker(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	g.Go(func() error {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				a.tick(ctx, deps)
			}
		}
	})
}

// tick runs one poll cycle. Oracle failures are logged and retried next tick;
// a transient feed outage must not kill the loop.
func (a *App) tick(ctx context.Context, deps *Dependencies) {
	current, resolved, err := deps.Engine.GetOrCreateCurrent(ctx, deps.Oracle)
	if err != nil {
		a.logger.WarnContext(ctx, "tick: boundary check failed",
			slog.String("error", err.Error()),
		)
		return
	}

	a.publishPriceTick(ctx, deps, current)

	if resolved != nil {
		a.onRoundResolved(ctx, deps, *resolved)
		a.publishRoundEvent(ctx, deps, "round_created", current)
	}
}

// onRoundResolved fans a settled round out to the indexer, the signal bus,
// and the notifier.
func (a *App) onRoundResolved(ctx context.Context, deps *Dependencies, resolved domain.Round) {
	trades := deps.Engine.Trades(resolved.ID)

	if deps.Indexer != nil {
		// The indexer publishes the resolution event itself after persisting.
		if err := deps.Indexer.IndexRound(ctx, resolved, trades); err != nil {
			a.logger.ErrorContext(ctx, "tick: index round failed",
				slog.String("round_id", resolved.ID),
				slog.String("error", err.Error()),
			)
			_ = deps.Notifier.Error(ctx, "indexer", err)
		}
	} else {
		a.publishRoundEvent(ctx, deps, "round_resolved", resolved)
	}

	if err := deps.Notifier.RoundResolved(ctx, resolved); err != nil {
		a.logger.WarnContext(ctx, "tick: resolution notice failed",
			slog.String("round_id", resolved.ID),
			slog.String("error", err.Error()),
		)
	}
}

// publishPriceTick pushes the latest oracle quote onto the "prices" channel.
func (a *App) publishPriceTick(ctx context.Context, deps *Dependencies, current domain.Round) {
	price, err := deps.Oracle.SpotPrice(ctx)
	if err != nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"symbol":    a.cfg.Oracle.BinanceSymbol,
		"price":     price,
		"round_id":  current.ID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := deps.SignalBus.Publish(ctx, "prices", payload); err != nil {
		a.logger.DebugContext(ctx, "tick: price publish failed",
			slog.String("error", err.Error()),
		)
	}
}

// publishRoundEvent pushes a round lifecycle event onto the "rounds" channel.
func (a *App) publishRoundEvent(ctx context.Context, deps *Dependencies, event string, round domain.Round) {
	payload, err := json.Marshal(map[string]any{
		"event": event,
		"round": round,
	})
	if err != nil {
		return
	}
	if err := deps.SignalBus.Publish(ctx, "rounds", payload); err != nil {
		a.logger.DebugContext(ctx, "tick: round event publish failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
