package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/minuteflip/flipd/internal/blob/s3"
	"github.com/minuteflip/flipd/internal/cache/redis"
	"github.com/minuteflip/flipd/internal/chain"
	"github.com/minuteflip/flipd/internal/config"
	"github.com/minuteflip/flipd/internal/domain"
	"github.com/minuteflip/flipd/internal/indexer"
	"github.com/minuteflip/flipd/internal/notify"
	"github.com/minuteflip/flipd/internal/oracle"
	"github.com/minuteflip/flipd/internal/round"
	"github.com/minuteflip/flipd/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Market engine.
	Engine *round.Store

	// Oracle: failover chain wrapped in the redis-backed cache decorator.
	Oracle  domain.PriceOracle
	Candles domain.CandleSource

	// Caches.
	PriceCache       domain.PriceCache
	LeaderboardCache domain.LeaderboardCache
	RateLimiter      domain.RateLimiter
	SignalBus        domain.SignalBus

	// History stores (nil in market mode).
	RoundStore       domain.RoundStore
	TradeStore       domain.TradeStore
	LeaderboardStore domain.LeaderboardStore

	// Blob storage (nil unless archival is enabled).
	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	// Indexer (nil in market mode).
	Indexer *indexer.Indexer

	// Chain proxy (nil unless enabled).
	Chain *chain.Proxy

	// Notifications.
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that persist round history.
func needsPostgres(mode string) bool {
	switch mode {
	case "index", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis (always required: price cache, rate limit, signal bus) ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient, time.Minute)
	deps.LeaderboardCache = redis.NewLeaderboardCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Oracle: binance primary, coinbase failover, cached front ---
	var sources []domain.PriceOracle
	if cfg.Oracle.BinanceHost != "" {
		binance := oracle.NewBinanceClient(
			cfg.Oracle.BinanceHost,
			cfg.Oracle.BinanceSymbol,
			cfg.Oracle.Timeout.Duration,
		)
		sources = append(sources, binance)
		deps.Candles = binance
	}
	if cfg.Oracle.CoinbaseHost != "" {
		sources = append(sources, oracle.NewCoinbaseClient(
			cfg.Oracle.CoinbaseHost,
			cfg.Oracle.CoinbasePair,
			cfg.Oracle.Timeout.Duration,
		))
	}
	failover := oracle.NewChain(logger, sources...)
	deps.Oracle = oracle.NewCached(
		failover,
		deps.PriceCache,
		cfg.Oracle.BinanceSymbol,
		cfg.Oracle.CacheMaxAge.Duration,
		logger,
	)

	// --- Market engine ---
	deps.Engine = round.NewStore(round.Config{
		Liquidity:      cfg.Market.Liquidity,
		CloseBufferMin: time.Duration(cfg.Market.CloseBufferMinSec) * time.Second,
		CloseBufferMax: time.Duration(cfg.Market.CloseBufferMaxSec) * time.Second,
	}, logger)

	// --- PostgreSQL (only for modes that index) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.History.DSN,
			Host:     cfg.History.Host,
			Port:     cfg.History.Port,
			Database: cfg.History.Database,
			User:     cfg.History.User,
			Password: cfg.History.Password,
			SSLMode:  cfg.History.SSLMode,
			MaxConns: cfg.History.PoolMaxConns,
			MinConns: cfg.History.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.History.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.RoundStore = postgres.NewRoundStore(pool)
		deps.TradeStore = postgres.NewTradeStore(pool)
		deps.LeaderboardStore = postgres.NewLeaderboardStore(pool)
	}

	// --- S3 blob storage (optional round archival) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         cfg.Archive.UseSSL,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewRoundArchiver(deps.BlobWriter, logger)
	}

	// --- Indexer (needs the history stores) ---
	if deps.RoundStore != nil {
		deps.Indexer = indexer.New(indexer.Config{
			Rounds:      deps.RoundStore,
			Trades:      deps.TradeStore,
			Leaderboard: deps.LeaderboardStore,
			LBCache:     deps.LeaderboardCache,
			Archiver:    deps.Archiver,
			Bus:         deps.SignalBus,
		}, logger)
	}

	// --- Chain proxy ---
	if cfg.Chain.Enabled {
		proxy, err := chain.New(ctx, chain.Config{
			RPCURL:  cfg.Chain.RPCURL,
			Timeout: cfg.Chain.Timeout.Duration,
		}, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain: %w", err)
		}
		deps.Chain = proxy
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
