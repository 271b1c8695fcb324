// Package config defines the top-level configuration for flipd and provides
// loading and validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FLIPD_* environment variables.
type Config struct {
	Market   MarketConfig  `toml:"market"`
	Oracle   OracleConfig  `toml:"oracle"`
	History  HistoryConfig `toml:"history"`
	Redis    RedisConfig   `toml:"redis"`
	Archive  ArchiveConfig `toml:"archive"`
	Chain    ChainConfig   `toml:"chain"`
	Server   ServerConfig  `toml:"server"`
	Notify   NotifyConfig  `toml:"notify"`
	Mode     string        `toml:"mode"`
	LogLevel string        `toml:"log_level"`
}

// MarketConfig holds the AMM and round-window parameters.
type MarketConfig struct {
	// Liquidity is the LMSR base liquidity constant B0 in USD units.
	Liquidity float64 `toml:"liquidity"`
	// CloseBufferMinSec / CloseBufferMaxSec bound the randomized
	// trading-close offset before round end, in whole seconds.
	CloseBufferMinSec int `toml:"close_buffer_min_sec"`
	CloseBufferMaxSec int `toml:"close_buffer_max_sec"`
}

// OracleConfig holds price feed endpoints and caching parameters.
type OracleConfig struct {
	BinanceHost   string   `toml:"binance_host"`
	BinanceSymbol string   `toml:"binance_symbol"`
	CoinbaseHost  string   `toml:"coinbase_host"`
	CoinbasePair  string   `toml:"coinbase_pair"`
	Timeout       duration `toml:"timeout"`
	CacheMaxAge   duration `toml:"cache_max_age"`
}

// HistoryConfig holds PostgreSQL connection parameters for the read-side
// round history indexer.
type HistoryConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ArchiveConfig holds S3-compatible object storage parameters for round
// archival.
type ArchiveConfig struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ChainConfig holds the EVM node endpoint for the read-only RPC proxy.
type ChainConfig struct {
	Enabled bool     `toml:"enabled"`
	RPCURL  string   `toml:"rpc_url"`
	Timeout duration `toml:"timeout"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled         bool     `toml:"enabled"`
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	APIKey          string   `toml:"api_key"`
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Market: MarketConfig{
			Liquidity:         3000,
			CloseBufferMinSec: 10,
			CloseBufferMaxSec: 14,
		},
		Oracle: OracleConfig{
			BinanceHost:   "https://api.binance.com",
			BinanceSymbol: "BTCUSDT",
			CoinbaseHost:  "https://api.coinbase.com",
			CoinbasePair:  "BTC-USD",
			Timeout:       duration{10 * time.Second},
			CacheMaxAge:   duration{2 * time.Second},
		},
		History: HistoryConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "flipd",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		Archive: ArchiveConfig{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "flipd-rounds",
			ForcePathStyle: true,
		},
		Chain: ChainConfig{
			Enabled: false,
			Timeout: duration{15 * time.Second},
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:       60,
			RateLimitWindow: duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"round_resolved", "error"},
		},
		Mode:     "market",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"market": true,
	"index":  true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: market, index, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Market
	if c.Market.Liquidity <= 0 {
		errs = append(errs, "market: liquidity must be > 0")
	}
	if c.Market.CloseBufferMinSec < 1 {
		errs = append(errs, "market: close_buffer_min_sec must be >= 1")
	}
	if c.Market.CloseBufferMaxSec < c.Market.CloseBufferMinSec {
		errs = append(errs, "market: close_buffer_max_sec must be >= close_buffer_min_sec")
	}
	if c.Market.CloseBufferMaxSec >= 60 {
		errs = append(errs, "market: close_buffer_max_sec must leave part of the round tradable")
	}

	// Oracle
	if c.Oracle.BinanceHost == "" && c.Oracle.CoinbaseHost == "" {
		errs = append(errs, "oracle: at least one of binance_host or coinbase_host must be set")
	}
	if c.Oracle.Timeout.Duration <= 0 {
		errs = append(errs, "oracle: timeout must be > 0")
	}

	// History — required only for modes that index.
	needsHistory := c.Mode == "index" || c.Mode == "full"
	if needsHistory {
		if strings.TrimSpace(c.History.DSN) == "" {
			if c.History.Host == "" {
				errs = append(errs, "history: host must not be empty (or set history.dsn)")
			}
			if c.History.Port <= 0 || c.History.Port > 65535 {
				errs = append(errs, fmt.Sprintf("history: port must be 1-65535, got %d", c.History.Port))
			}
			if c.History.Database == "" {
				errs = append(errs, "history: database must not be empty")
			}
		}
		if c.History.PoolMaxConns < 1 {
			errs = append(errs, "history: pool_max_conns must be >= 1")
		}
		if c.History.PoolMinConns < 0 || c.History.PoolMinConns > c.History.PoolMaxConns {
			errs = append(errs, "history: pool_min_conns must be 0..pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Archive
	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" {
			errs = append(errs, "archive: endpoint must not be empty when enabled")
		}
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket must not be empty when enabled")
		}
	}

	// Chain
	if c.Chain.Enabled && c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty when enabled")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
