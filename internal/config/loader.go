package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FLIPD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FLIPD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Market ──
	setFloat64(&cfg.Market.Liquidity, "FLIPD_MARKET_LIQUIDITY")
	setInt(&cfg.Market.CloseBufferMinSec, "FLIPD_MARKET_CLOSE_BUFFER_MIN_SEC")
	setInt(&cfg.Market.CloseBufferMaxSec, "FLIPD_MARKET_CLOSE_BUFFER_MAX_SEC")

	// ── Oracle ──
	setStr(&cfg.Oracle.BinanceHost, "FLIPD_ORACLE_BINANCE_HOST")
	setStr(&cfg.Oracle.BinanceSymbol, "FLIPD_ORACLE_BINANCE_SYMBOL")
	setStr(&cfg.Oracle.CoinbaseHost, "FLIPD_ORACLE_COINBASE_HOST")
	setStr(&cfg.Oracle.CoinbasePair, "FLIPD_ORACLE_COINBASE_PAIR")
	setDuration(&cfg.Oracle.Timeout, "FLIPD_ORACLE_TIMEOUT")
	setDuration(&cfg.Oracle.CacheMaxAge, "FLIPD_ORACLE_CACHE_MAX_AGE")

	// ── History ──
	setStr(&cfg.History.DSN, "FLIPD_HISTORY_DSN")
	setStr(&cfg.History.Host, "FLIPD_HISTORY_HOST")
	setInt(&cfg.History.Port, "FLIPD_HISTORY_PORT")
	setStr(&cfg.History.Database, "FLIPD_HISTORY_DATABASE")
	setStr(&cfg.History.User, "FLIPD_HISTORY_USER")
	setStr(&cfg.History.Password, "FLIPD_HISTORY_PASSWORD")
	setStr(&cfg.History.SSLMode, "FLIPD_HISTORY_SSL_MODE")
	setInt(&cfg.History.PoolMaxConns, "FLIPD_HISTORY_POOL_MAX_CONNS")
	setInt(&cfg.History.PoolMinConns, "FLIPD_HISTORY_POOL_MIN_CONNS")
	setBool(&cfg.History.RunMigrations, "FLIPD_HISTORY_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FLIPD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FLIPD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FLIPD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FLIPD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FLIPD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FLIPD_REDIS_TLS_ENABLED")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "FLIPD_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "FLIPD_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "FLIPD_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "FLIPD_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "FLIPD_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "FLIPD_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "FLIPD_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "FLIPD_ARCHIVE_FORCE_PATH_STYLE")

	// ── Chain ──
	setBool(&cfg.Chain.Enabled, "FLIPD_CHAIN_ENABLED")
	setStr(&cfg.Chain.RPCURL, "FLIPD_CHAIN_RPC_URL")
	setDuration(&cfg.Chain.Timeout, "FLIPD_CHAIN_TIMEOUT")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "FLIPD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "FLIPD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FLIPD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "FLIPD_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "FLIPD_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "FLIPD_SERVER_RATE_LIMIT_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FLIPD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FLIPD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FLIPD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "FLIPD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "FLIPD_MODE")
	setStr(&cfg.LogLevel, "FLIPD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
