package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Validate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "market", cfg.Mode)
	assert.Equal(t, 3000.0, cfg.Market.Liquidity)
	assert.Equal(t, 10, cfg.Market.CloseBufferMinSec)
	assert.Equal(t, 14, cfg.Market.CloseBufferMaxSec)
}

func TestLoad_TOMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "market"

[market]
liquidity = 5000.0

[oracle]
timeout = "3s"

[server]
port = 9001
`), 0o644))

	t.Setenv("FLIPD_MARKET_LIQUIDITY", "7500")
	t.Setenv("FLIPD_REDIS_ADDR", "redis.internal:6380")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	// Env beats TOML, TOML beats defaults.
	assert.Equal(t, 7500.0, cfg.Market.Liquidity)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Oracle.Timeout.Duration)
	assert.Equal(t, "BTCUSDT", cfg.Oracle.BinanceSymbol)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.Market.Liquidity = 0
	cfg.Market.CloseBufferMinSec = 20
	cfg.Market.CloseBufferMaxSec = 10

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "liquidity")
	assert.Contains(t, err.Error(), "close_buffer_max_sec")
}

func TestValidate_HistoryRequiredForIndexMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "index"
	cfg.History.DSN = ""
	cfg.History.Host = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history: host")

	cfg.History.DSN = "postgres://flipd:secret@db:5432/flipd"
	assert.NoError(t, cfg.Validate())
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Password = "hunter2"
	cfg.Server.APIKey = "key123"
	cfg.Notify.TelegramToken = "tok"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	// Original untouched.
	assert.Equal(t, "hunter2", cfg.Redis.Password)
}
