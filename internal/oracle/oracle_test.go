package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBinanceClient_SpotPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"65123.45"}`))
	}))
	defer srv.Close()

	c := NewBinanceClient(srv.URL, "BTCUSDT", time.Second)
	price, err := c.SpotPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 65123.45, price)
}

func TestBinanceClient_SpotPriceUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1003,"msg":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewBinanceClient(srv.URL, "BTCUSDT", time.Second)
	_, err := c.SpotPrice(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestBinanceClient_Candles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		w.Write([]byte(`[
			[1748779200000,"65000.0","65100.0","64950.0","65050.0","12.5",1748779259999,"0",10,"0","0","0"],
			[1748779260000,"65050.0","65200.0","65000.0","65180.0","8.1",1748779319999,"0",7,"0","0","0"]
		]`))
	}))
	defer srv.Close()

	c := NewBinanceClient(srv.URL, "BTCUSDT", time.Second)
	candles, err := c.Candles(context.Background(), "1m", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 65000.0, candles[0].Open)
	assert.Equal(t, 65180.0, candles[1].Close)
	assert.Equal(t, time.UnixMilli(1748779200000).UTC(), candles[0].OpenTime)
}

func TestCoinbaseClient_SpotPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/prices/BTC-USD/spot", r.URL.Path)
		w.Write([]byte(`{"data":{"amount":"64980.01","base":"BTC","currency":"USD"}}`))
	}))
	defer srv.Close()

	c := NewCoinbaseClient(srv.URL, "BTC-USD", time.Second)
	price, err := c.SpotPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 64980.01, price)
}

type stubOracle struct {
	price float64
	err   error
	calls int
}

func (s *stubOracle) SpotPrice(ctx context.Context) (float64, error) {
	s.calls++
	return s.price, s.err
}

func TestChain_FailsOver(t *testing.T) {
	bad := &stubOracle{err: errors.New("down")}
	degenerate := &stubOracle{price: -1}
	good := &stubOracle{price: 65000}

	chain := NewChain(discardLogger(), bad, degenerate, good)
	price, err := chain.SpotPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 65000.0, price)
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, degenerate.calls)
}

func TestChain_AllSourcesFail(t *testing.T) {
	chain := NewChain(discardLogger(), &stubOracle{err: errors.New("down")})
	_, err := chain.SpotPrice(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all sources failed")
}

type memPriceCache struct {
	price float64
	ts    time.Time
	ok    bool
	sets  int
}

func (m *memPriceCache) SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error {
	m.price, m.ts, m.ok = price, ts, true
	m.sets++
	return nil
}

func (m *memPriceCache) GetPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	if !m.ok {
		return 0, time.Time{}, errors.New("miss")
	}
	return m.price, m.ts, nil
}

func TestCached_ServesFreshQuoteWithoutRefetch(t *testing.T) {
	upstream := &stubOracle{price: 65000}
	cache := &memPriceCache{}
	c := NewCached(upstream, cache, "BTCUSDT", 5*time.Second, discardLogger())

	first, err := c.SpotPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 65000.0, first)
	assert.Equal(t, 1, upstream.calls)
	assert.Equal(t, 1, cache.sets)

	// Within maxAge: served from cache, upstream untouched.
	upstream.price = 1
	second, err := c.SpotPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 65000.0, second)
	assert.Equal(t, 1, upstream.calls)
}

func TestCached_StaleQuoteRefreshes(t *testing.T) {
	upstream := &stubOracle{price: 65000}
	cache := &memPriceCache{price: 60000, ts: time.Now().Add(-time.Minute), ok: true}
	c := NewCached(upstream, cache, "BTCUSDT", 5*time.Second, discardLogger())

	price, err := c.SpotPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 65000.0, price)
	assert.Equal(t, 1, upstream.calls)
}
