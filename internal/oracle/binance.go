// Package oracle implements the external BTC price feeds: REST clients for
// the spot price and OHLC candles, an ordered failover chain, and a
// redis-backed caching decorator. The browser cannot call these exchanges
// directly (CORS), so flipd proxies them.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/minuteflip/flipd/internal/domain"
)

// BinanceClient fetches spot prices and klines from the Binance public API.
type BinanceClient struct {
	baseURL    string
	symbol     string
	httpClient *http.Client
}

// NewBinanceClient creates a Binance client for the given trading symbol
// (e.g. "BTCUSDT"). baseURL is the API root, e.g. "https://api.binance.com".
func NewBinanceClient(baseURL, symbol string, timeout time.Duration) *BinanceClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BinanceClient{
		baseURL: baseURL,
		symbol:  symbol,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SpotPrice returns the latest traded price for the configured symbol.
func (b *BinanceClient) SpotPrice(ctx context.Context) (float64, error) {
	params := url.Values{}
	params.Set("symbol", b.symbol)

	body, err := b.doGet(ctx, "/api/v3/ticker/price?"+params.Encode())
	if err != nil {
		return 0, fmt.Errorf("oracle/binance: spot price: %w", err)
	}

	var out struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("oracle/binance: decode ticker: %w", err)
	}

	price, err := strconv.ParseFloat(out.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("oracle/binance: parse price %q: %w", out.Price, err)
	}
	return price, nil
}

// Candles returns up to limit OHLC bars at the given interval ("1m", "5m",
// "1h"), oldest first.
func (b *BinanceClient) Candles(ctx context.Context, interval string, limit int) ([]domain.Candle, error) {
	if interval == "" {
		interval = "1m"
	}
	if limit <= 0 || limit > 1000 {
		limit = 60
	}
	params := url.Values{}
	params.Set("symbol", b.symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	body, err := b.doGet(ctx, "/api/v3/klines?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("oracle/binance: klines: %w", err)
	}

	// Klines arrive as heterogeneous arrays:
	// [openTime, "open", "high", "low", "close", "volume", closeTime, ...]
	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("oracle/binance: decode klines: %w", err)
	}

	candles := make([]domain.Candle, 0, len(raw))
	for i, k := range raw {
		if len(k) < 6 {
			return nil, fmt.Errorf("oracle/binance: kline %d has %d fields", i, len(k))
		}
		var openMs int64
		if err := json.Unmarshal(k[0], &openMs); err != nil {
			return nil, fmt.Errorf("oracle/binance: kline %d open time: %w", i, err)
		}
		c := domain.Candle{OpenTime: time.UnixMilli(openMs).UTC()}
		for j, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume} {
			var s string
			if err := json.Unmarshal(k[j+1], &s); err != nil {
				return nil, fmt.Errorf("oracle/binance: kline %d field %d: %w", i, j+1, err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("oracle/binance: kline %d field %d %q: %w", i, j+1, s, err)
			}
			*dst = v
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (b *BinanceClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
