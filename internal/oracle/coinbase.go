package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// CoinbaseClient fetches spot prices from the Coinbase public API. It serves
// as the failover source behind Binance.
type CoinbaseClient struct {
	baseURL    string
	pair       string
	httpClient *http.Client
}

// NewCoinbaseClient creates a Coinbase client for the given currency pair
// (e.g. "BTC-USD").
func NewCoinbaseClient(baseURL, pair string, timeout time.Duration) *CoinbaseClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CoinbaseClient{
		baseURL: baseURL,
		pair:    pair,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SpotPrice returns the latest spot price for the configured pair.
func (c *CoinbaseClient) SpotPrice(ctx context.Context) (float64, error) {
	path := fmt.Sprintf("/v2/prices/%s/spot", c.pair)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("oracle/coinbase: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("oracle/coinbase: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("oracle/coinbase: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("oracle/coinbase: unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var out struct {
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("oracle/coinbase: decode spot: %w", err)
	}

	price, err := strconv.ParseFloat(out.Data.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("oracle/coinbase: parse amount %q: %w", out.Data.Amount, err)
	}
	return price, nil
}
