package domain

import (
	"context"
	"time"
)

// PriceOracle supplies the external BTC spot price in USD. Implementations
// must return a positive finite price or an error; there is no synthetic
// fallback value, a failed fetch aborts the caller's operation.
type PriceOracle interface {
	SpotPrice(ctx context.Context) (float64, error)
}

// Candle is one OHLC bar from a historical price feed.
type Candle struct {
	OpenTime time.Time `json:"openTime"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// CandleSource supplies historical OHLC candles for the chart proxy. The
// interval uses exchange notation ("1m", "5m", "1h").
type CandleSource interface {
	Candles(ctx context.Context, interval string, limit int) ([]Candle, error)
}
