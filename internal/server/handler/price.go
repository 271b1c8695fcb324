package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/minuteflip/flipd/internal/domain"
)

// PriceHandler serves oracle spot price and candle endpoints.
type PriceHandler struct {
	oracle  domain.PriceOracle
	candles domain.CandleSource // optional
	symbol  string
	logger  *slog.Logger
}

// NewPriceHandler creates a PriceHandler. candles may be nil if no candle
// source is configured.
func NewPriceHandler(oracle domain.PriceOracle, candles domain.CandleSource, symbol string, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{
		oracle:  oracle,
		candles: candles,
		symbol:  symbol,
		logger:  logger,
	}
}

// GetPrice returns the latest oracle spot price.
// GET /api/price
func (h *PriceHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	price, err := h.oracle.SpotPrice(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: spot price failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusServiceUnavailable, "price oracle unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":    h.symbol,
		"price":     price,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetCandles returns recent OHLCV candles from the upstream exchange.
// GET /api/candles?interval=1m&limit=60
func (h *PriceHandler) GetCandles(w http.ResponseWriter, r *http.Request) {
	if h.candles == nil {
		writeError(w, http.StatusNotFound, "candle source not configured")
		return
	}

	q := r.URL.Query()
	interval := q.Get("interval")
	if interval == "" {
		interval = "1m"
	}

	limit := 60
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	candles, err := h.candles.Candles(r.Context(), interval, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: candles failed",
			slog.String("interval", interval),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusServiceUnavailable, "candle source unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":   h.symbol,
		"interval": interval,
		"candles":  candles,
	})
}
