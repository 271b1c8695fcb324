package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/minuteflip/flipd/internal/domain"
)

// TradeExecutor defines the single method the trade handler requires from the
// market engine.
type TradeExecutor interface {
	ExecuteTrade(roundID, user string, side domain.Side, amountUSD float64) domain.TradeResult
}

// TradeHandler serves the trade placement endpoint.
type TradeHandler struct {
	executor TradeExecutor
	logger   *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given executor and logger.
func NewTradeHandler(executor TradeExecutor, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		executor: executor,
		logger:   logger,
	}
}

// placeTradeRequest is the JSON body for POST /api/trades.
type placeTradeRequest struct {
	RoundID string  `json:"roundId"`
	User    string  `json:"user"`
	Side    string  `json:"side"`
	Amount  float64 `json:"amount"`
}

// PlaceTrade executes a share purchase against the current pool. Expected
// failures come back as a structured TradeResult with a matching status code
// rather than a bare error.
// POST /api/trades
func (h *TradeHandler) PlaceTrade(w http.ResponseWriter, r *http.Request) {
	var req placeTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.RoundID) == "" || strings.TrimSpace(req.User) == "" {
		writeError(w, http.StatusBadRequest, "roundId and user are required")
		return
	}

	side, err := domain.ParseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, "side must be UP or DOWN")
		return
	}

	result := h.executor.ExecuteTrade(req.RoundID, req.User, side, req.Amount)
	if !result.Success {
		h.logger.DebugContext(r.Context(), "trade rejected",
			slog.String("round_id", req.RoundID),
			slog.String("user", req.User),
			slog.String("reason", result.Error),
		)
		writeJSON(w, tradeFailureStatus(result.Error), result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// tradeFailureStatus maps an expected trade failure to its HTTP status.
func tradeFailureStatus(reason string) int {
	switch reason {
	case "round not found":
		return http.StatusNotFound
	case "round not trading", "trading window closed":
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
