package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/minuteflip/flipd/internal/domain"
	"github.com/minuteflip/flipd/internal/settle"
)

// PositionSource defines the methods the position handler requires from the
// market engine.
type PositionSource interface {
	GetRound(id string) (domain.Round, bool)
	PositionFor(roundID, user string) domain.Position
}

// PositionHandler serves per-user, per-round position views.
type PositionHandler struct {
	source PositionSource
	logger *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given source and
// logger.
func NewPositionHandler(source PositionSource, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		source: source,
		logger: logger,
	}
}

// positionResponse is the JSON shape of one position view. Payout and PnL are
// present only once the round has resolved.
type positionResponse struct {
	User     string          `json:"user"`
	RoundID  string          `json:"roundId"`
	Status   string          `json:"status"`
	Position domain.Position `json:"position"`
	Payout   *float64        `json:"payout,omitempty"`
	PnL      *float64        `json:"pnl,omitempty"`
}

// GetPosition returns a user's replayed position for one round, with realized
// payout and P&L once the round is resolved.
// GET /api/positions/{user}?round=round-1748779200
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	user := pathParam(r, "user")
	roundID := strings.TrimSpace(r.URL.Query().Get("round"))
	if roundID == "" {
		writeError(w, http.StatusBadRequest, "round query parameter is required")
		return
	}

	round, ok := h.source.GetRound(roundID)
	if !ok {
		writeError(w, http.StatusNotFound, "round not found")
		return
	}

	pos := h.source.PositionFor(roundID, user)
	resp := positionResponse{
		User:     user,
		RoundID:  roundID,
		Status:   string(round.Status),
		Position: pos,
	}

	if round.Resolved() {
		payout := settle.Payout(round.Outcome, pos)
		pnl := settle.PnL(round.Outcome, pos)
		resp.Payout = &payout
		resp.PnL = &pnl
	}

	writeJSON(w, http.StatusOK, resp)
}
