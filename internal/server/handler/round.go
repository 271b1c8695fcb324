package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/minuteflip/flipd/internal/domain"
)

// RoundEngine defines the methods the round handler requires from the market
// engine. It is declared locally so the handler package does not depend on
// the concrete engine implementation.
type RoundEngine interface {
	GetOrCreateCurrent(ctx context.Context, oracle domain.PriceOracle) (domain.Round, *domain.Round, error)
	GetRound(id string) (domain.Round, bool)
	ListRecent(limit int) []domain.Round
}

// RoundHandler serves round lifecycle HTTP endpoints.
type RoundHandler struct {
	engine  RoundEngine
	oracle  domain.PriceOracle
	history domain.RoundStore // optional; settled-round fallback for old IDs
	logger  *slog.Logger
}

// NewRoundHandler creates a RoundHandler. history may be nil when the process
// runs without a database.
func NewRoundHandler(engine RoundEngine, oracle domain.PriceOracle, history domain.RoundStore, logger *slog.Logger) *RoundHandler {
	return &RoundHandler{
		engine:  engine,
		oracle:  oracle,
		history: history,
		logger:  logger,
	}
}

// currentRoundResponse carries the active round plus, on a boundary crossing,
// the round that was just resolved by the same price fetch.
type currentRoundResponse struct {
	Round    domain.Round  `json:"round"`
	Resolved *domain.Round `json:"resolved,omitempty"`
}

// GetCurrent returns the active round, creating it (and resolving its
// predecessor) on demand.
// GET /api/rounds/current
func (h *RoundHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	current, resolved, err := h.engine.GetOrCreateCurrent(r.Context(), h.oracle)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get current round failed",
			slog.String("error", err.Error()),
		)
		if errors.Is(err, domain.ErrOracleFailure) {
			writeError(w, http.StatusServiceUnavailable, "price oracle unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get current round")
		return
	}

	writeJSON(w, http.StatusOK, currentRoundResponse{
		Round:    current,
		Resolved: resolved,
	})
}

// listRoundsResponse wraps the list endpoint output with metadata.
type listRoundsResponse struct {
	Rounds []domain.Round `json:"rounds"`
	Limit  int            `json:"limit"`
}

// ListRounds returns recent rounds, newest first.
// GET /api/rounds?limit=50
func (h *RoundHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	rounds := h.engine.ListRecent(opts.Limit)
	if rounds == nil {
		rounds = []domain.Round{}
	}

	writeJSON(w, http.StatusOK, listRoundsResponse{
		Rounds: rounds,
		Limit:  opts.Limit,
	})
}

// GetRound returns one round by ID, consulting the history store for rounds
// already evicted from memory.
// GET /api/rounds/{id}
func (h *RoundHandler) GetRound(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	if round, ok := h.engine.GetRound(id); ok {
		writeJSON(w, http.StatusOK, round)
		return
	}

	if h.history != nil {
		round, err := h.history.GetByID(r.Context(), id)
		if err == nil {
			writeJSON(w, http.StatusOK, round)
			return
		}
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.ErrorContext(r.Context(), "handler: round history lookup failed",
				slog.String("round_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to get round")
			return
		}
	}

	writeError(w, http.StatusNotFound, "round not found")
}
