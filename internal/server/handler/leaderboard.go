package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/minuteflip/flipd/internal/domain"
)

// LeaderboardHandler serves the realized-P&L leaderboard. It reads from the
// redis-backed cache first and falls back to the database aggregate when the
// cache is empty or unavailable.
type LeaderboardHandler struct {
	cache  domain.LeaderboardCache // optional
	store  domain.LeaderboardStore // optional
	logger *slog.Logger
}

// NewLeaderboardHandler creates a LeaderboardHandler. Either source may be
// nil; with both nil the endpoint serves an empty board.
func NewLeaderboardHandler(cache domain.LeaderboardCache, store domain.LeaderboardStore, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		cache:  cache,
		store:  store,
		logger: logger,
	}
}

// Top returns the highest-P&L users.
// GET /api/leaderboard?limit=10
func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	entries := h.lookup(r, limit)
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"leaderboard": entries,
		"limit":       limit,
	})
}

func (h *LeaderboardHandler) lookup(r *http.Request, limit int) []domain.LeaderboardEntry {
	if h.cache != nil {
		entries, err := h.cache.Top(r.Context(), limit)
		if err != nil {
			h.logger.WarnContext(r.Context(), "leaderboard cache read failed",
				slog.String("error", err.Error()),
			)
		} else if len(entries) > 0 {
			return entries
		}
	}

	if h.store != nil {
		entries, err := h.store.Top(r.Context(), limit)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "leaderboard store read failed",
				slog.String("error", err.Error()),
			)
			return nil
		}
		return entries
	}

	return nil
}
