package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/minuteflip/flipd/internal/domain"
)

// ChainCaller defines the single method the chain handler requires from the
// RPC proxy.
type ChainCaller interface {
	Call(ctx context.Context, method string, params []any) (json.RawMessage, error)
}

// ChainHandler serves the read-only JSON-RPC pass-through endpoint.
type ChainHandler struct {
	caller ChainCaller
	logger *slog.Logger
}

// NewChainHandler creates a ChainHandler with the given caller and logger.
func NewChainHandler(caller ChainCaller, logger *slog.Logger) *ChainHandler {
	return &ChainHandler{
		caller: caller,
		logger: logger,
	}
}

// chainCallRequest is the JSON body for POST /api/chain/call.
type chainCallRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// Call forwards one allowlisted JSON-RPC method to the upstream node.
// POST /api/chain/call
func (h *ChainHandler) Call(w http.ResponseWriter, r *http.Request) {
	var req chainCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, "method is required")
		return
	}

	result, err := h.caller.Call(r.Context(), req.Method, req.Params)
	if err != nil {
		if errors.Is(err, domain.ErrMethodBlocked) {
			writeError(w, http.StatusForbidden, "method not allowed")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: chain call failed",
			slog.String("method", req.Method),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "upstream rpc call failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"method": req.Method,
		"result": result,
	})
}
