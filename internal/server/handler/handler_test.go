package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minuteflip/flipd/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEngine implements the narrow engine interfaces handlers declare.
type fakeEngine struct {
	current     domain.Round
	resolved    *domain.Round
	currentErr  error
	rounds      map[string]domain.Round
	recent      []domain.Round
	tradeResult domain.TradeResult
	positions   map[string]domain.Position // key: roundID + "/" + user
}

func (f *fakeEngine) GetOrCreateCurrent(_ context.Context, _ domain.PriceOracle) (domain.Round, *domain.Round, error) {
	return f.current, f.resolved, f.currentErr
}

func (f *fakeEngine) GetRound(id string) (domain.Round, bool) {
	r, ok := f.rounds[id]
	return r, ok
}

func (f *fakeEngine) ListRecent(_ int) []domain.Round {
	return f.recent
}

func (f *fakeEngine) ExecuteTrade(_, _ string, _ domain.Side, _ float64) domain.TradeResult {
	return f.tradeResult
}

func (f *fakeEngine) PositionFor(roundID, user string) domain.Position {
	return f.positions[roundID+"/"+user]
}

type stubOracle struct {
	price float64
	err   error
}

func (s *stubOracle) SpotPrice(_ context.Context) (float64, error) {
	return s.price, s.err
}

func tradingRound(start time.Time) domain.Round {
	return domain.Round{
		ID:           domain.RoundID(start),
		StartAt:      start,
		EndsAt:       start.Add(domain.RoundDuration),
		PriceAtStart: 64000,
		Status:       domain.StatusTrading,
	}
}

func TestGetCurrent_ReturnsRoundAndResolvedPredecessor(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC)
	prev := tradingRound(start.Add(-domain.RoundDuration))
	prev.Status = domain.StatusResolved
	prev.PriceAtEnd = 64100
	prev.Outcome = domain.SideUp

	engine := &fakeEngine{current: tradingRound(start), resolved: &prev}
	h := NewRoundHandler(engine, &stubOracle{price: 64100}, nil, testLogger())

	rec := httptest.NewRecorder()
	h.GetCurrent(rec, httptest.NewRequest(http.MethodGet, "/api/rounds/current", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp currentRoundResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, engine.current.ID, resp.Round.ID)
	require.NotNil(t, resp.Resolved)
	assert.Equal(t, domain.SideUp, resp.Resolved.Outcome)
}

func TestGetCurrent_OracleFailureIs503(t *testing.T) {
	engine := &fakeEngine{currentErr: domain.ErrOracleFailure}
	h := NewRoundHandler(engine, &stubOracle{}, nil, testLogger())

	rec := httptest.NewRecorder()
	h.GetCurrent(rec, httptest.NewRequest(http.MethodGet, "/api/rounds/current", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetRound_FallsBackToHistory(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := tradingRound(start)
	old.Status = domain.StatusResolved

	engine := &fakeEngine{rounds: map[string]domain.Round{}}
	history := &stubRoundStore{rounds: map[string]domain.Round{old.ID: old}}
	h := NewRoundHandler(engine, &stubOracle{}, history, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/rounds/{id}", h.GetRound)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rounds/"+old.ID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Round
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, old.ID, got.ID)
}

func TestGetRound_UnknownIs404(t *testing.T) {
	engine := &fakeEngine{rounds: map[string]domain.Round{}}
	h := NewRoundHandler(engine, &stubOracle{}, nil, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/rounds/{id}", h.GetRound)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rounds/round-0", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubRoundStore struct {
	rounds map[string]domain.Round
}

func (s *stubRoundStore) Insert(_ context.Context, _ domain.Round) error { return nil }

func (s *stubRoundStore) GetByID(_ context.Context, id string) (domain.Round, error) {
	r, ok := s.rounds[id]
	if !ok {
		return domain.Round{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *stubRoundStore) ListRecent(_ context.Context, _ domain.ListOpts) ([]domain.Round, error) {
	return nil, nil
}

func (s *stubRoundStore) Count(_ context.Context) (int64, error) { return 0, nil }

func placeTrade(t *testing.T, h *TradeHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(body))
	h.PlaceTrade(rec, req)
	return rec
}

func TestPlaceTrade_Success(t *testing.T) {
	engine := &fakeEngine{tradeResult: domain.TradeResult{
		Success:        true,
		SharesReceived: 19.9,
		PricePerShare:  0.5025,
	}}
	h := NewTradeHandler(engine, testLogger())

	rec := placeTrade(t, h, `{"roundId":"round-1","user":"alice","side":"UP","amount":10}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var result domain.TradeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.InDelta(t, 19.9, result.SharesReceived, 1e-9)
}

func TestPlaceTrade_FailureStatusMapping(t *testing.T) {
	cases := []struct {
		reason string
		status int
	}{
		{"round not found", http.StatusNotFound},
		{"round not trading", http.StatusConflict},
		{"trading window closed", http.StatusConflict},
		{"invalid amount", http.StatusBadRequest},
		{"insufficient amount", http.StatusBadRequest},
	}

	for _, tc := range cases {
		engine := &fakeEngine{tradeResult: domain.TradeResult{
			Success: false,
			Error:   tc.reason,
		}}
		h := NewTradeHandler(engine, testLogger())

		rec := placeTrade(t, h, `{"roundId":"round-1","user":"alice","side":"UP","amount":10}`)
		assert.Equal(t, tc.status, rec.Code, tc.reason)

		var result domain.TradeResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, tc.reason, result.Error)
	}
}

func TestPlaceTrade_RejectsBadInput(t *testing.T) {
	h := NewTradeHandler(&fakeEngine{}, testLogger())

	assert.Equal(t, http.StatusBadRequest, placeTrade(t, h, `not json`).Code)
	assert.Equal(t, http.StatusBadRequest,
		placeTrade(t, h, `{"roundId":"","user":"alice","side":"UP","amount":10}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		placeTrade(t, h, `{"roundId":"round-1","user":"alice","side":"SIDEWAYS","amount":10}`).Code)
}

func TestGetPrice_ServesOracleQuote(t *testing.T) {
	h := NewPriceHandler(&stubOracle{price: 64123.5}, nil, "BTCUSDT", testLogger())

	rec := httptest.NewRecorder()
	h.GetPrice(rec, httptest.NewRequest(http.MethodGet, "/api/price", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "BTCUSDT", resp["symbol"])
	assert.InDelta(t, 64123.5, resp["price"].(float64), 1e-9)
}

func TestGetPrice_OracleDownIs503(t *testing.T) {
	h := NewPriceHandler(&stubOracle{err: errors.New("timeout")}, nil, "BTCUSDT", testLogger())

	rec := httptest.NewRecorder()
	h.GetPrice(rec, httptest.NewRequest(http.MethodGet, "/api/price", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetCandles_WithoutSourceIs404(t *testing.T) {
	h := NewPriceHandler(&stubOracle{}, nil, "BTCUSDT", testLogger())

	rec := httptest.NewRecorder()
	h.GetCandles(rec, httptest.NewRequest(http.MethodGet, "/api/candles", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPosition_ResolvedRoundIncludesPnL(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	round := tradingRound(start)
	round.Status = domain.StatusResolved
	round.PriceAtEnd = 64100
	round.Outcome = domain.SideUp

	engine := &fakeEngine{
		rounds: map[string]domain.Round{round.ID: round},
		positions: map[string]domain.Position{
			round.ID + "/alice": {SharesUp: 19.9, CostUp: 10},
		},
	}
	h := NewPositionHandler(engine, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/positions/{user}", h.GetPosition)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/positions/alice?round="+round.ID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp positionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.User)
	require.NotNil(t, resp.Payout)
	require.NotNil(t, resp.PnL)
	assert.InDelta(t, 19.9, *resp.Payout, 1e-9)
	assert.InDelta(t, 9.9, *resp.PnL, 1e-9)
}

func TestGetPosition_TradingRoundOmitsPnL(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	round := tradingRound(start)

	engine := &fakeEngine{
		rounds:    map[string]domain.Round{round.ID: round},
		positions: map[string]domain.Position{},
	}
	h := NewPositionHandler(engine, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/positions/{user}", h.GetPosition)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/positions/bob?round="+round.ID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp positionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Payout)
	assert.Nil(t, resp.PnL)
}

func TestGetPosition_MissingRoundParamIs400(t *testing.T) {
	h := NewPositionHandler(&fakeEngine{}, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/positions/{user}", h.GetPosition)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions/alice", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type stubCaller struct {
	result json.RawMessage
	err    error
}

func (s *stubCaller) Call(_ context.Context, _ string, _ []any) (json.RawMessage, error) {
	return s.result, s.err
}

func TestChainCall_ForwardsResult(t *testing.T) {
	h := NewChainHandler(&stubCaller{result: json.RawMessage(`"0x1"`)}, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chain/call",
		strings.NewReader(`{"method":"eth_chainId"}`))
	h.Call(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"0x1"`)
}

func TestChainCall_BlockedMethodIs403(t *testing.T) {
	h := NewChainHandler(&stubCaller{err: domain.ErrMethodBlocked}, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chain/call",
		strings.NewReader(`{"method":"eth_sendRawTransaction"}`))
	h.Call(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type stubLeaderboard struct {
	entries []domain.LeaderboardEntry
	err     error
}

func (s *stubLeaderboard) AddPnL(_ context.Context, _ string, _ float64) error { return nil }

func (s *stubLeaderboard) Top(_ context.Context, _ int) ([]domain.LeaderboardEntry, error) {
	return s.entries, s.err
}

func (s *stubLeaderboard) RecordSettlement(_ context.Context, _, _ string, _, _ float64, _ time.Time) error {
	return nil
}

func TestLeaderboard_CacheFirstStoreFallback(t *testing.T) {
	cache := &stubLeaderboard{err: errors.New("redis down")}
	store := &stubLeaderboard{entries: []domain.LeaderboardEntry{
		{User: "alice", PnL: 42.5, Rounds: 3, Volume: 100},
	}}
	h := NewLeaderboardHandler(cache, store, testLogger())

	rec := httptest.NewRecorder()
	h.Top(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")
}

func TestLeaderboard_EmptySourcesServeEmptyBoard(t *testing.T) {
	h := NewLeaderboardHandler(nil, nil, testLogger())

	rec := httptest.NewRecorder()
	h.Top(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"leaderboard":[]`)
}

func TestLeaderboard_InvalidLimitIs400(t *testing.T) {
	h := NewLeaderboardHandler(nil, nil, testLogger())

	rec := httptest.NewRecorder()
	h.Top(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=0", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
