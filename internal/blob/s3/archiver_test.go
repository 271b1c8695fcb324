package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minuteflip/flipd/internal/domain"
)

type capturingWriter struct {
	path        string
	contentType string
	body        []byte
}

func (w *capturingWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	w.path = path
	w.contentType = contentType
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.body = b
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchiveRound_WritesRoundAndTradesAsJSONL(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	round := domain.Round{
		ID:           domain.RoundID(start),
		StartAt:      start,
		EndsAt:       start.Add(domain.RoundDuration),
		PriceAtStart: 64000,
		PriceAtEnd:   64100,
		Outcome:      domain.SideUp,
		Status:       domain.StatusResolved,
	}
	trades := []domain.Trade{
		{ID: "t1", RoundID: round.ID, User: "alice", Side: domain.SideUp, AmountUSD: 10},
		{ID: "t2", RoundID: round.ID, User: "bob", Side: domain.SideDown, AmountUSD: 5},
	}

	w := &capturingWriter{}
	arc := NewRoundArchiver(w, discardLogger())

	path, err := arc.ArchiveRound(context.Background(), round, trades)
	require.NoError(t, err)
	assert.Equal(t, "rounds/2025/06/01/round-1748779200.jsonl", path)
	assert.Equal(t, path, w.path)
	assert.Equal(t, "application/x-ndjson", w.contentType)

	scanner := bufio.NewScanner(bytes.NewReader(w.body))

	require.True(t, scanner.Scan())
	var gotRound domain.Round
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &gotRound))
	assert.Equal(t, round.ID, gotRound.ID)
	assert.Equal(t, domain.SideUp, gotRound.Outcome)

	var gotTrades []domain.Trade
	for scanner.Scan() {
		var tr domain.Trade
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &tr))
		gotTrades = append(gotTrades, tr)
	}
	require.Len(t, gotTrades, 2)
	assert.Equal(t, "alice", gotTrades[0].User)
	assert.Equal(t, "bob", gotTrades[1].User)
}

func TestArchiveRound_RejectsUnresolvedRound(t *testing.T) {
	w := &capturingWriter{}
	arc := NewRoundArchiver(w, discardLogger())

	_, err := arc.ArchiveRound(context.Background(), domain.Round{
		ID:     "round-1",
		Status: domain.StatusTrading,
	}, nil)
	require.Error(t, err)
	assert.Empty(t, w.path)
}
