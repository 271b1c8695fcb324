package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/minuteflip/flipd/internal/domain"
)

// RoundArchiver implements domain.Archiver by serializing a resolved round
// and its trades to JSONL and uploading the result to blob storage. One
// object per round, keyed by resolution date:
//
//	rounds/2025/06/01/round-1748779200.jsonl
//
// The first line is the round snapshot, each subsequent line one trade.
// Archival is best-effort; callers log and continue on failure.
type RoundArchiver struct {
	writer domain.BlobWriter
	logger *slog.Logger
}

// NewRoundArchiver creates a new RoundArchiver uploading through the given
// blob writer.
func NewRoundArchiver(writer domain.BlobWriter, logger *slog.Logger) *RoundArchiver {
	return &RoundArchiver{
		writer: writer,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

var _ domain.Archiver = (*RoundArchiver)(nil)

// archivePath derives the object key for a round from its end time.
func archivePath(round domain.Round) string {
	t := round.EndsAt.UTC()
	return fmt.Sprintf("rounds/%04d/%02d/%02d/%s.jsonl",
		t.Year(), int(t.Month()), t.Day(), round.ID)
}

// ArchiveRound uploads one resolved round with its trades and returns the
// object path written.
func (a *RoundArchiver) ArchiveRound(ctx context.Context, round domain.Round, trades []domain.Trade) (string, error) {
	if !round.Resolved() {
		return "", fmt.Errorf("s3blob: archive round %s: round not resolved", round.ID)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(round); err != nil {
		return "", fmt.Errorf("s3blob: encode round %s: %w", round.ID, err)
	}
	for _, t := range trades {
		if err := enc.Encode(t); err != nil {
			return "", fmt.Errorf("s3blob: encode trade %s: %w", t.ID, err)
		}
	}

	path := archivePath(round)
	if err := a.writer.Put(ctx, path, &buf, "application/x-ndjson"); err != nil {
		return "", fmt.Errorf("s3blob: archive round %s: %w", round.ID, err)
	}

	a.logger.Info("round archived",
		"round_id", round.ID,
		"path", path,
		"trades", len(trades))
	return path, nil
}
