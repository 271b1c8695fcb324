package domain

import (
	"context"
	"io"
)

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver writes resolved rounds and their trades to long-term storage.
// Archival is best-effort: a failed upload must never block settlement.
type Archiver interface {
	ArchiveRound(ctx context.Context, round Round, trades []Trade) (path string, err error)
}
