package match

import (
	"context"
	"time"
)

// ArchiveEntry is one committed match operation as persisted in the archive.
// The engine's in-memory ledger stays authoritative; the archive is the
// durable audit trail of who matched what, when, and through which scenario.
type ArchiveEntry struct {
	Scenario      Scenario      `json:"scenario" bson:"scenario"`
	Pairs         []MatchedPair `json:"pairs" bson:"pairs"`
	CorrelationID string        `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	RecordedAt    time.Time     `json:"recorded_at" bson:"recorded_at"`
}

// ArchiveRepository persists committed match operations. The archive is
// append-only; Clear exists only for the administrative reset.
type ArchiveRepository interface {
	// Append stores one committed match operation
	Append(ctx context.Context, entry ArchiveEntry) error

	// List retrieves archived operations, newest first
	List(ctx context.Context, limit, offset int) ([]ArchiveEntry, error)

	// Count returns the total number of archived operations
	Count(ctx context.Context) (int64, error)

	// Clear drops the whole archive
	Clear(ctx context.Context) error
}
