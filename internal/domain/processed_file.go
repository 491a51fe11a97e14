package domain

import "time"

// RunCounters aggregates per-run ingestion counts.
type RunCounters struct {
	Read        int64 `json:"read"`
	Clicks      int64 `json:"clicks"`
	Conversions int64 `json:"conversions"`
	Duplicates  int64 `json:"dedup"`
	Errors      int64 `json:"errors"`
}

// ProcessedFile is the durable idempotency ledger entry for one source
// file path. Corresponds to processed_files table in PostgreSQL, one row
// per distinct absolute path, updated in place on re-ingestion.
type ProcessedFile struct {
	ID              int64       `json:"id"`   // BIGSERIAL primary key
	Path            string      `json:"file"` // absolute source file path, unique
	Hash            string      `json:"hash"` // hex SHA-256 of last ingested content
	Counters        RunCounters `json:"counters"`
	DurationSeconds float64     `json:"seconds"` // wall-clock duration of last full run
	ProcessedAt     time.Time   `json:"processedAt"`
}
