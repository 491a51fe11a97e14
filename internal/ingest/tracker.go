package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/fingerprint"
	"affiliate-ingest/internal/storage"
)

// Tracker is the file fingerprint tracker: it decides whether a path's
// content has already been ingested and records the ledger entry after
// a full run.
type Tracker struct {
	store storage.ProcessedFileStore
}

// NewTracker creates a new Tracker.
func NewTracker(store storage.ProcessedFileStore) *Tracker {
	return &Tracker{store: store}
}

// Check computes the content digest for path and compares it with the
// stored ledger entry. alreadyProcessed is true only when an entry
// exists and its hash equals the fresh digest; prior is non-nil in that
// case and carries the stored counters verbatim.
func (t *Tracker) Check(ctx context.Context, path string) (digest string, prior *domain.ProcessedFile, alreadyProcessed bool, err error) {
	digest, err = fingerprint.File(path)
	if err != nil {
		return "", nil, false, err
	}

	stored, err := t.store.GetByPath(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return digest, nil, false, nil
		}
		return "", nil, false, fmt.Errorf("look up processed file: %w", err)
	}

	if stored.Hash == digest {
		return digest, stored, true, nil
	}
	return digest, nil, false, nil
}

// Record upserts the ledger entry for path after a completed run.
func (t *Tracker) Record(ctx context.Context, path, digest string, counters domain.RunCounters, durationSeconds float64) error {
	entry := &domain.ProcessedFile{
		Path:            path,
		Hash:            digest,
		Counters:        counters,
		DurationSeconds: durationSeconds,
		ProcessedAt:     time.Now(),
	}
	if err := t.store.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("record processed file: %w", err)
	}
	return nil
}
