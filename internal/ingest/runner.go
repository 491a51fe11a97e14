// Package ingest drives affiliate event ingestion: streaming CSV files
// row by row, or iterating API-sourced records, through the
// normalize → resolve → write pipeline with per-run counters and a
// durable file idempotency ledger.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/identity"
	"affiliate-ingest/internal/normalize"
	"affiliate-ingest/internal/observability"
	"affiliate-ingest/internal/storage"
)

// State is an ingestion run phase.
type State int

// Run states
const (
	StateIdle State = iota
	StateHashing
	StateShortCircuited
	StateStreaming
	StateFinalizing
	StateDone
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateHashing:
		return "Hashing"
	case StateShortCircuited:
		return "ShortCircuited"
	case StateStreaming:
		return "Streaming"
	case StateFinalizing:
		return "Finalizing"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrSourceNotFound is returned when the resolved source file path does
// not exist. It is a caller input error, not a processing failure.
var ErrSourceNotFound = errors.New("source file not found")

// DefaultDropPath is used when no file path is given and none is configured.
const DefaultDropPath = "data/drop/events.csv"

// History limits
const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// RecordSource supplies externally fetched, per-network affiliate
// records for the API-sync entry point. Implementations must isolate
// per-source failures and report them as a count alongside the partial
// result.
type RecordSource interface {
	FetchAll(ctx context.Context, from, to time.Time) (records []*domain.Record, sourceFailures int)
}

// Runner orchestrates ingestion runs. Rows are processed strictly
// sequentially; the next row is not consumed until the previous row's
// identity resolution and event write have completed.
//
// Concurrent runs against the same path are not coordinated in memory:
// the ProcessedFile upsert is the only serialization point, so two
// simultaneous runs may both miss the short-circuit and re-ingest.
// Conversions stay deduplicated by the storage invariant; the counters
// of the slower run win the ledger. Known race, accepted.
type Runner struct {
	resolver  *identity.Resolver
	writer    *Writer
	tracker   *Tracker
	files     storage.ProcessedFileStore
	analytics storage.AnalyticsStore

	defaultPath string
	logger      *log.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	IdentityStore      storage.IdentityStore
	ClickStore         storage.ClickStore
	ConversionStore    storage.ConversionStore
	ProcessedFileStore storage.ProcessedFileStore
	AnalyticsStore     storage.AnalyticsStore // optional best-effort mirror

	DefaultPath string // fallback source path, DefaultDropPath when empty
	Logger      *log.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	defaultPath := opts.DefaultPath
	if defaultPath == "" {
		defaultPath = DefaultDropPath
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		resolver:    identity.NewResolver(opts.IdentityStore),
		writer:      NewWriter(opts.ClickStore, opts.ConversionStore),
		tracker:     NewTracker(opts.ProcessedFileStore),
		files:       opts.ProcessedFileStore,
		analytics:   opts.AnalyticsStore,
		defaultPath: defaultPath,
		logger:      logger,
	}
}

// RunFile ingests one CSV file. An empty path resolves to the configured
// default drop location. Returns ErrSourceNotFound if the path does not
// exist; a stream-level read error aborts the whole run, while row-level
// failures are counted and skipped.
func (r *Runner) RunFile(ctx context.Context, path string) (*domain.FileResult, error) {
	start := time.Now()
	state := StateIdle

	if path == "" {
		path = r.defaultPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve source path %q: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, abs)
		}
		return nil, fmt.Errorf("stat source file: %w", err)
	}

	state = r.transition(state, StateHashing, abs)
	digest, prior, alreadyProcessed, err := r.tracker.Check(ctx, abs)
	if err != nil {
		return nil, r.fail(state, abs, err)
	}

	if alreadyProcessed {
		state = r.transition(state, StateShortCircuited, abs)
		observability.RecordShortCircuit()
		observability.RecordRun("file", "short_circuit", time.Since(start).Seconds())
		return &domain.FileResult{
			Path:             abs,
			Read:             prior.Counters.Read,
			Clicks:           prior.Counters.Clicks,
			Conversions:      prior.Counters.Conversions,
			Duplicates:       prior.Counters.Duplicates,
			Errors:           prior.Counters.Errors,
			ElapsedSeconds:   roundSeconds(time.Since(start)),
			AlreadyProcessed: true,
		}, nil
	}

	state = r.transition(state, StateStreaming, abs)
	source, err := openCSVSource(abs)
	if err != nil {
		return nil, r.fail(state, abs, err)
	}
	defer source.Close()

	var counters domain.RunCounters
	var mirror []*domain.AnalyticsEvent

	for {
		row, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Stream-level failure: the run aborts rather than
			// partially completing with ambiguous counters.
			return nil, r.fail(state, abs, fmt.Errorf("read csv row: %w", err))
		}

		counters.Read++
		observability.RecordRowRead()

		rec, rowErr := normalize.Row(row)
		if rowErr != nil {
			counters.Errors++
			observability.RecordRowError()
			r.logger.Printf("Row %d rejected: %v (input: %v)", counters.Read, rowErr, row)
			continue
		}

		outcome, err := r.processRecord(ctx, rec, "file", counters.Read)
		if err != nil {
			counters.Errors++
			observability.RecordRowError()
			r.logger.Printf("Row %d failed: %v (network=%s sub=%s)", counters.Read, err, rec.Network, rec.SubCode)
			continue
		}

		switch outcome {
		case WroteClick:
			counters.Clicks++
			observability.RecordClickStored()
			mirror = append(mirror, analyticsEvent(rec))
		case WroteConversion:
			counters.Conversions++
			observability.RecordConversionStored()
			mirror = append(mirror, analyticsEvent(rec))
		case SkippedDuplicate:
			counters.Duplicates++
			observability.RecordDuplicateSkipped()
		}
	}

	state = r.transition(state, StateFinalizing, abs)
	elapsed := roundSeconds(time.Since(start))
	if err := r.tracker.Record(ctx, abs, digest, counters, elapsed); err != nil {
		return nil, r.fail(state, abs, err)
	}
	r.mirrorEvents(ctx, mirror)

	r.transition(state, StateDone, abs)
	observability.RecordRun("file", "success", elapsed)
	r.logger.Printf("Ingested %s: read=%d clicks=%d conversions=%d dedup=%d errors=%d in %.2fs",
		abs, counters.Read, counters.Clicks, counters.Conversions, counters.Duplicates, counters.Errors, elapsed)

	return &domain.FileResult{
		Path:           abs,
		Read:           counters.Read,
		Clicks:         counters.Clicks,
		Conversions:    counters.Conversions,
		Duplicates:     counters.Duplicates,
		Errors:         counters.Errors,
		ElapsedSeconds: elapsed,
	}, nil
}

// RunSync ingests records pulled from affiliate-network APIs over the
// lookback window. No file-identity bookkeeping applies; failed sources
// reduce the data set and are tallied, never fatal.
func (r *Runner) RunSync(ctx context.Context, src RecordSource, lookbackDays int) (*domain.SyncResult, error) {
	if lookbackDays <= 0 {
		lookbackDays = 7
	}

	start := time.Now()
	to := time.Now()
	from := to.AddDate(0, 0, -lookbackDays)

	records, sourceFailures := src.FetchAll(ctx, from, to)
	for i := 0; i < sourceFailures; i++ {
		observability.RecordSyncSourceFailure()
	}

	processed, failed := r.RunRecords(ctx, "api", records)

	elapsed := roundSeconds(time.Since(start))
	observability.RecordRun("api", "success", elapsed)
	r.logger.Printf("API sync %s..%s: processed=%d errors=%d (failed sources: %d) in %.2fs",
		from.Format("2006-01-02"), to.Format("2006-01-02"), processed, failed, sourceFailures, elapsed)

	return &domain.SyncResult{
		From:           from,
		To:             to,
		TotalProcessed: processed,
		Errors:         failed + int64(sourceFailures),
		ElapsedSeconds: elapsed,
	}, nil
}

// RunRecords feeds externally supplied records through the per-record
// normalize → resolve → write loop. Duplicate conversions count as
// processed, matching the file path's treatment of duplicates as
// non-errors.
func (r *Runner) RunRecords(ctx context.Context, source string, records []*domain.Record) (processed, failed int64) {
	var mirror []*domain.AnalyticsEvent

	for i, raw := range records {
		ordinal := int64(i + 1)

		rec, err := normalize.Record(raw)
		if err != nil {
			failed++
			observability.RecordRowError()
			r.logger.Printf("Record %d rejected: %v", ordinal, err)
			continue
		}

		outcome, err := r.processRecord(ctx, rec, source, ordinal)
		if err != nil {
			failed++
			observability.RecordRowError()
			r.logger.Printf("Record %d failed: %v (network=%s sub=%s)", ordinal, err, rec.Network, rec.SubCode)
			continue
		}

		processed++
		observability.RecordSyncRecord()
		if outcome != SkippedDuplicate {
			mirror = append(mirror, analyticsEvent(rec))
		}
	}

	r.mirrorEvents(ctx, mirror)
	return processed, failed
}

// History lists recent idempotency ledger entries, most recent first.
func (r *Runner) History(ctx context.Context, limit int) ([]*domain.ProcessedFile, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return r.files.ListRecent(ctx, limit)
}

// processRecord resolves identities and writes one event.
func (r *Runner) processRecord(ctx context.Context, rec *domain.Record, source string, ordinal int64) (WriteOutcome, error) {
	networkID, subAffiliateID, err := r.resolver.Resolve(ctx, rec.Network, rec.SubCode)
	if err != nil {
		return 0, err
	}
	return r.writer.Write(ctx, rec, networkID, subAffiliateID, source, ordinal)
}

// mirrorEvents appends stored events to the analytics mirror.
// Best-effort: failures are logged and counted, never surfaced.
func (r *Runner) mirrorEvents(ctx context.Context, events []*domain.AnalyticsEvent) {
	if r.analytics == nil || len(events) == 0 {
		return
	}
	if err := r.analytics.InsertEvents(ctx, events); err != nil {
		observability.RecordAnalyticsMirrorError()
		r.logger.Printf("Analytics mirror write failed for %d events: %v", len(events), err)
	}
}

// transition advances the run state machine.
func (r *Runner) transition(from, to State, path string) State {
	r.logger.Printf("Run %s: %s -> %s", path, from, to)
	return to
}

// fail marks a run failed and returns the fatal error.
func (r *Runner) fail(from State, path string, err error) error {
	r.logger.Printf("Run %s: %s -> %s: %v", path, from, StateFailed, err)
	observability.RecordRun("file", "failed", 0)
	return err
}

func analyticsEvent(rec *domain.Record) *domain.AnalyticsEvent {
	return &domain.AnalyticsEvent{
		EventAt: rec.EventAt,
		Type:    rec.Type,
		Network: rec.Network,
		SubCode: rec.SubCode,
		Amount:  rec.Amount,
	}
}

// roundSeconds reports a duration as seconds with centisecond precision,
// the shape the HTTP results expose.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
