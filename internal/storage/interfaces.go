package storage

import (
	"context"
	"time"

	"affiliate-ingest/internal/domain"
)

// EventFilter narrows event queries to a date range and optionally to one
// network and/or one sub-affiliate.
type EventFilter struct {
	From           time.Time
	To             time.Time
	NetworkID      *int64
	SubAffiliateID *int64
}

// IdentityStore provides access to the append-only network and
// sub-affiliate identity tables.
type IdentityStore interface {
	// FindOrCreateNetwork returns the id for a network name, creating the
	// row if absent. Must be race-safe: concurrent calls for the same name
	// resolve to one row.
	FindOrCreateNetwork(ctx context.Context, name string) (int64, error)

	// FindOrCreateSubAffiliate returns the id for a sub-affiliate code,
	// creating the row if absent. Race-safe like FindOrCreateNetwork.
	FindOrCreateSubAffiliate(ctx context.Context, code string) (int64, error)

	// GetNetworkByName retrieves a network. Returns ErrNotFound if not exists.
	GetNetworkByName(ctx context.Context, name string) (*domain.Network, error)

	// GetSubAffiliateByCode retrieves a sub-affiliate. Returns ErrNotFound if not exists.
	GetSubAffiliateByCode(ctx context.Context, code string) (*domain.SubAffiliate, error)

	// ListSubAffiliates retrieves all sub-affiliates, ordered by code ASC.
	ListSubAffiliates(ctx context.Context) ([]*domain.SubAffiliate, error)
}

// ClickStore provides access to clicks storage.
type ClickStore interface {
	// Insert adds a click. Clicks carry no uniqueness constraint, so the
	// same click may be inserted more than once.
	Insert(ctx context.Context, c *domain.Click) error

	// Count returns the number of clicks matching the filter.
	Count(ctx context.Context, f EventFilter) (int64, error)

	// CountBySubAffiliate returns click counts within [from, to] keyed by
	// sub-affiliate id.
	CountBySubAffiliate(ctx context.Context, from, to time.Time) (map[int64]int64, error)
}

// ConversionStore provides access to conversions storage.
type ConversionStore interface {
	// Insert adds a conversion. Returns ErrDuplicateKey if
	// (network_id, ext_conversion_id) exists.
	Insert(ctx context.Context, c *domain.Conversion) error

	// Count returns the number of conversions matching the filter.
	Count(ctx context.Context, f EventFilter) (int64, error)

	// SumAmount returns the total conversion amount matching the filter.
	SumAmount(ctx context.Context, f EventFilter) (float64, error)

	// TotalsBySubAffiliate returns conversion counts and amount sums within
	// [from, to] keyed by sub-affiliate id.
	TotalsBySubAffiliate(ctx context.Context, from, to time.Time) (map[int64]ConversionTotals, error)
}

// ConversionTotals is a per-group conversion aggregate.
type ConversionTotals struct {
	Count  int64
	Amount float64
}

// ProcessedFileStore provides access to the processed_files idempotency
// ledger.
type ProcessedFileStore interface {
	// GetByPath retrieves the ledger entry for an absolute path.
	// Returns ErrNotFound if the path has never been ingested.
	GetByPath(ctx context.Context, path string) (*domain.ProcessedFile, error)

	// Upsert creates the entry for a path or updates it in place with a new
	// hash, counters, duration and processed-at timestamp.
	Upsert(ctx context.Context, f *domain.ProcessedFile) error

	// ListRecent retrieves up to limit entries, most recently processed first.
	ListRecent(ctx context.Context, limit int) ([]*domain.ProcessedFile, error)
}

// AnalyticsStore mirrors stored events for dashboard timeseries queries.
// Implementations are best-effort sinks, not systems of record.
type AnalyticsStore interface {
	// InsertEvents appends a batch of event rows.
	InsertEvents(ctx context.Context, events []*domain.AnalyticsEvent) error

	// GetDailySeries returns per-day click/conversion/revenue totals within
	// [from, to], ordered by date ASC.
	GetDailySeries(ctx context.Context, from, to time.Time) ([]*domain.DailyPoint, error)
}
