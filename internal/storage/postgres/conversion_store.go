package postgres

import (
	"context"
	"fmt"
	"time"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage"
)

// ConversionStore implements storage.ConversionStore using PostgreSQL.
type ConversionStore struct {
	pool *Pool
}

// NewConversionStore creates a new ConversionStore.
func NewConversionStore(pool *Pool) *ConversionStore {
	return &ConversionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ConversionStore = (*ConversionStore)(nil)

// Insert adds a conversion. Returns ErrDuplicateKey if
// (network_id, ext_conversion_id) exists.
func (s *ConversionStore) Insert(ctx context.Context, c *domain.Conversion) error {
	query := `
		INSERT INTO conversions (
			network_id, sub_affiliate_id, ext_conversion_id, campaign, amount, currency, event_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		c.NetworkID,
		c.SubAffiliateID,
		c.ExtConversionID,
		c.Campaign,
		c.Amount,
		c.Currency,
		c.EventAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert conversion: %w", err)
	}
	return nil
}

// Count returns the number of conversions matching the filter.
func (s *ConversionStore) Count(ctx context.Context, f storage.EventFilter) (int64, error) {
	where, args := buildEventFilter(f)

	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversions WHERE `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count conversions: %w", err)
	}
	return count, nil
}

// SumAmount returns the total conversion amount matching the filter.
func (s *ConversionStore) SumAmount(ctx context.Context, f storage.EventFilter) (float64, error) {
	where, args := buildEventFilter(f)

	var sum float64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM conversions WHERE `+where, args...).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum conversion amount: %w", err)
	}
	return sum, nil
}

// TotalsBySubAffiliate returns conversion counts and amount sums within
// [from, to] keyed by sub-affiliate id.
func (s *ConversionStore) TotalsBySubAffiliate(ctx context.Context, from, to time.Time) (map[int64]storage.ConversionTotals, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sub_affiliate_id, COUNT(*), COALESCE(SUM(amount), 0)
		FROM conversions
		WHERE event_at >= $1 AND event_at <= $2
		GROUP BY sub_affiliate_id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("conversion totals by sub-affiliate: %w", err)
	}
	defer rows.Close()

	totals := make(map[int64]storage.ConversionTotals)
	for rows.Next() {
		var subID int64
		var t storage.ConversionTotals
		if err := rows.Scan(&subID, &t.Count, &t.Amount); err != nil {
			return nil, fmt.Errorf("scan conversion totals row: %w", err)
		}
		totals[subID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversion totals rows: %w", err)
	}

	return totals, nil
}
