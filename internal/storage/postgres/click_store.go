package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage"
)

// ClickStore implements storage.ClickStore using PostgreSQL.
type ClickStore struct {
	pool *Pool
}

// NewClickStore creates a new ClickStore.
func NewClickStore(pool *Pool) *ClickStore {
	return &ClickStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ClickStore = (*ClickStore)(nil)

// Insert adds a click. Clicks carry no uniqueness constraint.
func (s *ClickStore) Insert(ctx context.Context, c *domain.Click) error {
	query := `
		INSERT INTO clicks (network_id, sub_affiliate_id, ext_click_id, campaign, event_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		c.NetworkID,
		c.SubAffiliateID,
		c.ExtClickID,
		c.Campaign,
		c.EventAt,
	)
	if err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return nil
}

// Count returns the number of clicks matching the filter.
func (s *ClickStore) Count(ctx context.Context, f storage.EventFilter) (int64, error) {
	where, args := buildEventFilter(f)

	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clicks WHERE `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count clicks: %w", err)
	}
	return count, nil
}

// CountBySubAffiliate returns click counts within [from, to] keyed by sub-affiliate id.
func (s *ClickStore) CountBySubAffiliate(ctx context.Context, from, to time.Time) (map[int64]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sub_affiliate_id, COUNT(*)
		FROM clicks
		WHERE event_at >= $1 AND event_at <= $2
		GROUP BY sub_affiliate_id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("count clicks by sub-affiliate: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var subID, count int64
		if err := rows.Scan(&subID, &count); err != nil {
			return nil, fmt.Errorf("scan click count row: %w", err)
		}
		counts[subID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate click count rows: %w", err)
	}

	return counts, nil
}

// buildEventFilter renders an EventFilter as a WHERE fragment with
// positional args. Shared by clicks and conversions, whose filterable
// columns are identical.
func buildEventFilter(f storage.EventFilter) (string, []any) {
	clauses := []string{"event_at >= $1", "event_at <= $2"}
	args := []any{f.From, f.To}

	if f.NetworkID != nil {
		args = append(args, *f.NetworkID)
		clauses = append(clauses, fmt.Sprintf("network_id = $%d", len(args)))
	}
	if f.SubAffiliateID != nil {
		args = append(args, *f.SubAffiliateID)
		clauses = append(clauses, fmt.Sprintf("sub_affiliate_id = $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}
