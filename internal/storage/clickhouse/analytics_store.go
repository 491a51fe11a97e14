package clickhouse

import (
	"context"
	"fmt"
	"time"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage"
)

// AnalyticsStore implements storage.AnalyticsStore using ClickHouse.
// It is a duplicate-tolerant mirror: the MergeTree table enforces no
// uniqueness, and the daily series aggregates whatever was appended.
type AnalyticsStore struct {
	conn *Conn
}

// NewAnalyticsStore creates a new AnalyticsStore.
func NewAnalyticsStore(conn *Conn) *AnalyticsStore {
	return &AnalyticsStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AnalyticsStore = (*AnalyticsStore)(nil)

// InsertEvents appends a batch of event rows.
func (s *AnalyticsStore) InsertEvents(ctx context.Context, events []*domain.AnalyticsEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO affiliate_events (
			event_date, event_at, event_type, network, sub_code, amount
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare analytics batch: %w", err)
	}

	for _, e := range events {
		err := batch.Append(
			e.EventAt.UTC().Truncate(24*time.Hour),
			e.EventAt,
			string(e.Type),
			e.Network,
			e.SubCode,
			e.Amount,
		)
		if err != nil {
			return fmt.Errorf("append analytics event: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send analytics batch: %w", err)
	}
	return nil
}

// GetDailySeries returns per-day click/conversion/revenue totals within
// [from, to], ordered by date ASC.
func (s *AnalyticsStore) GetDailySeries(ctx context.Context, from, to time.Time) ([]*domain.DailyPoint, error) {
	query := `
		SELECT
			event_date,
			countIf(event_type = 'click'),
			countIf(event_type = 'conversion'),
			sumIf(amount, event_type = 'conversion')
		FROM affiliate_events
		WHERE event_date >= toDate(?) AND event_date <= toDate(?)
		GROUP BY event_date
		ORDER BY event_date ASC
	`

	rows, err := s.conn.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily series: %w", err)
	}
	defer rows.Close()

	var points []*domain.DailyPoint
	for rows.Next() {
		var p domain.DailyPoint
		var clicks, conversions uint64
		if err := rows.Scan(&p.Date, &clicks, &conversions, &p.Revenue); err != nil {
			return nil, fmt.Errorf("scan daily series row: %w", err)
		}
		p.Clicks = int64(clicks)
		p.Conversions = int64(conversions)
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily series rows: %w", err)
	}

	return points, nil
}
