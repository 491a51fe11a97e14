package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage"
)

// AnalyticsStore is an in-memory implementation of storage.AnalyticsStore.
type AnalyticsStore struct {
	mu   sync.RWMutex
	data []*domain.AnalyticsEvent
}

// NewAnalyticsStore creates a new in-memory analytics store.
func NewAnalyticsStore() *AnalyticsStore {
	return &AnalyticsStore{}
}

// Compile-time interface check.
var _ storage.AnalyticsStore = (*AnalyticsStore)(nil)

// InsertEvents appends a batch of event rows.
func (s *AnalyticsStore) InsertEvents(_ context.Context, events []*domain.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		eventCopy := *e
		s.data = append(s.data, &eventCopy)
	}
	return nil
}

// GetDailySeries returns per-day click/conversion/revenue totals within
// [from, to], ordered by date ASC.
func (s *AnalyticsStore) GetDailySeries(_ context.Context, from, to time.Time) ([]*domain.DailyPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[time.Time]*domain.DailyPoint)
	for _, e := range s.data {
		if e.EventAt.Before(from) || e.EventAt.After(to) {
			continue
		}
		day := e.EventAt.UTC().Truncate(24 * time.Hour)
		p, exists := byDay[day]
		if !exists {
			p = &domain.DailyPoint{Date: day}
			byDay[day] = p
		}
		switch e.Type {
		case domain.EventClick:
			p.Clicks++
		case domain.EventConversion:
			p.Conversions++
			p.Revenue += e.Amount
		}
	}

	points := make([]*domain.DailyPoint, 0, len(byDay))
	for _, p := range byDay {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	return points, nil
}
