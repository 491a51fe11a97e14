package memory

import (
	"context"
	"sync"
	"time"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage"
)

// ClickStore is an in-memory implementation of storage.ClickStore.
type ClickStore struct {
	mu     sync.RWMutex
	nextID int64
	data   []*domain.Click
}

// NewClickStore creates a new in-memory click store.
func NewClickStore() *ClickStore {
	return &ClickStore{}
}

// Compile-time interface check.
var _ storage.ClickStore = (*ClickStore)(nil)

// Insert adds a click. Clicks carry no uniqueness constraint.
func (s *ClickStore) Insert(_ context.Context, c *domain.Click) error {
	if c == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	clickCopy := *c
	clickCopy.ID = s.nextID
	clickCopy.CreatedAt = time.Now()
	s.data = append(s.data, &clickCopy)
	return nil
}

// Count returns the number of clicks matching the filter.
func (s *ClickStore) Count(_ context.Context, f storage.EventFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, c := range s.data {
		if matchesFilter(f, c.EventAt, c.NetworkID, c.SubAffiliateID) {
			count++
		}
	}
	return count, nil
}

// CountBySubAffiliate returns click counts within [from, to] keyed by sub-affiliate id.
func (s *ClickStore) CountBySubAffiliate(_ context.Context, from, to time.Time) (map[int64]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int64]int64)
	for _, c := range s.data {
		if !c.EventAt.Before(from) && !c.EventAt.After(to) {
			counts[c.SubAffiliateID]++
		}
	}
	return counts, nil
}

// Len returns the number of stored clicks.
func (s *ClickStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// matchesFilter reports whether an event at eventAt with the given ids
// passes the filter. Shared by the click and conversion stores.
func matchesFilter(f storage.EventFilter, eventAt time.Time, networkID, subID int64) bool {
	if eventAt.Before(f.From) || eventAt.After(f.To) {
		return false
	}
	if f.NetworkID != nil && *f.NetworkID != networkID {
		return false
	}
	if f.SubAffiliateID != nil && *f.SubAffiliateID != subID {
		return false
	}
	return true
}
