package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage"
)

// ConversionStore is an in-memory implementation of storage.ConversionStore.
// Enforces the (network_id, ext_conversion_id) uniqueness invariant.
type ConversionStore struct {
	mu     sync.RWMutex
	nextID int64
	data   []*domain.Conversion
	keys   map[string]struct{} // "networkID|extConversionID"
}

// NewConversionStore creates a new in-memory conversion store.
func NewConversionStore() *ConversionStore {
	return &ConversionStore{
		keys: make(map[string]struct{}),
	}
}

// Compile-time interface check.
var _ storage.ConversionStore = (*ConversionStore)(nil)

func conversionKey(networkID int64, extID string) string {
	return fmt.Sprintf("%d|%s", networkID, extID)
}

// Insert adds a conversion. Returns ErrDuplicateKey if
// (network_id, ext_conversion_id) exists.
func (s *ConversionStore) Insert(_ context.Context, c *domain.Conversion) error {
	if c == nil || c.ExtConversionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := conversionKey(c.NetworkID, c.ExtConversionID)
	if _, exists := s.keys[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.nextID++
	conversionCopy := *c
	conversionCopy.ID = s.nextID
	conversionCopy.CreatedAt = time.Now()
	s.data = append(s.data, &conversionCopy)
	s.keys[key] = struct{}{}
	return nil
}

// Count returns the number of conversions matching the filter.
func (s *ConversionStore) Count(_ context.Context, f storage.EventFilter) (int64, error) {
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

// SumAmount returns the total conversion amount matching the filter.
func (s *ConversionStore) SumAmount(_ context.Context, f storage.EventFilter) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum float64
	for _, c := range s.data {
		if matchesFilter(f, c.EventAt, c.NetworkID, c.SubAffiliateID) {
			sum += c.Amount
		}
	}
	return sum, nil
}

// TotalsBySubAffiliate returns conversion counts and amount sums within
// [from, to] keyed by sub-affiliate id.
func (s *ConversionStore) TotalsBySubAffiliate(_ context.Context, from, to time.Time) (map[int64]storage.ConversionTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[int64]storage.ConversionTotals)
	for _, c := range s.data {
		if c.EventAt.Before(from) || c.EventAt.After(to) {
			continue
		}
		t := totals[c.SubAffiliateID]
		t.Count++
		t.Amount += c.Amount
		totals[c.SubAffiliateID] = t
	}
	return totals, nil
}

// Len returns the number of stored conversions.
func (s *ConversionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// All returns a copy of all stored conversions, in insertion order.
func (s *ConversionStore) All() []*domain.Conversion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Conversion, 0, len(s.data))
	for _, c := range s.data {
		conversionCopy := *c
		result = append(result, &conversionCopy)
	}
	return result
}
