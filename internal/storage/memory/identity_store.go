package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage"
)

// IdentityStore is an in-memory implementation of storage.IdentityStore.
type IdentityStore struct {
	mu       sync.Mutex
	nextID   int64
	networks map[string]*domain.Network      // keyed by name
	subs     map[string]*domain.SubAffiliate // keyed by code
}

// NewIdentityStore creates a new in-memory identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		networks: make(map[string]*domain.Network),
		subs:     make(map[string]*domain.SubAffiliate),
	}
}

// Compile-time interface check.
var _ storage.IdentityStore = (*IdentityStore)(nil)

// FindOrCreateNetwork returns the id for a network name, creating the row if absent.
func (s *IdentityStore) FindOrCreateNetwork(_ context.Context, name string) (int64, error) {
	if name == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n, exists := s.networks[name]; exists {
		return n.ID, nil
	}

	s.nextID++
	s.networks[name] = &domain.Network{ID: s.nextID, Name: name, CreatedAt: time.Now()}
	return s.nextID, nil
}

// FindOrCreateSubAffiliate returns the id for a sub-affiliate code, creating the row if absent.
func (s *IdentityStore) FindOrCreateSubAffiliate(_ context.Context, code string) (int64, error) {
	if code == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, exists := s.subs[code]; exists {
		return sub.ID, nil
	}

	s.nextID++
	s.subs[code] = &domain.SubAffiliate{ID: s.nextID, Code: code, CreatedAt: time.Now()}
	return s.nextID, nil
}

// GetNetworkByName retrieves a network. Returns ErrNotFound if not exists.
func (s *IdentityStore) GetNetworkByName(_ context.Context, name string) (*domain.Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, exists := s.networks[name]
	if !exists {
		return nil, storage.ErrNotFound
	}

	networkCopy := *n
	return &networkCopy, nil
}

// GetSubAffiliateByCode retrieves a sub-affiliate. Returns ErrNotFound if not exists.
func (s *IdentityStore) GetSubAffiliateByCode(_ context.Context, code string) (*domain.SubAffiliate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subs[code]
	if !exists {
		return nil, storage.ErrNotFound
	}

	subCopy := *sub
	return &subCopy, nil
}

// ListSubAffiliates retrieves all sub-affiliates, ordered by code ASC.
func (s *IdentityStore) ListSubAffiliates(_ context.Context) ([]*domain.SubAffiliate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*domain.SubAffiliate
	for _, sub := range s.subs {
		subCopy := *sub
		result = append(result, &subCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Code < result[j].Code
	})

	return result, nil
}
