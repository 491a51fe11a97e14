package memory

import (
	"context"
	"sort"
	"sync"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage"
)

// ProcessedFileStore is an in-memory implementation of storage.ProcessedFileStore.
type ProcessedFileStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[string]*domain.ProcessedFile // keyed by path
}

// NewProcessedFileStore creates a new in-memory processed file store.
func NewProcessedFileStore() *ProcessedFileStore {
	return &ProcessedFileStore{
		data: make(map[string]*domain.ProcessedFile),
	}
}

// Compile-time interface check.
var _ storage.ProcessedFileStore = (*ProcessedFileStore)(nil)

// GetByPath retrieves the ledger entry for an absolute path.
// Returns ErrNotFound if the path has never been ingested.
func (s *ProcessedFileStore) GetByPath(_ context.Context, path string) (*domain.ProcessedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, exists := s.data[path]
	if !exists {
		return nil, storage.ErrNotFound
	}

	fileCopy := *f
	return &fileCopy, nil
}

// Upsert creates the entry for a path or updates it in place.
func (s *ProcessedFileStore) Upsert(_ context.Context, f *domain.ProcessedFile) error {
	if f == nil || f.Path == "" || f.Hash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fileCopy := *f
	if existing, exists := s.data[f.Path]; exists {
		fileCopy.ID = existing.ID
	} else {
		s.nextID++
		fileCopy.ID = s.nextID
	}
	s.data[f.Path] = &fileCopy
	return nil
}

// ListRecent retrieves up to limit entries, most recently processed first.
func (s *ProcessedFileStore) ListRecent(_ context.Context, limit int) ([]*domain.ProcessedFile, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ProcessedFile
	for _, f := range s.data {
		fileCopy := *f
		result = append(result, &fileCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ProcessedAt.Equal(result[j].ProcessedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].ProcessedAt.After(result[j].ProcessedAt)
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
