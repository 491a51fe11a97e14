package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage"
)

func TestProcessedFileStore_GetByPathNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProcessedFileStore(pool)

	_, err := store.GetByPath(context.Background(), "/data/drop/missing.csv")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProcessedFileStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProcessedFileStore(pool)
	ctx := context.Background()

	entry := &domain.ProcessedFile{
		Path: "/data/drop/events.csv",
		Hash: "aaaa",
		Counters: domain.RunCounters{
			Read: 10, Clicks: 6, Conversions: 3, Duplicates: 1, Errors: 0,
		},
		DurationSeconds: 0.35,
		ProcessedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.Upsert(ctx, entry))

	stored, err := store.GetByPath(ctx, entry.Path)
	require.NoError(t, err)
	assert.Equal(t, entry.Hash, stored.Hash)
	assert.Equal(t, entry.Counters, stored.Counters)
	assert.Equal(t, entry.DurationSeconds, stored.DurationSeconds)
	assert.NotZero(t, stored.ID)
}

func TestProcessedFileStore_UpsertReplacesInPlace(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProcessedFileStore(pool)
	ctx := context.Background()

	entry := &domain.ProcessedFile{
		Path:        "/data/drop/events.csv",
		Hash:        "aaaa",
		Counters:    domain.RunCounters{Read: 1},
		ProcessedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Upsert(ctx, entry))

	first, err := store.GetByPath(ctx, entry.Path)
	require.NoError(t, err)

	entry.Hash = "bbbb"
	entry.Counters = domain.RunCounters{Read: 2, Clicks: 2}
	require.NoError(t, store.Upsert(ctx, entry))

	second, err := store.GetByPath(ctx, entry.Path)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "bbbb", second.Hash)
	assert.Equal(t, int64(2), second.Counters.Read)
}

func TestProcessedFileStore_ListRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProcessedFileStore(pool)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Upsert(ctx, &domain.ProcessedFile{
			Path:        fmt.Sprintf("/data/drop/file-%d.csv", i),
			Hash:        fmt.Sprintf("hash-%d", i),
			ProcessedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	recent, err := store.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "/data/drop/file-4.csv", recent[0].Path)
	assert.Equal(t, "/data/drop/file-3.csv", recent[1].Path)
	assert.Equal(t, "/data/drop/file-2.csv", recent[2].Path)
}
