package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage/memory"
)

func TestTracker_CheckAndRecord(t *testing.T) {
	tracker := NewTracker(memory.NewProcessedFileStore())
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n"), 0o644))

	digest, prior, already, err := tracker.Check(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Nil(t, prior)
	assert.Len(t, digest, 64)

	counters := domain.RunCounters{Read: 5, Clicks: 3, Conversions: 1, Errors: 1}
	require.NoError(t, tracker.Record(context.Background(), path, digest, counters, 0.42))

	digest2, prior, already, err := tracker.Check(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, digest, digest2)
	require.NotNil(t, prior)
	assert.Equal(t, counters, prior.Counters)
}

func TestTracker_ContentChangeInvalidatesEntry(t *testing.T) {
	tracker := NewTracker(memory.NewProcessedFileStore())
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n"), 0o644))

	digest, _, _, err := tracker.Check(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, tracker.Record(context.Background(), path, digest, domain.RunCounters{Read: 1}, 0.1))

	require.NoError(t, os.WriteFile(path, []byte("a,b,c\nchanged\n"), 0o644))

	fresh, prior, already, err := tracker.Check(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Nil(t, prior)
	assert.NotEqual(t, digest, fresh)
}

func TestTracker_MissingFile(t *testing.T) {
	tracker := NewTracker(memory.NewProcessedFileStore())

	_, _, _, err := tracker.Check(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}
