package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-ingest/internal/domain"
)

func TestAnalyticsStore_InsertAndDailySeries(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAnalyticsStore(conn)
	ctx := context.Background()

	day1 := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	require.NoError(t, store.InsertEvents(ctx, []*domain.AnalyticsEvent{
		{EventAt: day1, Type: domain.EventClick, Network: "impact", SubCode: "SUB-001"},
		{EventAt: day1.Add(time.Hour), Type: domain.EventClick, Network: "impact", SubCode: "SUB-001"},
		{EventAt: day1.Add(2 * time.Hour), Type: domain.EventConversion, Network: "impact", SubCode: "SUB-001", Amount: 25.5},
		{EventAt: day2, Type: domain.EventConversion, Network: "cj", SubCode: "SUB-002", Amount: 40},
	}))

	points, err := store.GetDailySeries(ctx,
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, int64(2), points[0].Clicks)
	assert.Equal(t, int64(1), points[0].Conversions)
	assert.InDelta(t, 25.5, points[0].Revenue, 1e-9)

	assert.Equal(t, int64(0), points[1].Clicks)
	assert.Equal(t, int64(1), points[1].Conversions)
	assert.InDelta(t, 40.0, points[1].Revenue, 1e-9)
}

func TestAnalyticsStore_EmptyBatch(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAnalyticsStore(conn)
	require.NoError(t, store.InsertEvents(context.Background(), nil))
}
