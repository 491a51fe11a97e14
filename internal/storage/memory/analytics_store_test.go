package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-ingest/internal/domain"
)

func TestAnalyticsStore_DailySeries(t *testing.T) {
	store := NewAnalyticsStore()
	ctx := context.Background()

	day1 := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 2)
	require.NoError(t, store.InsertEvents(ctx, []*domain.AnalyticsEvent{
		{EventAt: day1, Type: domain.EventClick, Network: "impact", SubCode: "SUB-001"},
		{EventAt: day1.Add(time.Hour), Type: domain.EventConversion, Network: "impact", SubCode: "SUB-001", Amount: 25},
		{EventAt: day2, Type: domain.EventClick, Network: "cj", SubCode: "SUB-002"},
		{EventAt: day2, Type: domain.EventConversion, Network: "cj", SubCode: "SUB-002", Amount: 40},
	}))

	points, err := store.GetDailySeries(ctx,
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.Equal(t, int64(1), points[0].Clicks)
	assert.Equal(t, int64(1), points[0].Conversions)
	assert.Equal(t, 25.0, points[0].Revenue)

	assert.Equal(t, int64(1), points[1].Clicks)
	assert.Equal(t, 40.0, points[1].Revenue)
}

func TestAnalyticsStore_WindowExcludes(t *testing.T) {
	store := NewAnalyticsStore()
	ctx := context.Background()

	require.NoError(t, store.InsertEvents(ctx, []*domain.AnalyticsEvent{
		{EventAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Type: domain.EventClick},
	}))

	points, err := store.GetDailySeries(ctx,
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, points)
}
