package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage/memory"
)

type fixture struct {
	service     *Service
	identities  *memory.IdentityStore
	clicks      *memory.ClickStore
	conversions *memory.ConversionStore
	analytics   *memory.AnalyticsStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		identities:  memory.NewIdentityStore(),
		clicks:      memory.NewClickStore(),
		conversions: memory.NewConversionStore(),
		analytics:   memory.NewAnalyticsStore(),
	}
	f.service = NewService(Options{
		IdentityStore:   f.identities,
		ClickStore:      f.clicks,
		ConversionStore: f.conversions,
		AnalyticsStore:  f.analytics,
	})
	return f
}

// seed creates one network, two subs, 4 clicks for sub-1, 1 click for
// sub-2, and 2 conversions (25 + 75) for sub-1.
func (f *fixture) seed(t *testing.T) (networkID, sub1, sub2 int64) {
	t.Helper()
	ctx := context.Background()

	networkID, err := f.identities.FindOrCreateNetwork(ctx, "impact")
	require.NoError(t, err)
	sub1, err = f.identities.FindOrCreateSubAffiliate(ctx, "sub-1")
	require.NoError(t, err)
	sub2, err = f.identities.FindOrCreateSubAffiliate(ctx, "sub-2")
	require.NoError(t, err)

	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, f.clicks.Insert(ctx, &domain.Click{
			NetworkID: networkID, SubAffiliateID: sub1, EventAt: at,
		}))
	}
	require.NoError(t, f.clicks.Insert(ctx, &domain.Click{
		NetworkID: networkID, SubAffiliateID: sub2, EventAt: at,
	}))

	require.NoError(t, f.conversions.Insert(ctx, &domain.Conversion{
		NetworkID: networkID, SubAffiliateID: sub1, ExtConversionID: "c-1",
		Amount: 25, Currency: "USD", EventAt: at,
	}))
	require.NoError(t, f.conversions.Insert(ctx, &domain.Conversion{
		NetworkID: networkID, SubAffiliateID: sub1, ExtConversionID: "c-2",
		Amount: 75, Currency: "USD", EventAt: at,
	}))
	return networkID, sub1, sub2
}

func window() (time.Time, time.Time) {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	from, to := window()

	summary, err := f.service.Summary(context.Background(), from, to, "", "")
	require.NoError(t, err)

	assert.Equal(t, int64(5), summary.Clicks)
	assert.Equal(t, int64(2), summary.Conversions)
	assert.InDelta(t, 0.4, summary.CVR, 1e-9)
	assert.Equal(t, summary.CTR, summary.CVR)
	assert.Equal(t, 100.0, summary.Revenue)
	assert.Equal(t, summary.Revenue, summary.Payout)
	assert.InDelta(t, 20.0, summary.EPC, 1e-9)
}

func TestSummary_SubFilter(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	from, to := window()

	summary, err := f.service.Summary(context.Background(), from, to, "", "sub-2")
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.Clicks)
	assert.Equal(t, int64(0), summary.Conversions)
	assert.Equal(t, 0.0, summary.Revenue)
	assert.Equal(t, 0.0, summary.EPC)
}

func TestSummary_UnknownFilterIgnored(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	from, to := window()

	summary, err := f.service.Summary(context.Background(), from, to, "no-such-network", "no-such-sub")
	require.NoError(t, err)
	assert.Equal(t, int64(5), summary.Clicks)
}

func TestSummary_EmptyWindow(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	summary, err := f.service.Summary(context.Background(), from, from.AddDate(0, 1, 0), "", "")
	require.NoError(t, err)

	assert.Equal(t, int64(0), summary.Clicks)
	assert.Equal(t, 0.0, summary.CVR)
	assert.Equal(t, 0.0, summary.EPC)
}

func TestBySubAffiliate(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	from, to := window()

	rows, err := f.service.BySubAffiliate(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// ListSubAffiliates orders by code.
	sub1 := rows[0]
	assert.Equal(t, "sub-1", sub1.Code)
	assert.Equal(t, int64(4), sub1.Clicks)
	assert.Equal(t, int64(2), sub1.Conversions)
	assert.Equal(t, 100.0, sub1.Revenue)
	assert.InDelta(t, 25.0, sub1.EPC, 1e-9)
	assert.InDelta(t, 0.5, sub1.CVR, 1e-9)

	sub2 := rows[1]
	assert.Equal(t, "sub-2", sub2.Code)
	assert.Equal(t, int64(1), sub2.Clicks)
	assert.Equal(t, int64(0), sub2.Conversions)
	assert.Equal(t, 0.0, sub2.Revenue)
}

func TestDailySeries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	day1 := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	require.NoError(t, f.analytics.InsertEvents(ctx, []*domain.AnalyticsEvent{
		{EventAt: day1, Type: domain.EventClick, Network: "impact", SubCode: "sub-1"},
		{EventAt: day1, Type: domain.EventConversion, Network: "impact", SubCode: "sub-1", Amount: 40},
		{EventAt: day2, Type: domain.EventClick, Network: "cj", SubCode: "sub-2"},
	}))

	from, to := window()
	points, err := f.service.DailySeries(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, int64(1), points[0].Clicks)
	assert.Equal(t, int64(1), points[0].Conversions)
	assert.Equal(t, 40.0, points[0].Revenue)
	assert.Equal(t, int64(1), points[1].Clicks)
}

func TestDailySeries_NoAnalyticsConfigured(t *testing.T) {
	service := NewService(Options{
		IdentityStore:   memory.NewIdentityStore(),
		ClickStore:      memory.NewClickStore(),
		ConversionStore: memory.NewConversionStore(),
	})

	_, err := service.DailySeries(context.Background(), time.Now().AddDate(0, 0, -7), time.Now())
	assert.ErrorIs(t, err, ErrNoAnalytics)
}
