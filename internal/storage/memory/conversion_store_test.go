package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage"
)

func TestConversionStore_DuplicateKey(t *testing.T) {
	store := NewConversionStore()
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)

	conversion := &domain.Conversion{
		NetworkID: 1, SubAffiliateID: 1, ExtConversionID: "conv-1",
		Amount: 25, Currency: "USD", EventAt: at,
	}
	require.NoError(t, store.Insert(ctx, conversion))

	err := store.Insert(ctx, conversion)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same external id on another network is a distinct conversion.
	require.NoError(t, store.Insert(ctx, &domain.Conversion{
		NetworkID: 2, SubAffiliateID: 1, ExtConversionID: "conv-1",
		Amount: 25, Currency: "USD", EventAt: at,
	}))
	assert.Equal(t, 2, store.Len())
}

func TestConversionStore_InsertValidation(t *testing.T) {
	store := NewConversionStore()

	err := store.Insert(context.Background(), &domain.Conversion{NetworkID: 1})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestConversionStore_Aggregates(t *testing.T) {
	store := NewConversionStore()
	ctx := context.Background()
	at := time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC)

	for _, c := range []struct {
		extID  string
		sub    int64
		amount float64
	}{{"c-1", 1, 25}, {"c-2", 1, 75}, {"c-3", 2, 40}} {
		require.NoError(t, store.Insert(ctx, &domain.Conversion{
			NetworkID: 1, SubAffiliateID: c.sub, ExtConversionID: c.extID,
			Amount: c.amount, Currency: "USD", EventAt: at,
		}))
	}

	from := at.AddDate(0, 0, -1)
	to := at.AddDate(0, 0, 1)

	count, err := store.Count(ctx, storage.EventFilter{From: from, To: to})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	sub := int64(1)
	sum, err := store.SumAmount(ctx, storage.EventFilter{From: from, To: to, SubAffiliateID: &sub})
	require.NoError(t, err)
	assert.Equal(t, 100.0, sum)

	totals, err := store.TotalsBySubAffiliate(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals[1].Count)
	assert.Equal(t, 40.0, totals[2].Amount)
}
