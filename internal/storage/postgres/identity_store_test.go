package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-ingest/internal/storage"
)

func TestIdentityStore_FindOrCreateNetwork(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewIdentityStore(pool)
	ctx := context.Background()

	id, err := store.FindOrCreateNetwork(ctx, "impact")
	require.NoError(t, err)
	assert.NotZero(t, id)

	// Repeat call resolves to the same row.
	again, err := store.FindOrCreateNetwork(ctx, "impact")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	other, err := store.FindOrCreateNetwork(ctx, "cj")
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestIdentityStore_FindOrCreateNetworkConcurrent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewIdentityStore(pool)
	ctx := context.Background()

	const workers = 8
	ids := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := store.FindOrCreateNetwork(ctx, "racing")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestIdentityStore_FindOrCreateSubAffiliate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewIdentityStore(pool)
	ctx := context.Background()

	id, err := store.FindOrCreateSubAffiliate(ctx, "SUB-001")
	require.NoError(t, err)

	again, err := store.FindOrCreateSubAffiliate(ctx, "SUB-001")
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestIdentityStore_EmptyInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewIdentityStore(pool)
	ctx := context.Background()

	_, err := store.FindOrCreateNetwork(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = store.FindOrCreateSubAffiliate(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestIdentityStore_GetByNameAndCode(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewIdentityStore(pool)
	ctx := context.Background()

	_, err := store.FindOrCreateNetwork(ctx, "impact")
	require.NoError(t, err)
	_, err = store.FindOrCreateSubAffiliate(ctx, "SUB-001")
	require.NoError(t, err)

	network, err := store.GetNetworkByName(ctx, "impact")
	require.NoError(t, err)
	assert.Equal(t, "impact", network.Name)
	assert.NotZero(t, network.CreatedAt)

	sub, err := store.GetSubAffiliateByCode(ctx, "SUB-001")
	require.NoError(t, err)
	assert.Equal(t, "SUB-001", sub.Code)
	assert.Nil(t, sub.Name)

	_, err = store.GetNetworkByName(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetSubAffiliateByCode(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIdentityStore_ListSubAffiliatesOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewIdentityStore(pool)
	ctx := context.Background()

	for _, code := range []string{"SUB-003", "SUB-001", "SUB-002"} {
		_, err := store.FindOrCreateSubAffiliate(ctx, code)
		require.NoError(t, err)
	}

	subs, err := store.ListSubAffiliates(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, "SUB-001", subs[0].Code)
	assert.Equal(t, "SUB-002", subs[1].Code)
	assert.Equal(t, "SUB-003", subs[2].Code)
}
