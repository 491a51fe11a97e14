package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-ingest/internal/storage"
)

func TestIdentityStore_FindOrCreate(t *testing.T) {
	store := NewIdentityStore()
	ctx := context.Background()

	id, err := store.FindOrCreateNetwork(ctx, "impact")
	require.NoError(t, err)
	again, err := store.FindOrCreateNetwork(ctx, "impact")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	other, err := store.FindOrCreateNetwork(ctx, "cj")
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	_, err = store.FindOrCreateNetwork(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestIdentityStore_Lookups(t *testing.T) {
	store := NewIdentityStore()
	ctx := context.Background()

	_, err := store.FindOrCreateSubAffiliate(ctx, "SUB-002")
	require.NoError(t, err)
	_, err = store.FindOrCreateSubAffiliate(ctx, "SUB-001")
	require.NoError(t, err)

	sub, err := store.GetSubAffiliateByCode(ctx, "SUB-001")
	require.NoError(t, err)
	assert.Equal(t, "SUB-001", sub.Code)

	_, err = store.GetSubAffiliateByCode(ctx, "SUB-404")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	subs, err := store.ListSubAffiliates(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "SUB-001", subs[0].Code)
	assert.Equal(t, "SUB-002", subs[1].Code)
}
