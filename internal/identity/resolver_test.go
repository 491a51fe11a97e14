package identity

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-ingest/internal/storage/memory"
)

func TestResolver_StableIDs(t *testing.T) {
	ctx := context.Background()
	resolver := NewResolver(memory.NewIdentityStore())

	netID1, subID1, err := resolver.Resolve(ctx, "impact", "SUB-001")
	require.NoError(t, err)

	netID2, subID2, err := resolver.Resolve(ctx, "impact", "SUB-001")
	require.NoError(t, err)

	assert.Equal(t, netID1, netID2)
	assert.Equal(t, subID1, subID2)

	netID3, subID3, err := resolver.Resolve(ctx, "cj", "SUB-002")
	require.NoError(t, err)
	assert.NotEqual(t, netID1, netID3)
	assert.NotEqual(t, subID1, subID3)
}

func TestResolver_EmptyInputs(t *testing.T) {
	ctx := context.Background()
	resolver := NewResolver(memory.NewIdentityStore())

	_, _, err := resolver.Resolve(ctx, "", "SUB-001")
	assert.Error(t, err)

	_, _, err = resolver.Resolve(ctx, "impact", "")
	assert.Error(t, err)
}

func TestResolver_ConcurrentSameIdentity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewIdentityStore()
	resolver := NewResolver(store)

	const goroutines = 16
	ids := make([]int64, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			netID, _, err := resolver.Resolve(ctx, "impact", "SUB-001")
			require.NoError(t, err)
			ids[i] = netID
		}(i)
	}
	wg.Wait()

	// Find-or-create must converge on one identity row.
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	subs, err := store.ListSubAffiliates(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}
