// Package identity maps network names and sub-affiliate codes to stable
// internal identifiers, creating them on first sight.
package identity

import (
	"context"
	"fmt"

	"affiliate-ingest/internal/storage"
)

// Resolver resolves event identities via find-or-create. The race safety
// of concurrent resolution lives in the storage layer's atomic
// conditional insert, not here.
type Resolver struct {
	store storage.IdentityStore
}

// NewResolver creates a new Resolver.
func NewResolver(store storage.IdentityStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the internal ids for a network name and sub-affiliate
// code, creating either identity if it does not yet exist.
func (r *Resolver) Resolve(ctx context.Context, network, subCode string) (networkID, subAffiliateID int64, err error) {
	networkID, err = r.store.FindOrCreateNetwork(ctx, network)
	if err != nil {
		return 0, 0, fmt.Errorf("resolve network %q: %w", network, err)
	}

	subAffiliateID, err = r.store.FindOrCreateSubAffiliate(ctx, subCode)
	if err != nil {
		return 0, 0, fmt.Errorf("resolve sub-affiliate %q: %w", subCode, err)
	}

	return networkID, subAffiliateID, nil
}
