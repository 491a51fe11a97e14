package postgres

import (
	"context"
	"fmt"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage"
)

// IdentityStore implements storage.IdentityStore using PostgreSQL.
// Find-or-create is a single conditional insert followed by a read, so
// concurrent resolution of the same name or code never creates a
// duplicate identity row.
type IdentityStore struct {
	pool *Pool
}

// NewIdentityStore creates a new IdentityStore.
func NewIdentityStore(pool *Pool) *IdentityStore {
	return &IdentityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IdentityStore = (*IdentityStore)(nil)

// FindOrCreateNetwork returns the id for a network name, creating the row if absent.
func (s *IdentityStore) FindOrCreateNetwork(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, storage.ErrInvalidInput
	}

	var id int64

	// Insert-ignore: the RETURNING clause yields no row when the name
	// already exists, so a follow-up read resolves the winner's id.
	err := s.pool.QueryRow(ctx, `
		INSERT INTO networks (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id
	`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !isNotFoundError(err) {
		return 0, fmt.Errorf("insert network: %w", err)
	}

	err = s.pool.QueryRow(ctx, `SELECT id FROM networks WHERE name = $1`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("select network: %w", err)
	}
	return id, nil
}

// FindOrCreateSubAffiliate returns the id for a sub-affiliate code, creating the row if absent.
func (s *IdentityStore) FindOrCreateSubAffiliate(ctx context.Context, code string) (int64, error) {
	if code == "" {
		return 0, storage.ErrInvalidInput
	}

	var id int64

	err := s.pool.QueryRow(ctx, `
		INSERT INTO sub_affiliates (code) VALUES ($1)
		ON CONFLICT (code) DO NOTHING
		RETURNING id
	`, code).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !isNotFoundError(err) {
		return 0, fmt.Errorf("insert sub-affiliate: %w", err)
	}

	err = s.pool.QueryRow(ctx, `SELECT id FROM sub_affiliates WHERE code = $1`, code).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("select sub-affiliate: %w", err)
	}
	return id, nil
}

// GetNetworkByName retrieves a network. Returns ErrNotFound if not exists.
func (s *IdentityStore) GetNetworkByName(ctx context.Context, name string) (*domain.Network, error) {
	var n domain.Network

	err := s.pool.QueryRow(ctx, `
		SELECT id, name, created_at FROM networks WHERE name = $1
	`, name).Scan(&n.ID, &n.Name, &n.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get network by name: %w", err)
	}
	return &n, nil
}

// GetSubAffiliateByCode retrieves a sub-affiliate. Returns ErrNotFound if not exists.
func (s *IdentityStore) GetSubAffiliateByCode(ctx context.Context, code string) (*domain.SubAffiliate, error) {
	var sub domain.SubAffiliate

	err := s.pool.QueryRow(ctx, `
		SELECT id, code, name, created_at FROM sub_affiliates WHERE code = $1
	`, code).Scan(&sub.ID, &sub.Code, &sub.Name, &sub.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get sub-affiliate by code: %w", err)
	}
	return &sub, nil
}

// ListSubAffiliates retrieves all sub-affiliates, ordered by code ASC.
func (s *IdentityStore) ListSubAffiliates(ctx context.Context) ([]*domain.SubAffiliate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name, created_at FROM sub_affiliates ORDER BY code ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sub-affiliates: %w", err)
	}
	defer rows.Close()

	var subs []*domain.SubAffiliate
	for rows.Next() {
		var sub domain.SubAffiliate
		if err := rows.Scan(&sub.ID, &sub.Code, &sub.Name, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sub-affiliate row: %w", err)
		}
		subs = append(subs, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sub-affiliate rows: %w", err)
	}

	return subs, nil
}
