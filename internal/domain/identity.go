package domain

import "time"

// Network is an affiliate network identity row.
// Corresponds to networks table in PostgreSQL. Append-only, created lazily
// on first sight of a name.
type Network struct {
	ID        int64  // BIGSERIAL primary key
	Name      string // unique network name
	CreatedAt time.Time
}

// SubAffiliate is a tracked referral-code identity under a network.
// Corresponds to sub_affiliates table in PostgreSQL. Append-only,
// created lazily on first sight of a code.
type SubAffiliate struct {
	ID        int64   // BIGSERIAL primary key
	Code      string  // unique referral code
	Name      *string // optional display name
	CreatedAt time.Time
}
