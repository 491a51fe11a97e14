package domain

import "time"

// Click is a recorded user click attributed to a network and sub-affiliate.
// Corresponds to clicks table in PostgreSQL. No uniqueness constraint:
// duplicate clicks are accepted by design.
type Click struct {
	ID             int64 // BIGSERIAL primary key
	NetworkID      int64 // FK to networks
	SubAffiliateID int64 // FK to sub_affiliates
	ExtClickID     *string
	Campaign       *string
	EventAt        time.Time
	CreatedAt      time.Time
}

// Conversion is a recorded monetized event attributed to a network and
// sub-affiliate. Corresponds to conversions table in PostgreSQL.
// (NetworkID, ExtConversionID) is unique; a second write with the same
// pair is a duplicate, not an error.
type Conversion struct {
	ID              int64  // BIGSERIAL primary key
	NetworkID       int64  // FK to networks
	SubAffiliateID  int64  // FK to sub_affiliates
	ExtConversionID string // external id, or synthesized fallback when absent
	Campaign        *string
	Amount          float64 // non-negative monetary amount
	Currency        string
	EventAt         time.Time
	CreatedAt       time.Time
}

// AnalyticsEvent is the flattened per-event row mirrored to the analytics
// store for dashboard timeseries. Best-effort, not part of the system of
// record.
type AnalyticsEvent struct {
	EventAt time.Time
	Type    EventType
	Network string
	SubCode string
	Amount  float64
}
