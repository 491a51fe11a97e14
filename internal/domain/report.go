package domain

import "time"

// Summary is the aggregate report over a date range.
type Summary struct {
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	CTR         float64 `json:"ctr"`
	CVR         float64 `json:"cvr"`
	Revenue     float64 `json:"revenue"`
	Payout      float64 `json:"payout"`
	EPC         float64 `json:"epc"`
}

// SubAffiliateRow is one row of the per-sub-affiliate breakdown.
type SubAffiliateRow struct {
	Code        string  `json:"code"`
	Name        *string `json:"name,omitempty"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	Revenue     float64 `json:"revenue"`
	EPC         float64 `json:"epc"`
	CTR         float64 `json:"ctr"`
	CVR         float64 `json:"cvr"`
}

// DailyPoint is one day of the dashboard activity series, served from
// the analytics mirror.
type DailyPoint struct {
	Date        time.Time `json:"date"`
	Clicks      int64     `json:"clicks"`
	Conversions int64     `json:"conversions"`
	Revenue     float64   `json:"revenue"`
}
