package domain

import "time"

// EventType identifies the kind of affiliate event a record carries.
type EventType string

// Event type constants
const (
	EventClick      EventType = "click"
	EventConversion EventType = "conversion"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	return t == EventClick || t == EventConversion
}

// DefaultCurrency is applied to conversions that carry no currency code.
const DefaultCurrency = "USD"

// Record is the canonical event shape produced by the normalizer.
// Both CSV rows and API-sourced objects are coerced into this form
// before identity resolution and writing.
type Record struct {
	Network  string    // affiliate network name, e.g. "impact"
	Type     EventType // click | conversion
	SubCode  string    // sub-affiliate referral code
	Campaign *string   // optional campaign label
	ExtID    *string   // optional external click/conversion identifier
	Amount   float64   // conversion amount, 0 for clicks and unset amounts
	Currency string    // ISO code, defaulted to USD by the normalizer
	EventAt  time.Time // event timestamp
}
