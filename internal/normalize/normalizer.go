// Package normalize validates and coerces raw affiliate event rows into
// the canonical domain.Record shape.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"affiliate-ingest/internal/domain"
)

// RowError is a per-row normalization failure. It names the offending
// field so the orchestrator can log usable row context; it is counted
// and skipped, never fatal to a run.
type RowError struct {
	Field  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row field %q: %s", e.Field, e.Reason)
}

// Accepted event_at layouts, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Row normalizes one delimited-text row, keyed by header name.
// Required fields: network, type (click|conversion), sub_code, event_at.
// Optional: campaign, ext_id, amount (non-negative numeric), currency
// (defaults to USD).
func Row(row map[string]string) (*domain.Record, error) {
	network := strings.TrimSpace(row["network"])
	if network == "" {
		return nil, &RowError{Field: "network", Reason: "required"}
	}

	typ := domain.EventType(strings.TrimSpace(row["type"]))
	if typ == "" {
		return nil, &RowError{Field: "type", Reason: "required"}
	}
	if !typ.Valid() {
		return nil, &RowError{Field: "type", Reason: fmt.Sprintf("must be %q or %q", domain.EventClick, domain.EventConversion)}
	}

	subCode := strings.TrimSpace(row["sub_code"])
	if subCode == "" {
		return nil, &RowError{Field: "sub_code", Reason: "required"}
	}

	eventAt, err := parseEventAt(strings.TrimSpace(row["event_at"]))
	if err != nil {
		return nil, err
	}

	amount, err := parseAmount(strings.TrimSpace(row["amount"]))
	if err != nil {
		return nil, err
	}

	rec := &domain.Record{
		Network:  network,
		Type:     typ,
		SubCode:  subCode,
		Campaign: optional(row["campaign"]),
		ExtID:    optional(row["ext_id"]),
		Amount:   amount,
		Currency: normalizeCurrency(row["currency"]),
		EventAt:  eventAt,
	}
	return rec, nil
}

// Record validates an API-originated record in place and returns the
// normalized copy. API records arrive typed, so only the value-level
// rules apply.
func Record(rec *domain.Record) (*domain.Record, error) {
	if rec == nil {
		return nil, &RowError{Field: "record", Reason: "required"}
	}
	if strings.TrimSpace(rec.Network) == "" {
		return nil, &RowError{Field: "network", Reason: "required"}
	}
	if !rec.Type.Valid() {
		return nil, &RowError{Field: "type", Reason: fmt.Sprintf("must be %q or %q", domain.EventClick, domain.EventConversion)}
	}
	if strings.TrimSpace(rec.SubCode) == "" {
		return nil, &RowError{Field: "sub_code", Reason: "required"}
	}
	if rec.EventAt.IsZero() {
		return nil, &RowError{Field: "event_at", Reason: "required"}
	}
	if rec.Amount < 0 {
		return nil, &RowError{Field: "amount", Reason: "must be non-negative"}
	}

	out := *rec
	out.Network = strings.TrimSpace(rec.Network)
	out.SubCode = strings.TrimSpace(rec.SubCode)
	out.Currency = normalizeCurrency(rec.Currency)
	return &out, nil
}

func parseEventAt(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &RowError{Field: "event_at", Reason: "required"}
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, &RowError{Field: "event_at", Reason: fmt.Sprintf("unparseable date %q", value)}
}

func parseAmount(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &RowError{Field: "amount", Reason: fmt.Sprintf("not numeric: %q", value)}
	}
	if amount < 0 {
		return 0, &RowError{Field: "amount", Reason: "must be non-negative"}
	}
	return amount, nil
}

func normalizeCurrency(value string) string {
	currency := strings.ToUpper(strings.TrimSpace(value))
	if currency == "" {
		return domain.DefaultCurrency
	}
	return currency
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
