package ingest

import (
	"context"
	"errors"
	"fmt"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/fingerprint"
	"affiliate-ingest/internal/storage"
)

// WriteOutcome classifies what a write did with a record.
type WriteOutcome int

// Write outcomes
const (
	WroteClick WriteOutcome = iota
	WroteConversion
	SkippedDuplicate
)

// Writer persists one canonical record as a Click or Conversion.
// A conversion hitting the (network_id, ext_conversion_id) uniqueness
// constraint is reported as SkippedDuplicate, not as an error.
type Writer struct {
	clicks      storage.ClickStore
	conversions storage.ConversionStore
}

// NewWriter creates a new Writer.
func NewWriter(clicks storage.ClickStore, conversions storage.ConversionStore) *Writer {
	return &Writer{clicks: clicks, conversions: conversions}
}

// Write persists rec under the resolved identities. source and ordinal
// feed the synthesized external id for conversions that carry none.
func (w *Writer) Write(ctx context.Context, rec *domain.Record, networkID, subAffiliateID int64, source string, ordinal int64) (WriteOutcome, error) {
	switch rec.Type {
	case domain.EventClick:
		click := &domain.Click{
			NetworkID:      networkID,
			SubAffiliateID: subAffiliateID,
			ExtClickID:     rec.ExtID,
			Campaign:       rec.Campaign,
			EventAt:        rec.EventAt,
		}
		if err := w.clicks.Insert(ctx, click); err != nil {
			return 0, fmt.Errorf("write click: %w", err)
		}
		return WroteClick, nil

	case domain.EventConversion:
		extID := ""
		if rec.ExtID != nil {
			extID = *rec.ExtID
		}
		if extID == "" {
			extID = fingerprint.FallbackConversionID(networkID, subAffiliateID, source, ordinal)
		}

		conversion := &domain.Conversion{
			NetworkID:       networkID,
			SubAffiliateID:  subAffiliateID,
			ExtConversionID: extID,
			Campaign:        rec.Campaign,
			Amount:          rec.Amount,
			Currency:        rec.Currency,
			EventAt:         rec.EventAt,
		}
		if err := w.conversions.Insert(ctx, conversion); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return SkippedDuplicate, nil
			}
			return 0, fmt.Errorf("write conversion: %w", err)
		}
		return WroteConversion, nil

	default:
		// Unreachable for normalized records.
		return 0, fmt.Errorf("write event: unknown type %q", rec.Type)
	}
}
