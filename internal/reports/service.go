// Package reports aggregates stored events into the summary,
// per-sub-affiliate and daily dashboard views.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage"
)

// ErrNoAnalytics is returned by DailySeries when no analytics mirror is
// configured.
var ErrNoAnalytics = errors.New("no analytics store configured")

// Service computes reports from the event stores.
type Service struct {
	identities  storage.IdentityStore
	clicks      storage.ClickStore
	conversions storage.ConversionStore
	analytics   storage.AnalyticsStore
}

// Options contains the stores a Service reads from. AnalyticsStore is
// optional; without it DailySeries reports ErrNoAnalytics.
type Options struct {
	IdentityStore   storage.IdentityStore
	ClickStore      storage.ClickStore
	ConversionStore storage.ConversionStore
	AnalyticsStore  storage.AnalyticsStore
}

// NewService creates a report service.
func NewService(opts Options) *Service {
	return &Service{
		identities:  opts.IdentityStore,
		clicks:      opts.ClickStore,
		conversions: opts.ConversionStore,
		analytics:   opts.AnalyticsStore,
	}
}

// Summary aggregates clicks, conversions and revenue over [from, to],
// optionally narrowed to one network name and/or sub-affiliate code.
// A filter value that matches no known identity is ignored rather than
// producing an empty result.
func (s *Service) Summary(ctx context.Context, from, to time.Time, network, subCode string) (*domain.Summary, error) {
	filter := storage.EventFilter{From: from, To: to}

	if network != "" {
		n, err := s.identities.GetNetworkByName(ctx, network)
		switch {
		case err == nil:
			filter.NetworkID = &n.ID
		case errors.Is(err, storage.ErrNotFound):
			// unknown name, filter dropped
		default:
			return nil, fmt.Errorf("resolve network filter: %w", err)
		}
	}
	if subCode != "" {
		sub, err := s.identities.GetSubAffiliateByCode(ctx, subCode)
		switch {
		case err == nil:
			filter.SubAffiliateID = &sub.ID
		case errors.Is(err, storage.ErrNotFound):
			// unknown code, filter dropped
		default:
			return nil, fmt.Errorf("resolve sub-affiliate filter: %w", err)
		}
	}

	clicks, err := s.clicks.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count clicks: %w", err)
	}
	conversions, err := s.conversions.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count conversions: %w", err)
	}
	payout, err := s.conversions.SumAmount(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("sum conversion amounts: %w", err)
	}

	return &domain.Summary{
		Clicks:      clicks,
		Conversions: conversions,
		CTR:         ratio(conversions, clicks),
		CVR:         ratio(conversions, clicks),
		Revenue:     payout,
		Payout:      payout,
		EPC:         amountRatio(payout, clicks),
	}, nil
}

// BySubAffiliate returns one row per known sub-affiliate over [from, to],
// including sub-affiliates with no activity in the window.
func (s *Service) BySubAffiliate(ctx context.Context, from, to time.Time) ([]*domain.SubAffiliateRow, error) {
	clickCounts, err := s.clicks.CountBySubAffiliate(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("count clicks by sub-affiliate: %w", err)
	}
	conversionTotals, err := s.conversions.TotalsBySubAffiliate(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("total conversions by sub-affiliate: %w", err)
	}
	subs, err := s.identities.ListSubAffiliates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sub-affiliates: %w", err)
	}

	rows := make([]*domain.SubAffiliateRow, 0, len(subs))
	for _, sub := range subs {
		clicks := clickCounts[sub.ID]
		totals := conversionTotals[sub.ID]
		rows = append(rows, &domain.SubAffiliateRow{
			Code:        sub.Code,
			Name:        sub.Name,
			Clicks:      clicks,
			Conversions: totals.Count,
			Revenue:     totals.Amount,
			EPC:         amountRatio(totals.Amount, clicks),
			CTR:         ratio(totals.Count, clicks),
			CVR:         ratio(totals.Count, clicks),
		})
	}
	return rows, nil
}

// DailySeries returns the per-day activity series from the analytics
// mirror.
func (s *Service) DailySeries(ctx context.Context, from, to time.Time) ([]*domain.DailyPoint, error) {
	if s.analytics == nil {
		return nil, ErrNoAnalytics
	}
	points, err := s.analytics.GetDailySeries(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily series: %w", err)
	}
	return points, nil
}

func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func amountRatio(amount float64, den int64) float64 {
	if den == 0 {
		return 0
	}
	return amount / float64(den)
}
