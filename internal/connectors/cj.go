package connectors

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"time"

	"affiliate-ingest/internal/domain"
)

const cjDefaultBaseURL = "https://api.cj.com"

// CJOptions contains configuration for the CJ Affiliate source.
type CJOptions struct {
	BaseURL   string
	APIKey    string // falls back to CJ_API_KEY
	WebsiteID string // falls back to CJ_WEBSITE_ID
	Client    *http.Client
	Logger    *log.Logger
}

// CJSource pulls link clicks and commissions from the CJ Affiliate API.
// Without credentials it serves deterministic sample data.
type CJSource struct {
	baseURL   string
	apiKey    string
	websiteID string
	client    *http.Client
	logger    *log.Logger
}

var _ Source = (*CJSource)(nil)

// NewCJSource creates a CJ Affiliate source.
func NewCJSource(opts CJOptions) *CJSource {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = cjDefaultBaseURL
	}
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("CJ_API_KEY")
	}
	websiteID := opts.WebsiteID
	if websiteID == "" {
		websiteID = os.Getenv("CJ_WEBSITE_ID")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &CJSource{
		baseURL:   baseURL,
		apiKey:    apiKey,
		websiteID: websiteID,
		client:    client,
		logger:    logger,
	}
}

// Name implements Source.
func (s *CJSource) Name() string { return NetworkCJ }

// Fetch implements Source.
func (s *CJSource) Fetch(ctx context.Context, from, to time.Time) ([]*domain.Record, error) {
	if s.apiKey == "" || s.websiteID == "" {
		s.logger.Printf("CJ API credentials not configured, using sample data")
		return s.sampleRecords(from, to), nil
	}

	clicks, err := s.fetchClicks(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("cj links: %w", err)
	}
	conversions, err := s.fetchConversions(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("cj commissions: %w", err)
	}
	return append(clicks, conversions...), nil
}

type cjClick struct {
	PublisherID  string `json:"publisherId"`
	CampaignName string `json:"campaignName"`
	LinkID       string `json:"linkId"`
	ClickDate    string `json:"clickDate"`
}

type cjCommission struct {
	PublisherID  string  `json:"publisherId"`
	CampaignName string  `json:"campaignName"`
	CommissionID string  `json:"commissionId"`
	SaleAmount   float64 `json:"saleAmount"`
	Currency     string  `json:"currency"`
	EventDate    string  `json:"eventDate"`
}

func (s *CJSource) fetchClicks(ctx context.Context, from, to time.Time) ([]*domain.Record, error) {
	var clicks []cjClick
	endpoint := s.baseURL + "/v3/links"
	params := url.Values{
		"websiteId": {s.websiteID},
		"startDate": {dateParam(from)},
		"endDate":   {dateParam(to)},
	}
	if err := getJSON(ctx, s.client, endpoint, s.apiKey, params, &clicks); err != nil {
		return nil, err
	}

	records := make([]*domain.Record, 0, len(clicks))
	for _, c := range clicks {
		eventAt, err := parseAPIDate(c.ClickDate)
		if err != nil {
			s.logger.Printf("CJ click %s skipped: %v", c.LinkID, err)
			continue
		}
		records = append(records, &domain.Record{
			Network:  NetworkCJ,
			Type:     domain.EventClick,
			SubCode:  orUnknown(c.PublisherID),
			Campaign: strOrNil(c.CampaignName),
			ExtID:    strOrNil(c.LinkID),
			Currency: domain.DefaultCurrency,
			EventAt:  eventAt,
		})
	}
	return records, nil
}

func (s *CJSource) fetchConversions(ctx context.Context, from, to time.Time) ([]*domain.Record, error) {
	var commissions []cjCommission
	endpoint := s.baseURL + "/v3/commissions"
	params := url.Values{
		"websiteId": {s.websiteID},
		"startDate": {dateParam(from)},
		"endDate":   {dateParam(to)},
	}
	if err := getJSON(ctx, s.client, endpoint, s.apiKey, params, &commissions); err != nil {
		return nil, err
	}

	records := make([]*domain.Record, 0, len(commissions))
	for _, c := range commissions {
		eventAt, err := parseAPIDate(c.EventDate)
		if err != nil {
			s.logger.Printf("CJ commission %s skipped: %v", c.CommissionID, err)
			continue
		}
		currency := c.Currency
		if currency == "" {
			currency = domain.DefaultCurrency
		}
		records = append(records, &domain.Record{
			Network:  NetworkCJ,
			Type:     domain.EventConversion,
			SubCode:  orUnknown(c.PublisherID),
			Campaign: strOrNil(c.CampaignName),
			ExtID:    strOrNil(c.CommissionID),
			Amount:   c.SaleAmount,
			Currency: currency,
			EventAt:  eventAt,
		})
	}
	return records, nil
}

func (s *CJSource) sampleRecords(from, to time.Time) []*domain.Record {
	rng := rand.New(rand.NewSource(from.Unix()))
	campaign := "brand-campaign"

	days := int(to.Sub(from).Hours()/24) + 1
	n := days * 3
	if n > 30 {
		n = 30
	}

	records := make([]*domain.Record, 0, n*2)
	for i := 0; i < n; i++ {
		eventAt := from.Add(time.Duration(i) * 24 * time.Hour)
		clickID := fmt.Sprintf("CLK-%d", 3000+i)
		records = append(records, &domain.Record{
			Network:  NetworkCJ,
			Type:     domain.EventClick,
			SubCode:  fmt.Sprintf("SUB-%03d", rng.Intn(3)+1),
			Campaign: &campaign,
			ExtID:    &clickID,
			Currency: domain.DefaultCurrency,
			EventAt:  eventAt,
		})

		if rng.Float64() > 0.6 {
			convID := fmt.Sprintf("CNV-%d", 4000+i)
			records = append(records, &domain.Record{
				Network:  NetworkCJ,
				Type:     domain.EventConversion,
				SubCode:  fmt.Sprintf("SUB-%03d", rng.Intn(3)+1),
				Campaign: &campaign,
				ExtID:    &convID,
				Amount:   rng.Float64()*150 + 20,
				Currency: domain.DefaultCurrency,
				EventAt:  eventAt.Add(time.Duration(rng.Intn(3600)) * time.Second),
			})
		}
	}
	return records
}
