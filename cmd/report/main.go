// Package main provides the reporting command. It prints the summary,
// per-sub-affiliate or daily report for a date range as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"affiliate-ingest/internal/reports"
	"affiliate-ingest/internal/storage"
	chstore "affiliate-ingest/internal/storage/clickhouse"
	"affiliate-ingest/internal/storage/memory"
	"affiliate-ingest/internal/storage/migrations"
	pgstore "affiliate-ingest/internal/storage/postgres"
)

const dateLayout = "2006-01-02"

func main() {
	mode := flag.String("mode", "summary", "Report mode: summary, subaffiliates, or daily")
	format := flag.String("format", "json", "Output format: json, or csv (subaffiliates and daily modes)")
	fromStr := flag.String("from", "", "Range start (YYYY-MM-DD, default 30 days ago)")
	toStr := flag.String("to", "", "Range end (YYYY-MM-DD, default today)")
	network := flag.String("network", "", "Filter summary by network name")
	sub := flag.String("sub", "", "Filter summary by sub-affiliate code")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (required for daily mode)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")

	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	from, to, err := parseRange(*fromStr, *toStr)
	if err != nil {
		logger.Fatalf("Invalid date range: %v", err)
	}

	ctx := context.Background()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	service := reports.NewService(reports.Options{
		IdentityStore:   stores.identities,
		ClickStore:      stores.clicks,
		ConversionStore: stores.conversions,
		AnalyticsStore:  stores.analytics,
	})

	var report any
	switch *mode {
	case "summary":
		report, err = service.Summary(ctx, from, to, *network, *sub)
	case "subaffiliates":
		rows, rowsErr := service.BySubAffiliate(ctx, from, to)
		if rowsErr == nil && *format == "csv" {
			fmt.Print(reports.RenderSubAffiliateCSV(rows))
			return
		}
		report, err = rows, rowsErr
	case "daily":
		points, pointsErr := service.DailySeries(ctx, from, to)
		if pointsErr == nil && *format == "csv" {
			fmt.Print(reports.RenderDailyCSV(points))
			return
		}
		report, err = points, pointsErr
	default:
		logger.Fatalf("Unknown mode %q (want summary, subaffiliates, or daily)", *mode)
	}
	if err != nil {
		logger.Fatalf("Report failed: %v", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to encode report: %v", err)
	}
	fmt.Println(string(out))
}

// parseRange resolves the date window, defaulting to the last 30 days.
// The end date is inclusive through end of day.
func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if fromStr != "" {
		parsed, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --from: %w", err)
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse(dateLayout, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --to: %w", err)
		}
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", to.Format(dateLayout), from.Format(dateLayout))
	}
	return from, to, nil
}

type allStores struct {
	identities  storage.IdentityStore
	clicks      storage.ClickStore
	conversions storage.ConversionStore
	analytics   storage.AnalyticsStore
}

func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			identities:  memory.NewIdentityStore(),
			clicks:      memory.NewClickStore(),
			conversions: memory.NewConversionStore(),
			analytics:   memory.NewAnalyticsStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := &allStores{
		identities:  pgstore.NewIdentityStore(pool),
		clicks:      pgstore.NewClickStore(pool),
		conversions: pgstore.NewConversionStore(pool),
	}

	cleanup := func() { pool.Close() }

	if clickhouseDSN != "" {
		chConn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		stores.analytics = chstore.NewAnalyticsStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}
