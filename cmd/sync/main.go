// Package main provides the one-shot API sync command. It pulls
// clicks and conversions from the configured affiliate networks over a
// lookback window and prints the run result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"affiliate-ingest/internal/connectors"
	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/ingest"
	"affiliate-ingest/internal/storage"
	chstore "affiliate-ingest/internal/storage/clickhouse"
	"affiliate-ingest/internal/storage/memory"
	"affiliate-ingest/internal/storage/migrations"
	pgstore "affiliate-ingest/internal/storage/postgres"
)

func main() {
	days := flag.Int("days", 7, "Lookback window in days")
	network := flag.String("network", "", "Sync only this network (impact, cj); empty syncs all")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (empty to disable the analytics mirror)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")

	flag.Parse()

	logger := log.New(os.Stderr, "[sync] ", log.LstdFlags)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx := context.Background()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	runner := ingest.NewRunner(ingest.RunnerOptions{
		IdentityStore:      stores.identities,
		ClickStore:         stores.clicks,
		ConversionStore:    stores.conversions,
		ProcessedFileStore: stores.files,
		AnalyticsStore:     stores.analytics,
		Logger:             logger,
	})

	registry := connectors.NewRegistryFromEnv(logger, &http.Client{Timeout: 30 * time.Second})

	var source ingest.RecordSource = registry
	if *network != "" {
		src, err := registry.ByName(*network)
		if err != nil {
			logger.Fatalf("Unknown network: %v", err)
		}
		source = singleSource{src: src, logger: logger}
	}

	result, err := runner.RunSync(ctx, source, *days)
	if err != nil {
		logger.Fatalf("Sync failed: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(out))
}

// singleSource adapts one connector to the RecordSource shape.
type singleSource struct {
	src    connectors.Source
	logger *log.Logger
}

func (s singleSource) FetchAll(ctx context.Context, from, to time.Time) ([]*domain.Record, int) {
	records, err := s.src.Fetch(ctx, from, to)
	if err != nil {
		s.logger.Printf("Source %s failed: %v", s.src.Name(), err)
		return nil, 1
	}
	return records, 0
}

type allStores struct {
	identities  storage.IdentityStore
	clicks      storage.ClickStore
	conversions storage.ConversionStore
	files       storage.ProcessedFileStore
	analytics   storage.AnalyticsStore
}

func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			identities:  memory.NewIdentityStore(),
			clicks:      memory.NewClickStore(),
			conversions: memory.NewConversionStore(),
			files:       memory.NewProcessedFileStore(),
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
		files:       pgstore.NewProcessedFileStore(pool),
	}

	cleanup := func() { pool.Close() }

	if clickhouseDSN != "" {
		chConn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
			chConn.Close()
			pool.Close()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		stores.analytics = chstore.NewAnalyticsStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}
