// Package main provides the one-shot CSV ingestion command. It streams
// one drop file through the pipeline and prints the run result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"affiliate-ingest/internal/ingest"
	"affiliate-ingest/internal/storage"
	chstore "affiliate-ingest/internal/storage/clickhouse"
	"affiliate-ingest/internal/storage/memory"
	"affiliate-ingest/internal/storage/migrations"
	pgstore "affiliate-ingest/internal/storage/postgres"
)

func main() {
	file := flag.String("file", "", "CSV file to ingest (defaults to the drop file)")
	dropFile := flag.String("drop-file", envOr("DROP_FILE", ingest.DefaultDropPath), "Default drop file location")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (empty to disable the analytics mirror)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")

	flag.Parse()

	logger := log.New(os.Stderr, "[ingest] ", log.LstdFlags)

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
		DefaultPath:        *dropFile,
		Logger:             logger,
	})

	result, err := runner.RunFile(ctx, *file)
	if err != nil {
		if errors.Is(err, ingest.ErrSourceNotFound) {
			logger.Fatalf("Source file not found: %v", err)
		}
		logger.Fatalf("Ingestion failed: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(out))
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

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
