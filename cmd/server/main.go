// Package main provides the unified tracking service:
// - HTTP API: ingestion runs, API sync, history, reports
// - Scheduled drop-file ingestion and network sync (optional)
// - Prometheus metrics and health endpoints
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"affiliate-ingest/internal/connectors"
	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/ingest"
	"affiliate-ingest/internal/observability"
	"affiliate-ingest/internal/reports"
	"affiliate-ingest/internal/storage"
	chstore "affiliate-ingest/internal/storage/clickhouse"
	"affiliate-ingest/internal/storage/memory"
	"affiliate-ingest/internal/storage/migrations"
	pgstore "affiliate-ingest/internal/storage/postgres"
)

const dateLayout = "2006-01-02"

// Server holds all components of the tracking service.
type Server struct {
	runner   *ingest.Runner
	registry *connectors.Registry
	reports  *reports.Service
	logger   *log.Logger

	syncDays int

	// Serializes scheduled and on-demand runs so a slow ingestion and a
	// sync never interleave row processing.
	runMu sync.Mutex
}

type allStores struct {
	identities  storage.IdentityStore
	clicks      storage.ClickStore
	conversions storage.ConversionStore
	files       storage.ProcessedFileStore
	analytics   storage.AnalyticsStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (empty to disable the analytics mirror)")
	dropFile := flag.String("drop-file", envOr("DROP_FILE", ingest.DefaultDropPath), "Default drop file location")
	ingestInterval := flag.Duration("ingest-interval", 0, "Scheduled drop-file ingestion interval (0 disables)")
	syncInterval := flag.Duration("sync-interval", 0, "Scheduled network sync interval (0 disables)")
	syncDays := flag.Int("sync-days", 7, "Lookback window for network sync in days")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server := &Server{
		runner: ingest.NewRunner(ingest.RunnerOptions{
			IdentityStore:      stores.identities,
			ClickStore:         stores.clicks,
			ConversionStore:    stores.conversions,
			ProcessedFileStore: stores.files,
			AnalyticsStore:     stores.analytics,
			DefaultPath:        *dropFile,
			Logger:             logger,
		}),
		registry: connectors.NewRegistryFromEnv(logger, &http.Client{Timeout: 30 * time.Second}),
		reports: reports.NewService(reports.Options{
			IdentityStore:   stores.identities,
			ClickStore:      stores.clicks,
			ConversionStore: stores.conversions,
			AnalyticsStore:  stores.analytics,
		}),
		logger:   logger,
		syncDays: *syncDays,
	}

	// Scheduled runs
	var wg sync.WaitGroup
	if *ingestInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			server.runScheduledIngest(ctx, *ingestInterval)
		}()
	}
	if *syncInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			server.runScheduledSync(ctx, *syncInterval)
		}()
	}

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.routes(),
	}

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}

		// Wait for second signal for immediate shutdown
		sig = <-sigCh
		logger.Printf("Received second signal %v, forcing exit", sig)
		os.Exit(1)
	}()

	logger.Printf("Listening on %s (drop file: %s)", *addr, *dropFile)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}

	wg.Wait()
	logger.Printf("Shutdown complete")
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ingest/run", s.handleIngestRun)
	mux.HandleFunc("/ingest/history", s.handleIngestHistory)
	mux.HandleFunc("/sync/run", s.handleSyncRun)
	mux.HandleFunc("/reports/summary", s.handleReportSummary)
	mux.HandleFunc("/reports/subaffiliates", s.handleReportSubAffiliates)
	mux.HandleFunc("/reports/daily", s.handleReportDaily)
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleIngestRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.runMu.Lock()
	result, err := s.runner.RunFile(r.Context(), r.URL.Query().Get("file"))
	s.runMu.Unlock()

	if err != nil {
		if errors.Is(err, ingest.ErrSourceNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleIngestHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	history, err := s.runner.History(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, history)
}

func (s *Server) handleSyncRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := s.syncDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid days %q", raw))
			return
		}
		days = parsed
	}

	var source ingest.RecordSource = s.registry
	if network := r.URL.Query().Get("network"); network != "" {
		src, err := s.registry.ByName(network)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		source = singleSource{src: src, logger: s.logger}
	}

	s.runMu.Lock()
	result, err := s.runner.RunSync(r.Context(), source, days)
	s.runMu.Unlock()

	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseRange(w, r)
	if !ok {
		return
	}

	summary, err := s.reports.Summary(r.Context(), from, to,
		r.URL.Query().Get("network"), r.URL.Query().Get("sub"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, summary)
}

func (s *Server) handleReportSubAffiliates(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseRange(w, r)
	if !ok {
		return
	}

	rows, err := s.reports.BySubAffiliate(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handleReportDaily(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseRange(w, r)
	if !ok {
		return
	}

	points, err := s.reports.DailySeries(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, reports.ErrNoAnalytics) {
			writeError(w, http.StatusNotImplemented, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, points)
}

func (s *Server) runScheduledIngest(ctx context.Context, interval time.Duration) {
	s.logger.Printf("Scheduled ingestion every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runMu.Lock()
			result, err := s.runner.RunFile(ctx, "")
			s.runMu.Unlock()
			if err != nil {
				if errors.Is(err, ingest.ErrSourceNotFound) {
					s.logger.Printf("Scheduled ingestion skipped: %v", err)
				} else {
					s.logger.Printf("Scheduled ingestion failed: %v", err)
				}
				continue
			}
			if result.AlreadyProcessed {
				s.logger.Printf("Scheduled ingestion: drop file unchanged")
			}
		}
	}
}

func (s *Server) runScheduledSync(ctx context.Context, interval time.Duration) {
	s.logger.Printf("Scheduled network sync every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runMu.Lock()
			_, err := s.runner.RunSync(ctx, s.registry, s.syncDays)
			s.runMu.Unlock()
			if err != nil {
				s.logger.Printf("Scheduled sync failed: %v", err)
			}
		}
	}
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

// parseRange reads from/to query params, defaulting to the last 30
// days. Writes the error response itself on bad input.
func parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid from %q", raw))
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid to %q", raw))
			return time.Time{}, time.Time{}, false
		}
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("to is before from"))
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
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

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
