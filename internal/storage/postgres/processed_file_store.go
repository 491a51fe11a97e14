package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"affiliate-ingest/internal/domain"
	"affiliate-ingest/internal/storage"
)

// ProcessedFileStore implements storage.ProcessedFileStore using PostgreSQL.
type ProcessedFileStore struct {
	pool *Pool
}

// NewProcessedFileStore creates a new ProcessedFileStore.
func NewProcessedFileStore(pool *Pool) *ProcessedFileStore {
	return &ProcessedFileStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProcessedFileStore = (*ProcessedFileStore)(nil)

// GetByPath retrieves the ledger entry for an absolute path.
// Returns ErrNotFound if the path has never been ingested.
func (s *ProcessedFileStore) GetByPath(ctx context.Context, path string) (*domain.ProcessedFile, error) {
	query := `
		SELECT id, path, hash, read_count, click_count, conversion_count,
		       duplicate_count, error_count, duration_seconds, processed_at
		FROM processed_files
		WHERE path = $1
	`

	f, err := scanProcessedFile(s.pool.QueryRow(ctx, query, path))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get processed file: %w", err)
	}
	return f, nil
}

// Upsert creates the entry for a path or updates it in place.
func (s *ProcessedFileStore) Upsert(ctx context.Context, f *domain.ProcessedFile) error {
	if f == nil || f.Path == "" || f.Hash == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO processed_files (
			path, hash, read_count, click_count, conversion_count,
			duplicate_count, error_count, duration_seconds, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (path) DO UPDATE SET
			hash             = EXCLUDED.hash,
			read_count       = EXCLUDED.read_count,
			click_count      = EXCLUDED.click_count,
			conversion_count = EXCLUDED.conversion_count,
			duplicate_count  = EXCLUDED.duplicate_count,
			error_count      = EXCLUDED.error_count,
			duration_seconds = EXCLUDED.duration_seconds,
			processed_at     = EXCLUDED.processed_at
	`

	_, err := s.pool.Exec(ctx, query,
		f.Path,
		f.Hash,
		f.Counters.Read,
		f.Counters.Clicks,
		f.Counters.Conversions,
		f.Counters.Duplicates,
		f.Counters.Errors,
		f.DurationSeconds,
		f.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert processed file: %w", err)
	}
	return nil
}

// ListRecent retrieves up to limit entries, most recently processed first.
func (s *ProcessedFileStore) ListRecent(ctx context.Context, limit int) ([]*domain.ProcessedFile, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT id, path, hash, read_count, click_count, conversion_count,
		       duplicate_count, error_count, duration_seconds, processed_at
		FROM processed_files
		ORDER BY processed_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list processed files: %w", err)
	}
	defer rows.Close()

	var files []*domain.ProcessedFile
	for rows.Next() {
		f, err := scanProcessedFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan processed file row: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processed file rows: %w", err)
	}

	return files, nil
}

// scanProcessedFile scans one row into a ProcessedFile.
func scanProcessedFile(row pgx.Row) (*domain.ProcessedFile, error) {
	var f domain.ProcessedFile

	err := row.Scan(
		&f.ID,
		&f.Path,
		&f.Hash,
		&f.Counters.Read,
		&f.Counters.Clicks,
		&f.Counters.Conversions,
		&f.Counters.Duplicates,
		&f.Counters.Errors,
		&f.DurationSeconds,
		&f.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
