// Package audit persists a metadata-only trail of masking operations in
// PostgreSQL. The subsystem is optional; when disabled the server runs
// without it.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Store handles audit trail storage with PostgreSQL
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS masking_operations (
	id BIGSERIAL PRIMARY KEY,
	operation_id TEXT NOT NULL,
	operation TEXT NOT NULL,
	filename TEXT NOT NULL DEFAULT '',
	keywords INTEGER NOT NULL DEFAULT 0,
	smart_matches INTEGER NOT NULL DEFAULT 0,
	categories TEXT NOT NULL DEFAULT '{}',
	duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_masking_operations_created_at ON masking_operations (created_at DESC);`

// NewStore creates a new audit store instance
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{
		db:     db,
		logger: logger,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Audit store initialized successfully",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Int("max_idle_conns", config.MaxIdleConns))

	return store, nil
}

// initialize checks the database connection and ensures the schema
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Insert adds a new operation record to the audit trail
func (s *Store) Insert(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO masking_operations (operation_id, operation, filename, keywords, smart_matches, categories, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		record.OperationID,
		record.Operation,
		record.Filename,
		record.Keywords,
		record.SmartMatches,
		record.Categories,
		record.DurationMS,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	s.logger.Debug("audit record inserted",
		zap.Int64("id", record.ID),
		zap.String("operation", record.Operation))
	return nil
}

// Recent returns the newest operation records, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []Record
	query := `
		SELECT id, operation_id, operation, filename, keywords, smart_matches, categories, duration_ms, created_at
		FROM masking_operations
		ORDER BY created_at DESC
		LIMIT $1`
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	return records, nil
}

// GetStats returns aggregate audit trail statistics
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE operation IN ('mask_text', 'mask_document')) AS masked,
			COUNT(*) FILTER (WHERE operation = 'restore') AS restored
		FROM masking_operations`
	row := s.db.QueryRowContext(ctx, query)
	if err := row.Scan(&stats.TotalOperations, &stats.TotalMasked, &stats.TotalRestored); err != nil {
		return nil, fmt.Errorf("failed to query audit stats: %w", err)
	}
	return stats, nil
}

// Close releases the database connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// maskDatabaseURL masks sensitive information in database URL for logging
func maskDatabaseURL(url string) string {
	if at := strings.LastIndex(url, "@"); at != -1 {
		if scheme := strings.Index(url, "://"); scheme != -1 {
			return url[:scheme+3] + "***" + url[at:]
		}
	}
	return url
}
