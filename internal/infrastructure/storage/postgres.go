package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"newsroom/internal/domain"
)

// psq builds queries with Postgres placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the pipeline tables when they do not exist yet.
// Each statement is idempotent; a crash between them leaves a re-runnable state.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS raw_items (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			guid TEXT NOT NULL DEFAULT '',
			dedup_key TEXT NOT NULL,
			category_hint TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ NOT NULL,
			collected_at TIMESTAMPTZ NOT NULL,
			relevance_score DOUBLE PRECISION,
			scored_at TIMESTAMPTZ,
			metadata JSONB,
			UNIQUE (source_id, dedup_key)
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id TEXT PRIMARY KEY,
			raw_item_id TEXT,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			region TEXT NOT NULL DEFAULT '',
			confidence DOUBLE PRECISION,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			validated_at TIMESTAMPTZ,
			published_at TIMESTAMPTZ,
			rejection_reason TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS publications (
			id TEXT PRIMARY KEY,
			article_id TEXT NOT NULL,
			segment TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pipeline_runs (
			run_id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL,
			collected INTEGER NOT NULL DEFAULT 0,
			scored INTEGER NOT NULL DEFAULT 0,
			generated INTEGER NOT NULL DEFAULT 0,
			validated INTEGER NOT NULL DEFAULT 0,
			published INTEGER NOT NULL DEFAULT 0,
			errors JSONB NOT NULL DEFAULT '[]',
			worker_status JSONB NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS pipeline_kv (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			expires_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS pipeline_leases (
			mode TEXT PRIMARY KEY,
			holder TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStorageFailure, op, err)
}
