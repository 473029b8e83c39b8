package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"newsroom/internal/domain"
	"newsroom/internal/ports"
)

const (
	latestRunKey    = "pipeline:latest_run"
	runReportPrefix = "pipeline:run:"
	sourceHealthKey = "pipeline:source_health"
)

// KVLedger stores small side records (latest run id, run reports with TTL,
// source health snapshots) in a single Postgres key-value table.
type KVLedger struct {
	db *sql.DB
}

var _ ports.RunLedger = (*KVLedger)(nil)

// NewKVLedger wires a sql.DB implementation.
func NewKVLedger(db *sql.DB) *KVLedger {
	return &KVLedger{db: db}
}

// SetLatestRun records the most recent run id for fast status lookup.
func (l *KVLedger) SetLatestRun(ctx context.Context, runID string) error {
	return l.put(ctx, latestRunKey, runID, nil)
}

// LatestRun returns the most recent run id, or ErrNotFound before the first run.
func (l *KVLedger) LatestRun(ctx context.Context) (string, error) {
	var runID string
	if err := l.get(ctx, latestRunKey, &runID); err != nil {
		return "", err
	}
	return runID, nil
}

// PutReport stores the serialized run report with a retention TTL.
func (l *KVLedger) PutReport(ctx context.Context, run domain.PipelineRun, ttl time.Duration) error {
	var expires *time.Time
	if ttl > 0 {
		t := time.Now().UTC().Add(ttl)
		expires = &t
	}
	return l.put(ctx, runReportPrefix+run.RunID, run, expires)
}

// Report loads a run report by id; expired entries count as absent.
func (l *KVLedger) Report(ctx context.Context, runID string) (domain.PipelineRun, error) {
	var run domain.PipelineRun
	if err := l.get(ctx, runReportPrefix+runID, &run); err != nil {
		return domain.PipelineRun{}, err
	}
	return run, nil
}

// PutSourceHealth replaces the per-source health snapshot.
func (l *KVLedger) PutSourceHealth(ctx context.Context, health []domain.SourceHealth) error {
	return l.put(ctx, sourceHealthKey, health, nil)
}

// SourceHealth returns the last stored snapshot; empty before the first collection.
func (l *KVLedger) SourceHealth(ctx context.Context) ([]domain.SourceHealth, error) {
	var health []domain.SourceHealth
	err := l.get(ctx, sourceHealthKey, &health)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return health, nil
}

func (l *KVLedger) put(ctx context.Context, key string, value any, expires *time.Time) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return storageErr("marshal value", err)
	}

	query, args, err := psq.Insert("pipeline_kv").
		Columns("key", "value", "expires_at").
		Values(key, raw, expires).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at").
		ToSql()
	if err != nil {
		return storageErr("build upsert", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return storageErr("put kv entry", err)
	}
	return nil
}

func (l *KVLedger) get(ctx context.Context, key string, out any) error {
	query, args, err := psq.Select("value").
		From("pipeline_kv").
		Where(sq.Eq{"key": key}).
		Where(sq.Or{
			sq.Expr("expires_at IS NULL"),
			sq.Gt{"expires_at": time.Now().UTC()},
		}).
		ToSql()
	if err != nil {
		return storageErr("build select", err)
	}

	var raw []byte
	err = l.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: kv entry %s", domain.ErrNotFound, key)
	}
	if err != nil {
		return storageErr("get kv entry", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return storageErr("unmarshal value", err)
	}
	return nil
}

// PurgeExpired drops KV entries past their expiry. Called from housekeeping.
func (l *KVLedger) PurgeExpired(ctx context.Context) (int64, error) {
	query, args, err := psq.Delete("pipeline_kv").
		Where("expires_at IS NOT NULL").
		Where(sq.LtOrEq{"expires_at": time.Now().UTC()}).
		ToSql()
	if err != nil {
		return 0, storageErr("build delete", err)
	}

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, storageErr("purge kv entries", err)
	}
	return res.RowsAffected()
}
