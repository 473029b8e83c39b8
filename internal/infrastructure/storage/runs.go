package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"newsroom/internal/domain"
	"newsroom/internal/ports"
)

// RunRepo appends finalized pipeline run reports to the run log.
type RunRepo struct {
	db *sql.DB
}

var _ ports.RunRepository = (*RunRepo)(nil)

// NewRunRepo wires a sql.DB implementation.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Insert persists the immutable run record.
func (r *RunRepo) Insert(ctx context.Context, run domain.PipelineRun) error {
	errs, err := json.Marshal(run.Errors)
	if err != nil {
		return storageErr("marshal errors", err)
	}
	workerStatus, err := json.Marshal(run.WorkerStatus)
	if err != nil {
		return storageErr("marshal worker status", err)
	}

	query, args, err := psq.Insert("pipeline_runs").
		Columns("run_id", "mode", "started_at", "completed_at",
			"collected", "scored", "generated", "validated", "published",
			"errors", "worker_status").
		Values(run.RunID, string(run.Mode), run.StartedAt, run.CompletedAt,
			run.Counts.Collected, run.Counts.Scored, run.Counts.Generated,
			run.Counts.Validated, run.Counts.Published, errs, workerStatus).
		ToSql()
	if err != nil {
		return storageErr("build insert", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return storageErr("insert run", err)
	}
	return nil
}
