package storage

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"newsroom/internal/ports"
)

// LeaseRepo implements the per-mode run lease. Acquisition is a single
// conditional upsert, so concurrent triggers cannot both win; an expired
// lease is stealable.
type LeaseRepo struct {
	db *sql.DB
}

var _ ports.LeaseStore = (*LeaseRepo)(nil)

// NewLeaseRepo wires a sql.DB implementation.
func NewLeaseRepo(db *sql.DB) *LeaseRepo {
	return &LeaseRepo{db: db}
}

// Acquire takes the lease for the mode; reports false when an unexpired lease
// is held by a different holder.
func (l *LeaseRepo) Acquire(ctx context.Context, mode string, holder string, ttl time.Duration) (bool, error) {
	expires := time.Now().UTC().Add(ttl)

	query, args, err := psq.Insert("pipeline_leases").
		Columns("mode", "holder", "expires_at").
		Values(mode, holder, expires).
		Suffix(`ON CONFLICT (mode) DO UPDATE
			SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
			WHERE pipeline_leases.expires_at <= NOW() OR pipeline_leases.holder = EXCLUDED.holder`).
		ToSql()
	if err != nil {
		return false, storageErr("build upsert", err)
	}

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, storageErr("acquire lease", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("rows affected", err)
	}
	return affected > 0, nil
}

// Release drops the lease if this holder still owns it.
func (l *LeaseRepo) Release(ctx context.Context, mode string, holder string) error {
	query, args, err := psq.Delete("pipeline_leases").
		Where(sq.Eq{"mode": mode, "holder": holder}).
		ToSql()
	if err != nil {
		return storageErr("build delete", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return storageErr("release lease", err)
	}
	return nil
}
