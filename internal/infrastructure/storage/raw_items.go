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

// RawItemRepo persists collected feed items in Postgres.
type RawItemRepo struct {
	db *sql.DB
}

var _ ports.RawItemRepository = (*RawItemRepo)(nil)

// NewRawItemRepo wires a sql.DB implementation.
func NewRawItemRepo(db *sql.DB) *RawItemRepo {
	return &RawItemRepo{db: db}
}

const rawItemColumns = "id, source_id, title, body, url, guid, category_hint, published_at, collected_at, relevance_score, scored_at, metadata"

// InsertIfAbsent stores the item unless its (source_id, dedup key) pair
// already exists. Duplicates are silently dropped, not errors.
func (r *RawItemRepo) InsertIfAbsent(ctx context.Context, item domain.RawItem) (bool, error) {
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return false, storageErr("marshal metadata", err)
	}

	query, args, err := psq.Insert("raw_items").
		Columns("id", "source_id", "title", "body", "url", "guid", "dedup_key",
			"category_hint", "published_at", "collected_at", "metadata").
		Values(item.ID, item.SourceID, item.Title, item.Body, item.URL, item.GUID,
			item.DedupKey(), item.CategoryHint, item.PublishedAt, item.CollectedAt, metadata).
		Suffix("ON CONFLICT (source_id, dedup_key) DO NOTHING").
		ToSql()
	if err != nil {
		return false, storageErr("build insert", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, storageErr("insert raw item", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("rows affected", err)
	}
	return affected > 0, nil
}

// Get loads a single raw item by id.
func (r *RawItemRepo) Get(ctx context.Context, id string) (domain.RawItem, error) {
	query, args, err := psq.Select(rawItemColumns).
		From("raw_items").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.RawItem{}, storageErr("build select", err)
	}

	item, err := scanRawItem(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RawItem{}, fmt.Errorf("%w: raw item %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.RawItem{}, storageErr("scan raw item", err)
	}
	return item, nil
}

// Recent returns the latest collected items, newest first.
func (r *RawItemRepo) Recent(ctx context.Context, limit int) ([]domain.RawItem, error) {
	query, args, err := psq.Select(rawItemColumns).
		From("raw_items").
		OrderBy("collected_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, storageErr("build select", err)
	}
	return r.queryItems(ctx, query, args...)
}

// Unscored returns items with no relevance score yet, oldest first.
func (r *RawItemRepo) Unscored(ctx context.Context, limit int) ([]domain.RawItem, error) {
	query, args, err := psq.Select(rawItemColumns).
		From("raw_items").
		Where("relevance_score IS NULL").
		OrderBy("collected_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, storageErr("build select", err)
	}
	return r.queryItems(ctx, query, args...)
}

// SetScore persists the score and scored_at once; an already-scored row is untouched.
func (r *RawItemRepo) SetScore(ctx context.Context, id string, score float64, at time.Time) error {
	query, args, err := psq.Update("raw_items").
		Set("relevance_score", score).
		Set("scored_at", at).
		Where(sq.Eq{"id": id}).
		Where("relevance_score IS NULL").
		ToSql()
	if err != nil {
		return storageErr("build update", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return storageErr("set score", err)
	}
	return nil
}

// TopQualified returns the best-scoring items without a generated article yet.
func (r *RawItemRepo) TopQualified(ctx context.Context, minScore float64, limit int) ([]domain.RawItem, error) {
	query, args, err := psq.Select(rawItemColumns).
		From("raw_items").
		Where(sq.GtOrEq{"relevance_score": minScore}).
		Where("NOT EXISTS (SELECT 1 FROM articles WHERE articles.raw_item_id = raw_items.id)").
		OrderBy("relevance_score DESC", "published_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, storageErr("build select", err)
	}
	return r.queryItems(ctx, query, args...)
}

// PurgeStale removes old items that never qualified.
func (r *RawItemRepo) PurgeStale(ctx context.Context, before time.Time, belowScore float64) (int64, error) {
	query, args, err := psq.Delete("raw_items").
		Where(sq.Lt{"collected_at": before}).
		Where(sq.Or{
			sq.Expr("relevance_score IS NULL"),
			sq.Lt{"relevance_score": belowScore},
		}).
		ToSql()
	if err != nil {
		return 0, storageErr("build delete", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, storageErr("purge raw items", err)
	}
	return res.RowsAffected()
}

func (r *RawItemRepo) queryItems(ctx context.Context, query string, args ...any) ([]domain.RawItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query raw items", err)
	}
	defer rows.Close()

	var items []domain.RawItem
	for rows.Next() {
		item, err := scanRawItem(rows)
		if err != nil {
			return nil, storageErr("scan raw item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("rows iteration", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRawItem(row rowScanner) (domain.RawItem, error) {
	var (
		item     domain.RawItem
		score    sql.NullFloat64
		scoredAt sql.NullTime
		metadata []byte
	)

	err := row.Scan(&item.ID, &item.SourceID, &item.Title, &item.Body, &item.URL,
		&item.GUID, &item.CategoryHint, &item.PublishedAt, &item.CollectedAt,
		&score, &scoredAt, &metadata)
	if err != nil {
		return domain.RawItem{}, err
	}

	if score.Valid {
		item.RelevanceScore = &score.Float64
	}
	if scoredAt.Valid {
		item.ScoredAt = &scoredAt.Time
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
			return domain.RawItem{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return item, nil
}
