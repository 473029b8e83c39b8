package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"newsroom/internal/domain"
	"newsroom/internal/ports"
)

// ArticleRepo persists generated articles and their state transitions.
type ArticleRepo struct {
	db *sql.DB
}

var _ ports.ArticleRepository = (*ArticleRepo)(nil)

// NewArticleRepo wires a sql.DB implementation.
func NewArticleRepo(db *sql.DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

const articleColumns = "id, raw_item_id, title, body, category, region, confidence, status, created_at, validated_at, published_at, rejection_reason"

// Insert stores a freshly generated draft.
func (r *ArticleRepo) Insert(ctx context.Context, a domain.Article) error {
	query, args, err := psq.Insert("articles").
		Columns("id", "raw_item_id", "title", "body", "category", "region",
			"status", "created_at").
		Values(a.ID, nullString(a.RawItemID), a.Title, a.Body, a.Category,
			a.Region, string(a.Status), a.CreatedAt).
		ToSql()
	if err != nil {
		return storageErr("build insert", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return storageErr("insert article", err)
	}
	return nil
}

// Get loads a single article by id.
func (r *ArticleRepo) Get(ctx context.Context, id string) (domain.Article, error) {
	query, args, err := psq.Select(articleColumns).
		From("articles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Article{}, storageErr("build select", err)
	}

	a, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, fmt.Errorf("%w: article %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Article{}, storageErr("scan article", err)
	}
	return a, nil
}

// SetValidation records the validator's verdict: confidence, resulting status
// (validated or review) and the rejection reason when rejected.
func (r *ArticleRepo) SetValidation(ctx context.Context, id string, confidence float64, status domain.ArticleStatus, reason string, at time.Time) error {
	query, args, err := psq.Update("articles").
		Set("confidence", confidence).
		Set("status", string(status)).
		Set("rejection_reason", reason).
		Set("validated_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return storageErr("build update", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storageErr("set validation", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: article %s", domain.ErrNotFound, id)
	}
	return nil
}

// MarkPublished flips a validated article to published in one statement.
func (r *ArticleRepo) MarkPublished(ctx context.Context, id string, at time.Time) error {
	query, args, err := psq.Update("articles").
		Set("status", string(domain.StatusPublished)).
		Set("published_at", at).
		Where(sq.Eq{"id": id, "status": string(domain.StatusValidated)}).
		ToSql()
	if err != nil {
		return storageErr("build update", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storageErr("mark published", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: article %s not in validated state", domain.ErrPreconditionFailed, id)
	}
	return nil
}

// PendingValidation returns generated drafts awaiting a verdict, oldest first.
func (r *ArticleRepo) PendingValidation(ctx context.Context, limit int) ([]domain.Article, error) {
	query, args, err := psq.Select(articleColumns).
		From("articles").
		Where(sq.Eq{"status": string(domain.StatusGenerated)}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, storageErr("build select", err)
	}
	return r.queryArticles(ctx, query, args...)
}

// ReadyToPublish returns validated articles at or above the publish threshold.
func (r *ArticleRepo) ReadyToPublish(ctx context.Context, minConfidence float64, limit int) ([]domain.Article, error) {
	query, args, err := psq.Select(articleColumns).
		From("articles").
		Where(sq.Eq{"status": string(domain.StatusValidated)}).
		Where(sq.GtOrEq{"confidence": minConfidence}).
		OrderBy("confidence DESC", "validated_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, storageErr("build select", err)
	}
	return r.queryArticles(ctx, query, args...)
}

// PublishedCountSince counts articles published at or after the given instant.
func (r *ArticleRepo) PublishedCountSince(ctx context.Context, since time.Time) (int, error) {
	query, args, err := psq.Select("COUNT(*)").
		From("articles").
		Where(sq.Eq{"status": string(domain.StatusPublished)}).
		Where(sq.GtOrEq{"published_at": since}).
		ToSql()
	if err != nil {
		return 0, storageErr("build select", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, storageErr("count published", err)
	}
	return count, nil
}

// PublishedSince lists articles published at or after the given instant,
// newest first. Feeds the newsletter hand-off.
func (r *ArticleRepo) PublishedSince(ctx context.Context, since time.Time) ([]domain.Article, error) {
	query, args, err := psq.Select(articleColumns).
		From("articles").
		Where(sq.Eq{"status": string(domain.StatusPublished)}).
		Where(sq.GtOrEq{"published_at": since}).
		OrderBy("published_at DESC").
		ToSql()
	if err != nil {
		return nil, storageErr("build select", err)
	}
	return r.queryArticles(ctx, query, args...)
}

// PurgeStaleDrafts removes unpublished articles older than the cutoff.
func (r *ArticleRepo) PurgeStaleDrafts(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := psq.Delete("articles").
		Where(sq.Lt{"created_at": before}).
		Where(sq.NotEq{"status": string(domain.StatusPublished)}).
		ToSql()
	if err != nil {
		return 0, storageErr("build delete", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, storageErr("purge drafts", err)
	}
	return res.RowsAffected()
}

func (r *ArticleRepo) queryArticles(ctx context.Context, query string, args ...any) ([]domain.Article, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query articles", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, storageErr("scan article", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("rows iteration", err)
	}
	return articles, nil
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var (
		a           domain.Article
		rawItemID   sql.NullString
		confidence  sql.NullFloat64
		status      string
		validatedAt sql.NullTime
		publishedAt sql.NullTime
	)

	err := row.Scan(&a.ID, &rawItemID, &a.Title, &a.Body, &a.Category, &a.Region,
		&confidence, &status, &a.CreatedAt, &validatedAt, &publishedAt, &a.RejectionReason)
	if err != nil {
		return domain.Article{}, err
	}

	a.RawItemID = rawItemID.String
	a.Status = domain.ArticleStatus(status)
	if confidence.Valid {
		a.Confidence = &confidence.Float64
	}
	if validatedAt.Valid {
		a.ValidatedAt = &validatedAt.Time
	}
	if publishedAt.Valid {
		a.PublishedAt = &publishedAt.Time
	}
	return a, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
