package storage

import (
	"context"
	"database/sql"

	"newsroom/internal/domain"
	"newsroom/internal/ports"
)

// PublicationRepo appends publication records. Rows are never updated or deleted.
type PublicationRepo struct {
	db *sql.DB
}

var _ ports.PublicationRepository = (*PublicationRepo)(nil)

// NewPublicationRepo wires a sql.DB implementation.
func NewPublicationRepo(db *sql.DB) *PublicationRepo {
	return &PublicationRepo{db: db}
}

// Append stores the article/segment association.
func (r *PublicationRepo) Append(ctx context.Context, p domain.Publication) error {
	query, args, err := psq.Insert("publications").
		Columns("id", "article_id", "segment", "category", "published_at").
		Values(p.ID, p.ArticleID, p.Segment, p.Category, p.PublishedAt).
		ToSql()
	if err != nil {
		return storageErr("build insert", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return storageErr("append publication", err)
	}
	return nil
}
