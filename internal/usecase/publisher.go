package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"newsroom/internal/domain"
	"newsroom/internal/ports"
)

// PublishResult reports a publication outcome. AlreadyPublished marks the
// no-op success path for a republish.
type PublishResult struct {
	ArticleID        string    `json:"content_id"`
	Title            string    `json:"title"`
	Segment          string    `json:"segment"`
	PublishedAt      time.Time `json:"published_at"`
	AlreadyPublished bool      `json:"already_published,omitempty"`
}

// Publisher promotes validated, high-confidence articles to public visibility.
type Publisher struct {
	articles     ports.ArticleRepository
	publications ports.PublicationRepository
	threshold    float64
	logger       *slog.Logger
}

// NewPublisher constructs the publish stage with its own confidence gate,
// configured independently from the validation threshold.
func NewPublisher(articles ports.ArticleRepository, publications ports.PublicationRepository, threshold float64, logger *slog.Logger) *Publisher {
	return &Publisher{articles: articles, publications: publications, threshold: threshold, logger: logger}
}

// Publish flips the article to published and appends the publication record.
// Republishing an already-published article succeeds without side effects.
func (p *Publisher) Publish(ctx context.Context, articleID string) (PublishResult, error) {
	if strings.TrimSpace(articleID) == "" {
		return PublishResult{}, fmt.Errorf("%w: content id is required", domain.ErrInvalidInput)
	}

	article, err := p.articles.Get(ctx, articleID)
	if err != nil {
		return PublishResult{}, err
	}

	if article.Status == domain.StatusPublished {
		publishedAt := time.Now().UTC()
		if article.PublishedAt != nil {
			publishedAt = *article.PublishedAt
		}
		return PublishResult{
			ArticleID:        article.ID,
			Title:            article.Title,
			Segment:          segmentFor(article),
			PublishedAt:      publishedAt,
			AlreadyPublished: true,
		}, nil
	}

	if article.Status != domain.StatusValidated {
		return PublishResult{}, fmt.Errorf("%w: article %s has status %s", domain.ErrPreconditionFailed, article.ID, article.Status)
	}
	if article.Confidence == nil {
		return PublishResult{}, fmt.Errorf("%w: article %s has no confidence", domain.ErrPreconditionFailed, article.ID)
	}
	if *article.Confidence < p.threshold {
		return PublishResult{}, fmt.Errorf("%w: article %s confidence %.2f below publish threshold %.2f",
			domain.ErrPreconditionFailed, article.ID, *article.Confidence, p.threshold)
	}

	now := time.Now().UTC()
	if err := p.articles.MarkPublished(ctx, article.ID, now); err != nil {
		return PublishResult{}, err
	}

	segment := segmentFor(article)
	err = p.publications.Append(ctx, domain.Publication{
		ID:          uuid.New().String(),
		ArticleID:   article.ID,
		Segment:     segment,
		Category:    article.Category,
		PublishedAt: now,
	})
	if err != nil {
		return PublishResult{}, fmt.Errorf("append publication: %w", err)
	}

	if p.logger != nil {
		p.logger.Info("article published", "article_id", article.ID, "segment", segment)
	}
	return PublishResult{
		ArticleID:   article.ID,
		Title:       article.Title,
		Segment:     segment,
		PublishedAt: now,
	}, nil
}

func segmentFor(article domain.Article) string {
	if article.Region != "" {
		return article.Region
	}
	return article.Category
}
