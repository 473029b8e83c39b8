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

// GenerateRequest identifies the raw item and target context for a draft.
type GenerateRequest struct {
	RawItemID string
	Region    string
	Category  string
}

// Generator turns qualifying raw items into draft articles via the external
// text generator. The external call is at-most-once per invocation; retry is
// the orchestrator's responsibility through re-selection on a later run.
type Generator struct {
	items    ports.RawItemRepository
	articles ports.ArticleRepository
	textGen  ports.TextGenerator
	logger   *slog.Logger
}

// NewGenerator constructs the generation stage.
func NewGenerator(items ports.RawItemRepository, articles ports.ArticleRepository, textGen ports.TextGenerator, logger *slog.Logger) *Generator {
	return &Generator{items: items, articles: articles, textGen: textGen, logger: logger}
}

// Generate produces and persists one draft article for the raw item.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (domain.Article, error) {
	if strings.TrimSpace(req.RawItemID) == "" {
		return domain.Article{}, fmt.Errorf("%w: raw item id is required", domain.ErrInvalidInput)
	}

	item, err := g.items.Get(ctx, req.RawItemID)
	if err != nil {
		return domain.Article{}, err
	}

	region := req.Region
	if region == "" {
		region = item.Metadata["region"]
	}
	category := req.Category
	if category == "" {
		category = item.CategoryHint
	}

	if g.textGen == nil {
		return domain.Article{}, fmt.Errorf("%w: no text generator configured", domain.ErrUpstreamFailure)
	}

	content, err := g.textGen.Generate(ctx, ports.GenerationRequest{
		SourceTitle: item.Title,
		SourceBody:  item.Body,
		Region:      region,
		Category:    category,
	})
	if err != nil {
		return domain.Article{}, fmt.Errorf("generate from item %s: %w", item.ID, err)
	}

	article := domain.Article{
		ID:        uuid.New().String(),
		RawItemID: item.ID,
		Title:     content.Title,
		Body:      content.Body,
		Category:  category,
		Region:    region,
		Status:    domain.StatusGenerated,
		CreatedAt: time.Now().UTC(),
	}

	if err := g.articles.Insert(ctx, article); err != nil {
		return domain.Article{}, fmt.Errorf("persist article: %w", err)
	}

	if g.logger != nil {
		g.logger.Info("article generated", "article_id", article.ID, "raw_item_id", item.ID, "region", region)
	}
	return article, nil
}
