package ports

import (
	"context"
	"time"

	"newsroom/internal/domain"
	"newsroom/internal/feed"
)

// FeedFetcher retrieves and parses one source's feed document.
type FeedFetcher interface {
	Fetch(ctx context.Context, src feed.Source) ([]feed.Entry, error)
}

// RawItemRepository persists collected feed items.
type RawItemRepository interface {
	// InsertIfAbsent stores the item unless (source_id, dedup key) already
	// exists; reports whether a row was inserted.
	InsertIfAbsent(ctx context.Context, item domain.RawItem) (bool, error)
	Get(ctx context.Context, id string) (domain.RawItem, error)
	Recent(ctx context.Context, limit int) ([]domain.RawItem, error)
	Unscored(ctx context.Context, limit int) ([]domain.RawItem, error)
	SetScore(ctx context.Context, id string, score float64, at time.Time) error
	// TopQualified returns the highest-scoring items at or above minScore that
	// have no generated article yet, newest first within equal scores.
	TopQualified(ctx context.Context, minScore float64, limit int) ([]domain.RawItem, error)
	// PurgeStale deletes items collected before the cutoff whose score is
	// absent or below the threshold; returns rows removed.
	PurgeStale(ctx context.Context, before time.Time, belowScore float64) (int64, error)
}

// ArticleRepository persists generated articles and their state transitions.
type ArticleRepository interface {
	Insert(ctx context.Context, a domain.Article) error
	Get(ctx context.Context, id string) (domain.Article, error)
	SetValidation(ctx context.Context, id string, confidence float64, status domain.ArticleStatus, reason string, at time.Time) error
	MarkPublished(ctx context.Context, id string, at time.Time) error
	PendingValidation(ctx context.Context, limit int) ([]domain.Article, error)
	ReadyToPublish(ctx context.Context, minConfidence float64, limit int) ([]domain.Article, error)
	PublishedCountSince(ctx context.Context, since time.Time) (int, error)
	PublishedSince(ctx context.Context, since time.Time) ([]domain.Article, error)
	PurgeStaleDrafts(ctx context.Context, before time.Time) (int64, error)
}

// PublicationRepository appends publication records. Append-only.
type PublicationRepository interface {
	Append(ctx context.Context, p domain.Publication) error
}

// RunRepository stores finalized pipeline run reports.
type RunRepository interface {
	Insert(ctx context.Context, run domain.PipelineRun) error
}

// RunLedger is the key-value side store for fast status lookups.
type RunLedger interface {
	SetLatestRun(ctx context.Context, runID string) error
	LatestRun(ctx context.Context) (string, error)
	PutReport(ctx context.Context, run domain.PipelineRun, ttl time.Duration) error
	Report(ctx context.Context, runID string) (domain.PipelineRun, error)
	PutSourceHealth(ctx context.Context, health []domain.SourceHealth) error
	SourceHealth(ctx context.Context) ([]domain.SourceHealth, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// LeaseStore guards against overlapping runs of the same mode.
type LeaseStore interface {
	// Acquire takes the lease for the mode unless an unexpired lease is held
	// by someone else; reports whether it was taken.
	Acquire(ctx context.Context, mode string, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, mode string, holder string) error
}

// TextGenerator produces article drafts from an assembled prompt.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (GeneratedContent, error)
}

// GenerationRequest carries everything the external generator needs.
type GenerationRequest struct {
	SourceTitle string
	SourceBody  string
	Region      string
	Category    string
}

// GeneratedContent is the draft returned by the generator.
type GeneratedContent struct {
	Title string
	Body  string
}

// NewsletterNotifier hands published summaries to the external newsletter system.
type NewsletterNotifier interface {
	SendDigest(ctx context.Context, payload []byte) error
}

// Scheduler controls when the daily cycle executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
