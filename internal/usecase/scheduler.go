package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"newsroom/internal/config"
	"newsroom/internal/domain"
	"newsroom/internal/ports"
)

// SchedulerStats is the observable state of the daily cycle.
type SchedulerStats struct {
	LastCycleAt       *time.Time            `json:"last_cycle_at,omitempty"`
	LastRunID         string                `json:"last_run_id,omitempty"`
	LastCounts        domain.StageCounts    `json:"last_counts"`
	PublishedToday    int                   `json:"published_today"`
	ToppedUp          int                   `json:"topped_up"`
	PurgedRawItems    int64                 `json:"purged_raw_items"`
	PurgedDrafts      int64                 `json:"purged_drafts"`
	SourceHealth      []domain.SourceHealth `json:"source_health,omitempty"`
	NewsletterSent    bool                  `json:"newsletter_sent"`
	NewsletterError   string                `json:"newsletter_error,omitempty"`
	HousekeepingError string                `json:"housekeeping_error,omitempty"`
}

// SchedulerDeps wires the daily cycle.
type SchedulerDeps struct {
	Orchestrator *Orchestrator
	Generator    *Generator
	Items        ports.RawItemRepository
	Articles     ports.ArticleRepository
	Ledger       ports.RunLedger
	Notifier     ports.NewsletterNotifier
	Driver       ports.Scheduler
	Pipeline     config.PipelineConfig
	Schedule     config.SchedulerConfig
	Logger       *slog.Logger
}

// Scheduler drives the orchestrator on a timer, enforces the minimum daily
// output by widening the generation backlog, hands the day's digest to the
// newsletter collaborator at its hour, and performs retention cleanup. It
// never publishes directly.
type Scheduler struct {
	orchestrator *Orchestrator
	generator    *Generator
	items        ports.RawItemRepository
	articles     ports.ArticleRepository
	ledger       ports.RunLedger
	notifier     ports.NewsletterNotifier
	driver       ports.Scheduler
	pipeline     config.PipelineConfig
	schedule     config.SchedulerConfig
	logger       *slog.Logger

	mu    sync.Mutex
	stats SchedulerStats
}

// NewScheduler constructs the daily cycle runner.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	return &Scheduler{
		orchestrator: deps.Orchestrator,
		generator:    deps.Generator,
		items:        deps.Items,
		articles:     deps.Articles,
		ledger:       deps.Ledger,
		notifier:     deps.Notifier,
		driver:       deps.Driver,
		pipeline:     deps.Pipeline,
		schedule:     deps.Schedule,
		logger:       deps.Logger,
	}
}

// Start registers the daily cycle with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) {
		s.RunDailyCycle(ctx, trigger)
	})
}

// Stop tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

// Stats returns a snapshot of the last cycle's outcome.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// RunDailyCycle executes the scheduled duties in order: full run, minimum
// output top-up, newsletter hand-off at the designated hour, retention purge.
// Each duty is best-effort; a failure is recorded and the cycle continues.
func (s *Scheduler) RunDailyCycle(ctx context.Context, now time.Time) domain.PipelineRun {
	local := now.In(s.schedule.Location())
	stats := SchedulerStats{LastCycleAt: &now}

	run, err := s.orchestrator.Run(ctx, domain.ModeFull, false)
	if err != nil {
		s.logf("scheduled run failed", "error", err)
	}
	stats.LastRunID = run.RunID
	stats.LastCounts = run.Counts

	stats.PublishedToday, stats.ToppedUp = s.topUpGeneration(ctx, local)

	if local.Hour() == s.schedule.DigestHour() {
		stats.NewsletterSent, stats.NewsletterError = s.handOffNewsletter(ctx, local)
	}

	s.housekeep(ctx, now, &stats)

	if health, err := s.ledgerHealth(ctx); err == nil {
		stats.SourceHealth = health
	}

	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
	return run
}

// topUpGeneration widens the generation backlog when the same-day publication
// count is below the minimum target. It never publishes.
func (s *Scheduler) topUpGeneration(ctx context.Context, local time.Time) (published, toppedUp int) {
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())

	published, err := s.articles.PublishedCountSince(ctx, startOfDay)
	if err != nil {
		s.logf("published count failed", "error", err)
		return 0, 0
	}

	deficit := s.schedule.MinDailyPublished - published
	if deficit <= 0 {
		return published, 0
	}

	candidates, err := s.items.TopQualified(ctx, s.pipeline.QualificationThreshold, deficit)
	if err != nil {
		s.logf("top-up selection failed", "error", err)
		return published, 0
	}

	for _, item := range candidates {
		_, err := s.generator.Generate(ctx, GenerateRequest{
			RawItemID: item.ID,
			Region:    item.Metadata["region"],
			Category:  item.CategoryHint,
		})
		if err != nil {
			s.logf("top-up generation failed", "raw_item_id", item.ID, "error", err)
			continue
		}
		toppedUp++
	}

	s.logf("top-up complete", "published_today", published, "target", s.schedule.MinDailyPublished, "generated", toppedUp)
	return published, toppedUp
}

func (s *Scheduler) handOffNewsletter(ctx context.Context, local time.Time) (bool, string) {
	if s.notifier == nil {
		return false, ""
	}

	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	published, err := s.articles.PublishedSince(ctx, startOfDay)
	if err != nil {
		return false, err.Error()
	}
	if len(published) == 0 {
		return false, ""
	}

	type digestItem struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Category string `json:"category"`
		Region   string `json:"region"`
	}
	digest := make([]digestItem, 0, len(published))
	for _, a := range published {
		digest = append(digest, digestItem{ID: a.ID, Title: a.Title, Category: a.Category, Region: a.Region})
	}

	payload, err := json.Marshal(map[string]any{
		"date":     startOfDay.Format("2006-01-02"),
		"articles": digest,
	})
	if err != nil {
		return false, err.Error()
	}

	if err := s.notifier.SendDigest(ctx, payload); err != nil {
		s.logf("newsletter hand-off failed", "error", err)
		return false, err.Error()
	}
	return true, ""
}

// housekeep purges raw items and unpublished drafts past the retention
// window, plus expired ledger entries. Single atomic statements each.
func (s *Scheduler) housekeep(ctx context.Context, now time.Time, stats *SchedulerStats) {
	cutoff := now.Add(-s.schedule.RetentionWindow())

	purgedItems, err := s.items.PurgeStale(ctx, cutoff, s.pipeline.QualificationThreshold)
	if err != nil {
		stats.HousekeepingError = err.Error()
		s.logf("raw item purge failed", "error", err)
	}
	stats.PurgedRawItems = purgedItems

	purgedDrafts, err := s.articles.PurgeStaleDrafts(ctx, cutoff)
	if err != nil {
		stats.HousekeepingError = err.Error()
		s.logf("draft purge failed", "error", err)
	}
	stats.PurgedDrafts = purgedDrafts

	if s.ledger != nil {
		if _, err := s.ledger.PurgeExpired(ctx); err != nil {
			s.logf("ledger purge failed", "error", err)
		}
	}

	s.logf("housekeeping complete", "purged_raw_items", purgedItems, "purged_drafts", purgedDrafts)
}

func (s *Scheduler) ledgerHealth(ctx context.Context) ([]domain.SourceHealth, error) {
	if s.ledger == nil {
		return nil, nil
	}
	return s.ledger.SourceHealth(ctx)
}

func (s *Scheduler) logf(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}
