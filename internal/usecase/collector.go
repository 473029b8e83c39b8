package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"newsroom/internal/domain"
	"newsroom/internal/feed"
	"newsroom/internal/ports"
)

// SourceReport is the per-source outcome of one collection pass.
type SourceReport struct {
	SourceID  string `json:"source_id"`
	Collected int    `json:"collected"`
	Skipped   int    `json:"skipped"`
	Error     string `json:"error,omitempty"`
}

// CollectReport aggregates a full collection pass.
type CollectReport struct {
	Collected int            `json:"collected"`
	Sources   []SourceReport `json:"sources"`
	BySource  map[string]int `json:"by_source"`
}

// Errors returns the source-level failures as strings for the run report.
func (r CollectReport) Errors() []string {
	var errs []string
	for _, src := range r.Sources {
		if src.Error != "" {
			errs = append(errs, fmt.Sprintf("collect %s: %s", src.SourceID, src.Error))
		}
	}
	return errs
}

// Collector fetches configured feeds and persists deduplicated raw items.
// Sources are isolated: one failing feed never aborts the pass.
type Collector struct {
	fetcher  ports.FeedFetcher
	items    ports.RawItemRepository
	ledger   ports.RunLedger
	sources  []feed.Source
	minTitle int
	minBody  int
	logger   *slog.Logger

	mu     sync.Mutex
	health map[string]*domain.SourceHealth
}

// CollectorDeps wires the collector's driven adapters and limits.
type CollectorDeps struct {
	Fetcher        ports.FeedFetcher
	Items          ports.RawItemRepository
	Ledger         ports.RunLedger
	Sources        []feed.Source
	MinTitleLength int
	MinBodyLength  int
	Logger         *slog.Logger
}

// NewCollector constructs the collection stage.
func NewCollector(deps CollectorDeps) *Collector {
	return &Collector{
		fetcher:  deps.Fetcher,
		items:    deps.Items,
		ledger:   deps.Ledger,
		sources:  deps.Sources,
		minTitle: deps.MinTitleLength,
		minBody:  deps.MinBodyLength,
		logger:   deps.Logger,
		health:   map[string]*domain.SourceHealth{},
	}
}

// CollectAll fetches every configured source and inserts entries with an
// insert-if-absent policy. Returns per-source counts and errors.
func (c *Collector) CollectAll(ctx context.Context, only map[string]bool) CollectReport {
	report := CollectReport{BySource: map[string]int{}}

	for _, src := range c.sources {
		if len(only) > 0 && !only[src.ID] {
			continue
		}

		srcReport := c.collectSource(ctx, src)
		report.Sources = append(report.Sources, srcReport)
		report.BySource[src.ID] = srcReport.Collected
		report.Collected += srcReport.Collected
	}

	c.snapshotHealth(ctx)
	return report
}

func (c *Collector) collectSource(ctx context.Context, src feed.Source) SourceReport {
	report := SourceReport{SourceID: src.ID}

	entries, err := c.fetcher.Fetch(ctx, src)
	if err != nil {
		c.recordFailure(src.ID, err)
		report.Error = err.Error()
		c.debug("source fetch failed", "source", src.ID, "error", err)
		return report
	}
	c.recordSuccess(src.ID)

	now := time.Now().UTC()
	for _, entry := range entries {
		if c.tooSparse(entry) {
			report.Skipped++
			continue
		}

		inserted, err := c.items.InsertIfAbsent(ctx, domain.RawItem{
			ID:           uuid.New().String(),
			SourceID:     src.ID,
			Title:        entry.Title,
			Body:         entry.Body,
			URL:          entry.Link,
			GUID:         entry.GUID,
			CategoryHint: src.Category,
			PublishedAt:  entry.PublishedAt,
			CollectedAt:  now,
			Metadata:     map[string]string{"region": src.Region, "source_name": src.Name},
		})
		if err != nil {
			report.Error = err.Error()
			c.debug("insert failed", "source", src.ID, "error", err)
			continue
		}
		if inserted {
			report.Collected++
		}
	}

	c.debug("source collected", "source", src.ID, "inserted", report.Collected, "skipped", report.Skipped)
	return report
}

// tooSparse drops entries whose title or body is too short to be informative.
func (c *Collector) tooSparse(entry feed.Entry) bool {
	return len(entry.Title) < c.minTitle || len(entry.Body) < c.minBody
}

func (c *Collector) recordSuccess(sourceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.healthFor(sourceID)
	h.FetchCount++
	now := time.Now().UTC()
	h.LastSuccess = &now
	h.LastError = ""
}

func (c *Collector) recordFailure(sourceID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.healthFor(sourceID)
	h.FetchCount++
	h.ErrorCount++
	h.LastError = err.Error()
}

func (c *Collector) healthFor(sourceID string) *domain.SourceHealth {
	h, ok := c.health[sourceID]
	if !ok {
		h = &domain.SourceHealth{SourceID: sourceID}
		c.health[sourceID] = h
	}
	return h
}

// snapshotHealth pushes the counters to the ledger. Observability only;
// a failed write is logged and ignored.
func (c *Collector) snapshotHealth(ctx context.Context) {
	if c.ledger == nil {
		return
	}

	c.mu.Lock()
	snapshot := make([]domain.SourceHealth, 0, len(c.health))
	for _, h := range c.health {
		snapshot = append(snapshot, *h)
	}
	c.mu.Unlock()

	if err := c.ledger.PutSourceHealth(ctx, snapshot); err != nil {
		c.debug("source health snapshot failed", "error", err)
	}
}

func (c *Collector) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
