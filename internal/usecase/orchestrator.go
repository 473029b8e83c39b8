package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"newsroom/internal/config"
	"newsroom/internal/domain"
	"newsroom/internal/ports"
)

// Stage names as recorded in the run's worker status.
const (
	stageCollect  = "collect"
	stageScore    = "score"
	stageGenerate = "generate"
	stageValidate = "validate"
	stagePublish  = "publish"
)

// OrchestratorDeps wires the stages and side stores into one runner.
type OrchestratorDeps struct {
	Collector *Collector
	Scorer    *Scorer
	Generator *Generator
	Validator *Validator
	Publisher *Publisher
	Items     ports.RawItemRepository
	Articles  ports.ArticleRepository
	Runs      ports.RunRepository
	Ledger    ports.RunLedger
	Leases    ports.LeaseStore
	Pipeline  config.PipelineConfig
	Logger    *slog.Logger
}

// Orchestrator sequences the pipeline stages for a single run and persists
// the run report. Stages run sequentially; items within the generate,
// validate, and publish stages run with bounded parallelism. Per-item and
// per-stage failures are recorded, never propagated; the run always proceeds
// to the next stage, and only a failure persisting the final report surfaces.
type Orchestrator struct {
	collector *Collector
	scorer    *Scorer
	generator *Generator
	validator *Validator
	publisher *Publisher
	items     ports.RawItemRepository
	articles  ports.ArticleRepository
	runs      ports.RunRepository
	ledger    ports.RunLedger
	leases    ports.LeaseStore
	cfg       config.PipelineConfig
	logger    *slog.Logger
}

// NewOrchestrator constructs the pipeline runner.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{
		collector: deps.Collector,
		scorer:    deps.Scorer,
		generator: deps.Generator,
		validator: deps.Validator,
		publisher: deps.Publisher,
		items:     deps.Items,
		articles:  deps.Articles,
		runs:      deps.Runs,
		ledger:    deps.Ledger,
		leases:    deps.Leases,
		cfg:       deps.Pipeline,
		logger:    deps.Logger,
	}
}

// Run executes the stages the mode includes and persists the run report.
// force bypasses the run lease for manual overrides.
func (o *Orchestrator) Run(ctx context.Context, mode domain.RunMode, force bool) (domain.PipelineRun, error) {
	if !mode.Valid() {
		return domain.PipelineRun{}, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, mode)
	}

	runID := uuid.New().String()

	if o.leases != nil && !force {
		acquired, err := o.leases.Acquire(ctx, string(mode), runID, o.cfg.LeaseTTL)
		if err != nil {
			return domain.PipelineRun{}, fmt.Errorf("acquire run lease: %w", err)
		}
		if !acquired {
			return domain.PipelineRun{}, fmt.Errorf("%w: a %s run is already in progress", domain.ErrPreconditionFailed, mode)
		}
		defer func() {
			if err := o.leases.Release(context.WithoutCancel(ctx), string(mode), runID); err != nil {
				o.logf("lease release failed", "run_id", runID, "error", err)
			}
		}()
	}

	run := domain.PipelineRun{
		RunID:        runID,
		Mode:         mode,
		StartedAt:    time.Now().UTC(),
		Errors:       []string{},
		WorkerStatus: map[string]domain.StageOutcome{},
	}
	o.logf("pipeline run started", "run_id", runID, "mode", mode)

	o.runStage(ctx, &run, stageCollect, o.collectStage)
	o.runStage(ctx, &run, stageScore, o.scoreStage)
	o.runStage(ctx, &run, stageGenerate, o.generateStage)
	o.runStage(ctx, &run, stageValidate, o.validateStage)
	o.runStage(ctx, &run, stagePublish, o.publishStage)

	run.CompletedAt = time.Now().UTC()

	if err := o.runs.Insert(ctx, run); err != nil {
		return run, fmt.Errorf("persist run record: %w", err)
	}

	// Side-ledger writes are a fast path, not the source of truth.
	if o.ledger != nil {
		if err := o.ledger.PutReport(ctx, run, o.cfg.ReportTTL); err != nil {
			o.logf("store run report failed", "run_id", runID, "error", err)
		}
		if err := o.ledger.SetLatestRun(ctx, runID); err != nil {
			o.logf("store latest run failed", "run_id", runID, "error", err)
		}
	}

	o.logf("pipeline run finished",
		"run_id", runID,
		"success", run.Success(),
		"collected", run.Counts.Collected,
		"scored", run.Counts.Scored,
		"generated", run.Counts.Generated,
		"validated", run.Counts.Validated,
		"published", run.Counts.Published,
		"errors", len(run.Errors))
	return run, nil
}

// LatestStatus loads the most recent run report from the ledger.
func (o *Orchestrator) LatestStatus(ctx context.Context) (domain.PipelineRun, error) {
	runID, err := o.ledger.LatestRun(ctx)
	if err != nil {
		return domain.PipelineRun{}, err
	}
	return o.ledger.Report(ctx, runID)
}

// runStage executes one stage if the mode includes it, recording its outcome.
// A stage error is appended to the run's error list and the run continues.
func (o *Orchestrator) runStage(ctx context.Context, run *domain.PipelineRun, name string, stage func(context.Context, *domain.PipelineRun) error) {
	if !run.Mode.Includes(domain.RunMode(name)) {
		run.WorkerStatus[name] = domain.StageSkipped
		return
	}

	if err := stage(ctx, run); err != nil {
		run.Errors = append(run.Errors, fmt.Sprintf("%s: %v", name, err))
		run.WorkerStatus[name] = domain.StageFailed
		o.logf("stage failed", "run_id", run.RunID, "stage", name, "error", err)
		return
	}
	run.WorkerStatus[name] = domain.StageCompleted
}

func (o *Orchestrator) collectStage(ctx context.Context, run *domain.PipelineRun) error {
	report := o.collector.CollectAll(ctx, nil)
	run.Counts.Collected = report.Collected
	run.Errors = append(run.Errors, report.Errors()...)
	return nil
}

func (o *Orchestrator) scoreStage(ctx context.Context, run *domain.PipelineRun) error {
	report, err := o.scorer.ScorePending(ctx)
	run.Counts.Scored = report.Processed
	return err
}

func (o *Orchestrator) generateStage(ctx context.Context, run *domain.PipelineRun) error {
	items, err := o.items.TopQualified(ctx, o.cfg.QualificationThreshold, o.cfg.GenerateBatch)
	if err != nil {
		return fmt.Errorf("select generation batch: %w", err)
	}

	succeeded, errs := o.forEachItem(ctx, len(items), func(ctx context.Context, i int) error {
		item := items[i]
		_, err := o.generator.Generate(ctx, GenerateRequest{
			RawItemID: item.ID,
			Region:    item.Metadata["region"],
			Category:  item.CategoryHint,
		})
		return err
	})

	run.Counts.Generated = succeeded
	run.Errors = append(run.Errors, errs...)
	return nil
}

func (o *Orchestrator) validateStage(ctx context.Context, run *domain.PipelineRun) error {
	pending, err := o.articles.PendingValidation(ctx, o.cfg.ValidateBatch)
	if err != nil {
		return fmt.Errorf("select validation batch: %w", err)
	}

	var mu sync.Mutex
	validated := 0
	_, errs := o.forEachItem(ctx, len(pending), func(ctx context.Context, i int) error {
		article := pending[i]

		result, err := o.validator.Validate(article.Body, article.Category)
		if err != nil {
			return fmt.Errorf("article %s: %w", article.ID, err)
		}

		status := domain.StatusReview
		reason := strings.Join(result.Flags, "; ")
		if result.Approved {
			status = domain.StatusValidated
			reason = ""
		}

		if err := o.articles.SetValidation(ctx, article.ID, result.Confidence, status, reason, time.Now().UTC()); err != nil {
			return fmt.Errorf("article %s: %w", article.ID, err)
		}

		if result.Approved {
			mu.Lock()
			validated++
			mu.Unlock()
		}
		return nil
	})

	run.Counts.Validated = validated
	run.Errors = append(run.Errors, errs...)
	return nil
}

func (o *Orchestrator) publishStage(ctx context.Context, run *domain.PipelineRun) error {
	ready, err := o.articles.ReadyToPublish(ctx, o.cfg.PublishThreshold, o.cfg.PublishBatch)
	if err != nil {
		return fmt.Errorf("select publish batch: %w", err)
	}

	succeeded, errs := o.forEachItem(ctx, len(ready), func(ctx context.Context, i int) error {
		_, err := o.publisher.Publish(ctx, ready[i].ID)
		return err
	})

	run.Counts.Published = succeeded
	run.Errors = append(run.Errors, errs...)
	return nil
}

// forEachItem runs the item function over the batch with bounded parallelism.
// Item failures are collected, never aborting the remaining batch.
func (o *Orchestrator) forEachItem(ctx context.Context, size int, fn func(context.Context, int) error) (int, []string) {
	concurrency := o.cfg.StageConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		group     errgroup.Group
		mu        sync.Mutex
		succeeded int
		errs      []string
	)
	group.SetLimit(concurrency)

	for i := 0; i < size; i++ {
		i := i
		group.Go(func() error {
			err := fn(ctx, i)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err.Error())
			} else {
				succeeded++
			}
			return nil
		})
	}
	_ = group.Wait()

	return succeeded, errs
}

func (o *Orchestrator) logf(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}
