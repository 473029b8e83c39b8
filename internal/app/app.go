package app

import (
	"context"
	"fmt"
	"log/slog"

	"newsroom/internal/config"
	"newsroom/internal/feed"
	"newsroom/internal/infrastructure/feedparser"
	"newsroom/internal/infrastructure/httpapi"
	"newsroom/internal/infrastructure/llm"
	"newsroom/internal/infrastructure/notify"
	"newsroom/internal/infrastructure/scheduler"
	"newsroom/internal/infrastructure/storage"
	"newsroom/internal/logging"
	"newsroom/internal/ports"
	"newsroom/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	scheduler *usecase.Scheduler
	router    interface{ Run(...string) error }
}

// New builds a runnable application instance.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("prepare schema: %w", err)
	}

	items := storage.NewRawItemRepo(db)
	articles := storage.NewArticleRepo(db)
	publications := storage.NewPublicationRepo(db)
	runs := storage.NewRunRepo(db)
	ledger := storage.NewKVLedger(db)
	leases := storage.NewLeaseRepo(db)

	registry := feed.NewRegistry()
	registry.Register(feedparser.NewRSSParser())
	registry.Register(feedparser.NewAtomParser())
	fetcher := feedparser.NewHTTPFetcher(nil, registry, cfg.Pipeline.FetchTimeout)

	// The chat client reports a misconfigured key as an upstream failure on
	// use, so a keyless deployment degrades to failed generate stages instead
	// of a dead pipeline.
	textGen := llm.NewChatGenerator(cfg.Generation)

	var notifier ports.NewsletterNotifier
	if cfg.Newsletter.WebhookURL != "" {
		notifier = notify.NewNewsletterClient(cfg.Newsletter.WebhookURL)
	}

	collector := usecase.NewCollector(usecase.CollectorDeps{
		Fetcher:        fetcher,
		Items:          items,
		Ledger:         ledger,
		Sources:        cfg.FeedSources(),
		MinTitleLength: cfg.Pipeline.MinTitleLength,
		MinBodyLength:  cfg.Pipeline.MinBodyLength,
		Logger:         baseLogger.With("component", "collector"),
	})

	priorities := map[string]float64{}
	for _, src := range cfg.Sources {
		priorities[src.ID] = src.Priority
	}
	scorer := usecase.NewScorer(items, usecase.DefaultScoreFunc(priorities),
		cfg.Pipeline.QualificationThreshold, 0, baseLogger.With("component", "scorer"))

	generator := usecase.NewGenerator(items, articles, textGen, baseLogger.With("component", "generator"))
	validator := usecase.NewValidator(cfg.Pipeline.ValidationThreshold, cfg.Pipeline.MinBodyLength*2, nil)
	publisher := usecase.NewPublisher(articles, publications, cfg.Pipeline.PublishThreshold,
		baseLogger.With("component", "publisher"))

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Collector: collector,
		Scorer:    scorer,
		Generator: generator,
		Validator: validator,
		Publisher: publisher,
		Items:     items,
		Articles:  articles,
		Runs:      runs,
		Ledger:    ledger,
		Leases:    leases,
		Pipeline:  cfg.Pipeline,
		Logger:    baseLogger.With("component", "orchestrator"),
	})

	dailyScheduler := usecase.NewScheduler(usecase.SchedulerDeps{
		Orchestrator: orchestrator,
		Generator:    generator,
		Items:        items,
		Articles:     articles,
		Ledger:       ledger,
		Notifier:     notifier,
		Driver:       scheduler.NewTickerDriver(cfg.Scheduler.Interval),
		Pipeline:     cfg.Pipeline,
		Schedule:     cfg.Scheduler,
		Logger:       baseLogger.With("component", "scheduler"),
	})

	router := httpapi.NewRouter(httpapi.Deps{
		Orchestrator: orchestrator,
		Collector:    collector,
		Scorer:       scorer,
		Generator:    generator,
		Validator:    validator,
		Publisher:    publisher,
		Scheduler:    dailyScheduler,
		Items:        items,
		Logger:       baseLogger.With("component", "http"),
	})

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		scheduler: dailyScheduler,
		router:    router,
	}, nil
}

// Run starts the daily cycle and serves the HTTP API until the listener stops.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer func() {
		_ = a.scheduler.Stop(context.WithoutCancel(ctx))
	}()

	a.logger.Info("serving pipeline API", "addr", a.cfg.Server.ListenAddr)
	return a.router.Run(a.cfg.Server.ListenAddr)
}
