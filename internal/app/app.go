package app

import (
	"context"
	"database/sql"
	"log/slog"

	"DiscussionScanner/internal/config"
	"DiscussionScanner/internal/infrastructure/llm"
	"DiscussionScanner/internal/infrastructure/output"
	"DiscussionScanner/internal/infrastructure/source"
	"DiscussionScanner/internal/infrastructure/storage"
	"DiscussionScanner/internal/logging"
	"DiscussionScanner/internal/ports"
	"DiscussionScanner/internal/search"
	"DiscussionScanner/internal/status"
	"DiscussionScanner/internal/usecase"
	"DiscussionScanner/internal/web"
)

// Application wires config to the source adapters, use cases, and the
// control panel.
type Application struct {
	cfg          config.Config
	logger       *slog.Logger
	orchestrator *usecase.Orchestrator
	analyzer     *usecase.Analyzer
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	registry := search.NewRegistry()
	registry.Register(source.NewReddit(nil, baseLogger.With("component", "source.reddit")))
	registry.Register(source.NewGitHub(nil, baseLogger.With("component", "source.github")))
	registry.Register(source.NewStackOverflow(nil, baseLogger.With("component", "source.stackoverflow")))
	registry.Register(source.NewHackerNews(nil, baseLogger.With("component", "source.hackernews")))
	registry.Register(source.NewArxiv(nil, baseLogger.With("component", "source.arxiv")))

	var store ports.RunStore
	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			baseLogger.Warn("run archive disabled", "error", err)
		} else {
			store = storage.NewPostgresStore(db)
		}
	}

	var chatClient ports.ChatClient
	if cfg.ChatGPT.APIKey != "" {
		chatClient = llm.NewChatGPTClient(cfg.ChatGPT)
	}

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Registry: registry,
		Writer:   output.JSONWriter{},
		Store:    store,
		Tracker:  status.NewTracker(),
		Logger:   baseLogger.With("component", "orchestrator"),
	})
	analyzer := usecase.NewAnalyzer(chatClient, status.NewTracker(),
		baseLogger.With("component", "analyzer"))

	return &Application{
		cfg:          cfg,
		logger:       baseLogger,
		orchestrator: orchestrator,
		analyzer:     analyzer,
	}
}

// RunOnce performs a single scan with the file configuration.
func (a *Application) RunOnce(ctx context.Context) error {
	return a.orchestrator.Run(ctx, a.cfg.Scan)
}

// Serve starts the control panel and blocks until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	server := web.NewServer(a.cfg, a.orchestrator, a.analyzer,
		a.logger.With("component", "web"))
	return server.Run(ctx)
}
