package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"DiscussionScanner/internal/config"
	"DiscussionScanner/internal/domain"
	"DiscussionScanner/internal/ports"
	"DiscussionScanner/internal/relevance"
	"DiscussionScanner/internal/search"
	"DiscussionScanner/internal/status"
)

// ErrScanActive is returned when a run is requested while another run
// still owns the tracker.
var ErrScanActive = errors.New("scan already in progress")

// OrchestratorDeps wires all driven adapters into the scan run.
type OrchestratorDeps struct {
	Registry *search.Registry
	Writer   ports.ResultWriter
	Store    ports.RunStore
	Tracker  *status.Tracker
	Logger   *slog.Logger
}

// Orchestrator drives the task planner's units through the source
// adapters and the relevance scorer, accumulating discussions and
// updating the shared status tracker, then finalizes and persists the
// result set. Units execute strictly sequentially; each adapter is
// expected to pace its own outbound requests.
type Orchestrator struct {
	registry *search.Registry
	writer   ports.ResultWriter
	store    ports.RunStore
	tracker  *status.Tracker
	logger   *slog.Logger
}

// NewOrchestrator constructs the scan orchestration component.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		registry: deps.Registry,
		writer:   deps.Writer,
		store:    deps.Store,
		tracker:  deps.Tracker,
		logger:   logger,
	}
}

// Tracker exposes read access to the run status for pollers.
func (o *Orchestrator) Tracker() *status.Tracker {
	return o.tracker
}

// Run executes one full scan. Configuration is validated before any
// status mutation. Adapter failures are fail-open (logged, the unit
// contributes zero records, progress still advances); everything else is
// run-fatal: the loop aborts, the tracker freezes with the error, and
// the accumulated results are discarded. Cancellation is observed at
// every unit boundary.
func (o *Orchestrator) Run(ctx context.Context, cfg config.ScanConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid scan config: %w", err)
	}

	startedAt := time.Now()
	if !o.tracker.Begin(startedAt) {
		return ErrScanActive
	}

	units, total := Plan(cfg)
	scorer := relevance.NewScorer(cfg.Selection())

	o.logger.Info("scan started", "units", total, "threshold", cfg.RelevanceThreshold)

	var accumulated []domain.Discussion
	for completed, unit := range units {
		if err := ctx.Err(); err != nil {
			o.tracker.Fail("Stopped by user")
			return fmt.Errorf("scan stopped: %w", err)
		}

		o.tracker.SetTask(unit.TaskLabel())

		adapter, err := o.registry.Resolve(unit.Source)
		if err != nil {
			o.tracker.Fail(err.Error())
			return fmt.Errorf("resolve source: %w", err)
		}

		records, err := adapter.Search(ctx, unit, cfg.ResultsPerSearch)
		if err != nil {
			// Fail-open: one unavailable source never aborts the run.
			o.logger.Warn("source degraded to zero records",
				"source", unit.Source, "category", unit.Category, "error", err)
			records = nil
		}

		for _, rec := range records {
			score, matched := scorer.Score(rec.Content, rec.Title)
			if score < cfg.RelevanceThreshold {
				continue
			}
			accumulated = append(accumulated, newDiscussion(rec, unit, score, matched))
		}

		o.tracker.Advance(completed+1, total, len(accumulated))
	}

	final := Finalize(accumulated)

	if err := o.writer.Write(cfg.OutputFile, final); err != nil {
		o.tracker.Fail(err.Error())
		return fmt.Errorf("write results: %w", err)
	}

	o.archive(ctx, domain.Run{
		ID:           uuid.NewString(),
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
		TotalResults: len(final),
		OutputFile:   cfg.OutputFile,
	}, final)

	o.tracker.Complete("Completed successfully", len(final))
	o.logger.Info("scan completed", "results", len(final), "output", cfg.OutputFile)
	return nil
}

// archive stores the finished run in the optional database. The written
// file is the contract with the operator, so store failures are logged
// and never fail an otherwise successful run.
func (o *Orchestrator) archive(ctx context.Context, run domain.Run, discussions []domain.Discussion) {
	if o.store == nil {
		return
	}

	if err := o.store.SaveRun(ctx, run); err != nil {
		o.logger.Warn("archive run failed", "run", run.ID, "error", err)
		return
	}
	if err := o.store.SaveDiscussions(ctx, run.ID, discussions); err != nil {
		o.logger.Warn("archive discussions failed", "run", run.ID, "error", err)
	}
}

func newDiscussion(rec domain.NormalizedRecord, unit search.Unit, score float64, matched []string) domain.Discussion {
	platform := rec.Platform
	if platform == "" {
		platform = unit.Platform
	}

	return domain.Discussion{
		Title:           rec.Title,
		Content:         domain.TruncateContent(rec.Content),
		URL:             rec.URL,
		Platform:        platform,
		Author:          rec.Author,
		CreatedAt:       rec.CreatedAt,
		Score:           rec.Score,
		CommentsCount:   rec.CommentsCount,
		RelevanceScore:  score,
		KeywordsMatched: matched,
	}
}
