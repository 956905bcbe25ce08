package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"DiscussionScanner/internal/domain"
	"DiscussionScanner/internal/ports"
	"DiscussionScanner/internal/status"
)

// ErrAnalysisActive is returned when an analysis is requested while a
// previous one is still running.
var ErrAnalysisActive = errors.New("analysis already in progress")

// payloadLimit is the rough request-size cutoff above which the result
// set is reduced to a summary before being sent to the LLM.
const payloadLimit = 80000

// summaryItems caps the reduced payload.
const summaryItems = 50

// Analyzer feeds a written result file with an operator prompt to an LLM
// and records the completion in its own status tracker.
type Analyzer struct {
	chat    ports.ChatClient
	tracker *status.Tracker
	logger  *slog.Logger
}

// NewAnalyzer constructs the analysis flow.
func NewAnalyzer(chat ports.ChatClient, tracker *status.Tracker, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{chat: chat, tracker: tracker, logger: logger}
}

// Tracker exposes read access to the analysis status for pollers.
func (a *Analyzer) Tracker() *status.Tracker {
	return a.tracker
}

// Configured reports whether a chat client is available.
func (a *Analyzer) Configured() bool {
	return a.chat != nil
}

// Run loads discussions from resultsPath, shrinks the payload when it is
// too large, and asks the chat client for an analysis. Progress moves
// through coarse checkpoints; any failure freezes the tracker with the
// error description.
func (a *Analyzer) Run(ctx context.Context, resultsPath, prompt string) error {
	if a.chat == nil {
		return errors.New("analysis is not configured: missing API key")
	}
	if prompt == "" {
		return errors.New("analysis prompt is required")
	}

	if !a.tracker.Begin(time.Now()) {
		return ErrAnalysisActive
	}

	a.tracker.SetTask("Loading results file")
	a.tracker.SetProgress(10)

	raw, err := os.ReadFile(resultsPath)
	if err != nil {
		a.tracker.Fail(err.Error())
		return fmt.Errorf("read results: %w", err)
	}

	var discussions []domain.Discussion
	if err := json.Unmarshal(raw, &discussions); err != nil {
		a.tracker.Fail(err.Error())
		return fmt.Errorf("decode results: %w", err)
	}
	if len(discussions) == 0 {
		a.tracker.Fail("results file is empty")
		return errors.New("results file is empty")
	}

	a.tracker.SetTask("Preparing data for analysis")
	a.tracker.SetProgress(25)

	payload, err := buildAnalysisPayload(raw, discussions)
	if err != nil {
		a.tracker.Fail(err.Error())
		return fmt.Errorf("build payload: %w", err)
	}

	a.tracker.SetTask("Sending request to the analysis model")
	a.tracker.SetProgress(50)

	result, err := a.chat.Analyze(ctx, prompt, payload)
	if err != nil {
		a.tracker.Fail(err.Error())
		return fmt.Errorf("analyze: %w", err)
	}

	a.tracker.SetTask("Processing results")
	a.tracker.SetProgress(90)

	a.tracker.FinishResult("Analysis completed", result)
	a.logger.Info("analysis completed", "file", resultsPath, "items", len(discussions))
	return nil
}

// buildAnalysisPayload returns the raw document when it fits, or a
// trimmed view (first summaryItems entries, shortened content) when the
// full set would blow the model's context.
func buildAnalysisPayload(raw []byte, discussions []domain.Discussion) ([]byte, error) {
	if len(raw) <= payloadLimit {
		return raw, nil
	}

	type summary struct {
		Title           string   `json:"title"`
		Platform        string   `json:"platform"`
		RelevanceScore  float64  `json:"relevance_score"`
		KeywordsMatched []string `json:"keywords_matched"`
		Content         string   `json:"content"`
	}

	if len(discussions) > summaryItems {
		discussions = discussions[:summaryItems]
	}

	items := make([]summary, 0, len(discussions))
	for _, d := range discussions {
		content := d.Content
		if runes := []rune(content); len(runes) > 200 {
			content = string(runes[:200])
		}
		items = append(items, summary{
			Title:           d.Title,
			Platform:        d.Platform,
			RelevanceScore:  d.RelevanceScore,
			KeywordsMatched: d.KeywordsMatched,
			Content:         content,
		})
	}

	return json.MarshalIndent(items, "", "  ")
}
