package ports

import (
	"context"

	"DiscussionScanner/internal/domain"
)

// ResultWriter persists the finalized result set as a single document.
type ResultWriter interface {
	Write(path string, discussions []domain.Discussion) error
}

// RunStore archives completed runs and their discussions for later review.
type RunStore interface {
	SaveRun(ctx context.Context, run domain.Run) error
	SaveDiscussions(ctx context.Context, runID string, discussions []domain.Discussion) error
}

// ChatClient sends a result payload with a prompt to an LLM API and
// returns the completion text.
type ChatClient interface {
	Analyze(ctx context.Context, prompt string, payload []byte) (string, error)
}
