// Package storage archives completed runs in Postgres for later review.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"DiscussionScanner/internal/domain"
	"DiscussionScanner/internal/ports"
)

// PostgresStore persists run summaries and their discussions.
type PostgresStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.RunStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SaveRun inserts one run summary row.
func (s *PostgresStore) SaveRun(ctx context.Context, run domain.Run) error {
	if s.db == nil {
		return nil
	}

	query := s.sb.Insert("scan_runs").
		Columns("id", "started_at", "finished_at", "total_results", "output_file").
		Values(run.ID, run.StartedAt, run.FinishedAt, run.TotalResults, run.OutputFile)

	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// SaveDiscussions inserts the finalized discussions of one run. The
// result set is already unique per URL, so a conflicting row can only
// come from a retried archive; it is skipped.
func (s *PostgresStore) SaveDiscussions(ctx context.Context, runID string, discussions []domain.Discussion) error {
	if s.db == nil || len(discussions) == 0 {
		return nil
	}

	query := s.sb.Insert("discussions").
		Columns("run_id", "url", "title", "content", "platform", "author",
			"created_at", "score", "comments_count", "relevance_score", "keywords_matched").
		Suffix("ON CONFLICT (run_id, url) DO NOTHING")

	for _, d := range discussions {
		query = query.Values(runID, d.URL, d.Title, d.Content, d.Platform, d.Author,
			d.CreatedAt, d.Score, d.CommentsCount, d.RelevanceScore, pq.Array(d.KeywordsMatched))
	}

	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("insert discussions: %w", err)
	}

	return nil
}
