package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"DiscussionScanner/internal/domain"
	"DiscussionScanner/internal/search"
)

const (
	stackOverflowBaseURL     = "https://api.stackexchange.com/2.3"
	stackOverflowQueryBudget = 3
	stackOverflowAnonymous   = "Anonymous"
)

// StackOverflow searches questions through the Stack Exchange API, one
// request per keyword up to the platform's query budget.
type StackOverflow struct {
	client  *http.Client
	baseURL string
	pause   time.Duration
	logger  *slog.Logger
}

var _ search.Adapter = (*StackOverflow)(nil)

// NewStackOverflow wires an HTTP client; nil gets a default with a timeout.
func NewStackOverflow(client *http.Client, logger *slog.Logger) *StackOverflow {
	return &StackOverflow{
		client:  newHTTPClient(client),
		baseURL: stackOverflowBaseURL,
		pause:   defaultPause,
		logger:  logger,
	}
}

// Name identifies the adapter inside the registry.
func (s *StackOverflow) Name() string {
	return search.SourceStackOverflow
}

// Search runs the unit's top keywords as independent question searches.
func (s *StackOverflow) Search(ctx context.Context, unit search.Unit, limit int) ([]domain.NormalizedRecord, error) {
	var records []domain.NormalizedRecord

	for i, keyword := range firstN(unit.Keywords, stackOverflowQueryBudget) {
		if i > 0 {
			if err := wait(ctx, s.pause); err != nil {
				return nil, err
			}
		}

		page, err := s.searchQuestions(ctx, keyword, limit)
		if err != nil {
			return nil, fmt.Errorf("question search %q: %w", keyword, err)
		}
		records = append(records, page...)
	}

	return records, nil
}

type stackOverflowSearch struct {
	Items []struct {
		Title        string `json:"title"`
		Body         string `json:"body"`
		Link         string `json:"link"`
		CreationDate int64  `json:"creation_date"`
		Score        int    `json:"score"`
		AnswerCount  int    `json:"answer_count"`
		Owner        struct {
			DisplayName string `json:"display_name"`
		} `json:"owner"`
	} `json:"items"`
}

func (s *StackOverflow) searchQuestions(ctx context.Context, query string, limit int) ([]domain.NormalizedRecord, error) {
	params := url.Values{}
	params.Set("order", "desc")
	params.Set("sort", "activity")
	params.Set("q", query)
	params.Set("site", "stackoverflow")
	params.Set("pagesize", strconv.Itoa(capLimit(limit, 100)))
	params.Set("filter", "withbody")

	var result stackOverflowSearch
	endpoint := s.baseURL + "/search/advanced?" + params.Encode()
	if err := getJSON(ctx, s.client, endpoint, nil, &result); err != nil {
		return nil, err
	}

	records := make([]domain.NormalizedRecord, 0, len(result.Items))
	for _, item := range result.Items {
		author := item.Owner.DisplayName
		if author == "" {
			author = stackOverflowAnonymous
		}
		records = append(records, domain.NormalizedRecord{
			Title:         item.Title,
			Content:       item.Body,
			URL:           item.Link,
			Author:        author,
			CreatedAt:     time.Unix(item.CreationDate, 0).UTC(),
			Score:         item.Score,
			CommentsCount: item.AnswerCount,
		})
	}

	return records, nil
}
