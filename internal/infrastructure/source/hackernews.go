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
	hackerNewsBaseURL     = "https://hn.algolia.com/api/v1"
	hackerNewsItemURL     = "https://news.ycombinator.com/item?id="
	hackerNewsQueryBudget = 3
	hackerNewsWindow      = 365 * 24 * time.Hour
)

// HackerNews searches stories through the Algolia API, one request per
// keyword up to the platform's query budget, limited to the past year.
type HackerNews struct {
	client  *http.Client
	baseURL string
	pause   time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

var _ search.Adapter = (*HackerNews)(nil)

// NewHackerNews wires an HTTP client; nil gets a default with a timeout.
func NewHackerNews(client *http.Client, logger *slog.Logger) *HackerNews {
	return &HackerNews{
		client:  newHTTPClient(client),
		baseURL: hackerNewsBaseURL,
		pause:   defaultPause,
		now:     time.Now,
		logger:  logger,
	}
}

// Name identifies the adapter inside the registry.
func (h *HackerNews) Name() string {
	return search.SourceHackerNews
}

// Search runs the unit's top keywords as independent story searches.
func (h *HackerNews) Search(ctx context.Context, unit search.Unit, limit int) ([]domain.NormalizedRecord, error) {
	var records []domain.NormalizedRecord

	for i, keyword := range firstN(unit.Keywords, hackerNewsQueryBudget) {
		if i > 0 {
			if err := wait(ctx, h.pause); err != nil {
				return nil, err
			}
		}

		page, err := h.searchStories(ctx, keyword, limit)
		if err != nil {
			return nil, fmt.Errorf("story search %q: %w", keyword, err)
		}
		records = append(records, page...)
	}

	return records, nil
}

type hackerNewsSearch struct {
	Hits []struct {
		Title       string `json:"title"`
		StoryText   string `json:"story_text"`
		URL         string `json:"url"`
		ObjectID    string `json:"objectID"`
		Author      string `json:"author"`
		CreatedAt   string `json:"created_at"`
		Points      int    `json:"points"`
		NumComments int    `json:"num_comments"`
	} `json:"hits"`
}

func (h *HackerNews) searchStories(ctx context.Context, query string, limit int) ([]domain.NormalizedRecord, error) {
	cutoff := h.now().Add(-hackerNewsWindow).Unix()

	params := url.Values{}
	params.Set("query", query)
	params.Set("tags", "story")
	params.Set("hitsPerPage", strconv.Itoa(capLimit(limit, 50)))
	params.Set("numericFilters", fmt.Sprintf("created_at_i>%d", cutoff))

	var result hackerNewsSearch
	endpoint := h.baseURL + "/search?" + params.Encode()
	if err := getJSON(ctx, h.client, endpoint, nil, &result); err != nil {
		return nil, err
	}

	records := make([]domain.NormalizedRecord, 0, len(result.Hits))
	for _, hit := range result.Hits {
		content := hit.StoryText
		if content == "" {
			content = hit.URL
		}
		records = append(records, domain.NormalizedRecord{
			Title:         hit.Title,
			Content:       content,
			URL:           hackerNewsItemURL + hit.ObjectID,
			Author:        hit.Author,
			CreatedAt:     parseRFC3339(hit.CreatedAt),
			Score:         hit.Points,
			CommentsCount: hit.NumComments,
		})
	}

	return records, nil
}
