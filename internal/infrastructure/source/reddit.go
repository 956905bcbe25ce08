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

const redditBaseURL = "https://www.reddit.com"

// Reddit searches subreddit posts through the public search endpoint.
// One work unit issues one request per selected keyword, restricted to
// the unit's subreddit and the past year.
type Reddit struct {
	client  *http.Client
	baseURL string
	pause   time.Duration
	logger  *slog.Logger
}

var _ search.Adapter = (*Reddit)(nil)

// NewReddit wires an HTTP client; nil gets a default with a timeout.
func NewReddit(client *http.Client, logger *slog.Logger) *Reddit {
	return &Reddit{
		client:  newHTTPClient(client),
		baseURL: redditBaseURL,
		pause:   defaultPause,
		logger:  logger,
	}
}

// Name identifies the adapter inside the registry.
func (r *Reddit) Name() string {
	return search.SourceReddit
}

// Search runs the unit's keywords against its subreddit.
func (r *Reddit) Search(ctx context.Context, unit search.Unit, limit int) ([]domain.NormalizedRecord, error) {
	var records []domain.NormalizedRecord

	for i, keyword := range unit.Keywords {
		if i > 0 {
			if err := wait(ctx, r.pause); err != nil {
				return nil, err
			}
		}

		page, err := r.searchSubreddit(ctx, unit.Container, keyword, limit)
		if err != nil {
			return nil, fmt.Errorf("r/%s %q: %w", unit.Container, keyword, err)
		}
		records = append(records, page...)
	}

	return records, nil
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title       string  `json:"title"`
				Selftext    string  `json:"selftext"`
				Permalink   string  `json:"permalink"`
				Author      string  `json:"author"`
				CreatedUTC  float64 `json:"created_utc"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (r *Reddit) searchSubreddit(ctx context.Context, subreddit, query string, limit int) ([]domain.NormalizedRecord, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("restrict_sr", "on")
	params.Set("sort", "relevance")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("t", "year")

	endpoint := fmt.Sprintf("%s/r/%s/search.json?%s", r.baseURL, subreddit, params.Encode())

	var listing redditListing
	if err := getJSON(ctx, r.client, endpoint, nil, &listing); err != nil {
		return nil, err
	}

	records := make([]domain.NormalizedRecord, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		records = append(records, domain.NormalizedRecord{
			Title:         post.Title,
			Content:       post.Selftext,
			URL:           r.baseURL + post.Permalink,
			Author:        post.Author,
			CreatedAt:     time.Unix(int64(post.CreatedUTC), 0).UTC(),
			Score:         post.Score,
			CommentsCount: post.NumComments,
		})
	}

	return records, nil
}
