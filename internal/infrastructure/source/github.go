package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"DiscussionScanner/internal/domain"
	"DiscussionScanner/internal/search"
)

const (
	githubBaseURL      = "https://api.github.com"
	githubAccept       = "application/vnd.github.v3+json"
	githubQueryBudget  = 6
	githubRepoLangs    = "language:python OR language:typescript OR language:rust"
	platformGitHubIss  = "GitHub Issues"
	platformGitHubRepo = "GitHub Repos"
)

// GitHub searches issues and repositories with one OR-joined query per
// work unit. An optional token from the unit options raises the rate
// limit; without it the public quota applies.
type GitHub struct {
	client  *http.Client
	baseURL string
	pause   time.Duration
	logger  *slog.Logger
}

var _ search.Adapter = (*GitHub)(nil)

// NewGitHub wires an HTTP client; nil gets a default with a timeout.
func NewGitHub(client *http.Client, logger *slog.Logger) *GitHub {
	return &GitHub{
		client:  newHTTPClient(client),
		baseURL: githubBaseURL,
		pause:   defaultPause,
		logger:  logger,
	}
}

// Name identifies the adapter inside the registry.
func (g *GitHub) Name() string {
	return search.SourceGitHub
}

// Search queries issues with the full cap and repositories with half of
// it, tagging records with their sub-source platform label.
func (g *GitHub) Search(ctx context.Context, unit search.Unit, limit int) ([]domain.NormalizedRecord, error) {
	query := strings.Join(firstN(unit.Keywords, githubQueryBudget), " OR ")
	token := unit.Options["token"]

	issues, err := g.searchIssues(ctx, query, limit, token)
	if err != nil {
		return nil, fmt.Errorf("issues: %w", err)
	}

	if err := wait(ctx, g.pause); err != nil {
		return nil, err
	}

	repos, err := g.searchRepositories(ctx, query, limit/2, token)
	if err != nil {
		return nil, fmt.Errorf("repositories: %w", err)
	}

	return append(issues, repos...), nil
}

func (g *GitHub) header(token string) http.Header {
	header := http.Header{}
	header.Set("Accept", githubAccept)
	if token != "" {
		header.Set("Authorization", "token "+token)
	}
	return header
}

type githubIssueSearch struct {
	Items []struct {
		Title     string `json:"title"`
		Body      string `json:"body"`
		HTMLURL   string `json:"html_url"`
		CreatedAt string `json:"created_at"`
		Comments  int    `json:"comments"`
		User      struct {
			Login string `json:"login"`
		} `json:"user"`
		Reactions struct {
			TotalCount int `json:"total_count"`
		} `json:"reactions"`
	} `json:"items"`
}

func (g *GitHub) searchIssues(ctx context.Context, query string, limit int, token string) ([]domain.NormalizedRecord, error) {
	params := url.Values{}
	params.Set("q", query+" type:issue")
	params.Set("sort", "updated")
	params.Set("order", "desc")
	params.Set("per_page", strconv.Itoa(capLimit(limit, 100)))

	var result githubIssueSearch
	endpoint := g.baseURL + "/search/issues?" + params.Encode()
	if err := getJSON(ctx, g.client, endpoint, g.header(token), &result); err != nil {
		return nil, err
	}

	records := make([]domain.NormalizedRecord, 0, len(result.Items))
	for _, item := range result.Items {
		records = append(records, domain.NormalizedRecord{
			Title:         item.Title,
			Content:       item.Body,
			URL:           item.HTMLURL,
			Platform:      platformGitHubIss,
			Author:        item.User.Login,
			CreatedAt:     parseRFC3339(item.CreatedAt),
			Score:         item.Reactions.TotalCount,
			CommentsCount: item.Comments,
		})
	}

	return records, nil
}

type githubRepoSearch struct {
	Items []struct {
		Name            string `json:"name"`
		Description     string `json:"description"`
		HTMLURL         string `json:"html_url"`
		UpdatedAt       string `json:"updated_at"`
		StargazersCount int    `json:"stargazers_count"`
		OpenIssuesCount int    `json:"open_issues_count"`
		Owner           struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"items"`
}

func (g *GitHub) searchRepositories(ctx context.Context, query string, limit int, token string) ([]domain.NormalizedRecord, error) {
	params := url.Values{}
	params.Set("q", query+" "+githubRepoLangs)
	params.Set("sort", "updated")
	params.Set("order", "desc")
	params.Set("per_page", strconv.Itoa(capLimit(limit, 100)))

	var result githubRepoSearch
	endpoint := g.baseURL + "/search/repositories?" + params.Encode()
	if err := getJSON(ctx, g.client, endpoint, g.header(token), &result); err != nil {
		return nil, err
	}

	records := make([]domain.NormalizedRecord, 0, len(result.Items))
	for _, item := range result.Items {
		records = append(records, domain.NormalizedRecord{
			Title:         "Repository: " + item.Name,
			Content:       item.Description,
			URL:           item.HTMLURL,
			Platform:      platformGitHubRepo,
			Author:        item.Owner.Login,
			CreatedAt:     parseRFC3339(item.UpdatedAt),
			Score:         item.StargazersCount,
			CommentsCount: item.OpenIssuesCount,
		})
	}

	return records, nil
}

func parseRFC3339(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
