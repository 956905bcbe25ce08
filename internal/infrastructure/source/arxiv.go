package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"DiscussionScanner/internal/domain"
	"DiscussionScanner/internal/search"
)

const (
	arxivBaseURL     = "https://arxiv.org"
	arxivQueryBudget = 2
	arxivPageSize    = "50"
)

var arxivDateExpr = regexp.MustCompile(`Submitted\s+(\d{1,2} [A-Za-z]+,? \d{4})`)

// Arxiv scrapes the arXiv HTML search results page. Academic search
// works better with a combined query, so the unit's top keywords are
// joined into a single term instead of searched one by one.
type Arxiv struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

var _ search.Adapter = (*Arxiv)(nil)

// NewArxiv wires an HTTP client; nil gets a default with a timeout.
func NewArxiv(client *http.Client, logger *slog.Logger) *Arxiv {
	return &Arxiv{
		client:  newHTTPClient(client),
		baseURL: arxivBaseURL,
		logger:  logger,
	}
}

// Name identifies the adapter inside the registry.
func (a *Arxiv) Name() string {
	return search.SourceArxiv
}

// Search fetches one result page for the combined academic query.
func (a *Arxiv) Search(ctx context.Context, unit search.Unit, limit int) ([]domain.NormalizedRecord, error) {
	query := strings.Join(firstN(unit.Keywords, arxivQueryBudget), " ")

	params := url.Values{}
	params.Set("query", query)
	params.Set("searchtype", "all")
	params.Set("size", arxivPageSize)
	params.Set("order", "-announced_date_first")

	doc, err := a.fetchDocument(ctx, a.baseURL+"/search/?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	var records []domain.NormalizedRecord
	doc.Find("li.arxiv-result").EachWithBreak(func(_ int, result *goquery.Selection) bool {
		records = append(records, parseResult(result))
		return len(records) < limit
	})

	return records, nil
}

func (a *Arxiv) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func parseResult(result *goquery.Selection) domain.NormalizedRecord {
	link := result.Find("p.list-title a").First()
	href, _ := link.Attr("href")
	if href != "" && !strings.HasPrefix(href, "http") {
		href = arxivBaseURL + href
	}

	title := strings.TrimSpace(result.Find("p.title").First().Text())

	abstract := result.Find("span.abstract-full").First().Text()
	abstract = strings.TrimSuffix(strings.TrimSpace(abstract), "△ Less")
	abstract = strings.TrimSpace(abstract)

	author := strings.TrimSpace(result.Find("p.authors a").First().Text())

	var submitted time.Time
	dateline := result.Find("p.is-size-7").First().Text()
	if match := arxivDateExpr.FindStringSubmatch(dateline); match != nil {
		raw := strings.ReplaceAll(match[1], ",", "")
		if parsed, err := time.Parse("2 January 2006", raw); err == nil {
			submitted = parsed.UTC()
		}
	}

	return domain.NormalizedRecord{
		Title:     title,
		Content:   abstract,
		URL:       href,
		Author:    author,
		CreatedAt: submitted,
	}
}
