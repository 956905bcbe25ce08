package usecase

import (
	"fmt"

	"DiscussionScanner/internal/config"
	"DiscussionScanner/internal/search"
)

// Plan expands a run configuration into the ordered list of work units
// the orchestrator will execute, plus the progress denominator. The
// count is computed from the config alone, no network I/O, and equals
// exactly the number of progress increments the orchestrator performs.
// The returned total is at least 1 so progress division is always safe.
//
// Unit order is fixed: Reddit (per subreddit, per category), GitHub,
// Stack Overflow, Hacker News, and ArXiv (one unit per category each).
// Accumulation order therefore encodes source and category priority,
// which the stable finalizer sort later preserves.
func Plan(cfg config.ScanConfig) ([]search.Unit, int) {
	selected := cfg.Selection().Categories()

	var units []search.Unit

	if cfg.Sources.Reddit.Enabled {
		for _, subreddit := range cfg.Sources.Reddit.Subreddits {
			for _, cat := range selected {
				units = append(units, search.Unit{
					Source:    search.SourceReddit,
					Platform:  fmt.Sprintf("Reddit r/%s", subreddit),
					Container: subreddit,
					Category:  cat.ID,
					Keywords:  cat.Keywords,
				})
			}
		}
	}

	if cfg.Sources.GitHub.Enabled {
		for _, cat := range selected {
			units = append(units, search.Unit{
				Source:   search.SourceGitHub,
				Platform: "GitHub",
				Category: cat.ID,
				Keywords: cat.Keywords,
				Options:  map[string]string{"token": cfg.Sources.GitHub.Token},
			})
		}
	}

	if cfg.Sources.StackOverflow.Enabled {
		for _, cat := range selected {
			units = append(units, search.Unit{
				Source:   search.SourceStackOverflow,
				Platform: "Stack Overflow",
				Category: cat.ID,
				Keywords: cat.Keywords,
			})
		}
	}

	if cfg.Sources.HackerNews.Enabled {
		for _, cat := range selected {
			units = append(units, search.Unit{
				Source:   search.SourceHackerNews,
				Platform: "Hacker News",
				Category: cat.ID,
				Keywords: cat.Keywords,
			})
		}
	}

	if cfg.Sources.Arxiv.Enabled {
		for _, cat := range selected {
			units = append(units, search.Unit{
				Source:   search.SourceArxiv,
				Platform: "ArXiv",
				Category: cat.ID,
				Keywords: cat.Keywords,
			})
		}
	}

	total := len(units)
	if total < 1 {
		total = 1
	}

	return units, total
}
