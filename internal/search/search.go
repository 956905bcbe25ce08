// Package search defines the work unit shape shared by the task planner,
// the orchestrator, and the per-platform source adapters, plus the
// registry that maps source names to adapter implementations.
package search

import (
	"context"
	"fmt"

	"DiscussionScanner/internal/domain"
	"DiscussionScanner/internal/taxonomy"
)

// Source names as registered by the built-in adapters.
const (
	SourceReddit        = "reddit"
	SourceGitHub        = "github"
	SourceStackOverflow = "stackoverflow"
	SourceHackerNews    = "hackernews"
	SourceArxiv         = "arxiv"
)

// Unit is one atomic progress step of a scan: one source, one category
// with its selected keywords, and (for sources that support it) a
// container to search within, e.g. a subreddit.
type Unit struct {
	Source    string
	Platform  string // label carried into accepted Discussions
	Container string
	Category  taxonomy.CategoryID
	Keywords  []string
	Options   map[string]string // source-specific params, e.g. auth token
}

// TaskLabel renders the human-readable description shown to pollers
// while the unit executes.
func (u Unit) TaskLabel() string {
	return fmt.Sprintf("Scanning %s (%s)", u.Platform, u.Category)
}

// Adapter translates one work unit into normalized records from a single
// content platform. Implementations must never panic past this boundary;
// any internal failure (network, parse, rate limit) is returned as an
// error, which the orchestrator treats as an empty result set.
type Adapter interface {
	Name() string
	Search(ctx context.Context, unit Unit, limit int) ([]domain.NormalizedRecord, error)
}

// Registry keeps a mapping from source names to their adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[string]Adapter{}}
}

// Register adds or replaces an adapter implementation.
func (r *Registry) Register(adapter Adapter) {
	if r.adapters == nil {
		r.adapters = map[string]Adapter{}
	}
	r.adapters[adapter.Name()] = adapter
}

// Resolve returns an adapter by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Adapter, error) {
	if adapter, ok := r.adapters[name]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("source %s is not registered", name)
}
