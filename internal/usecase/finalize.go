package usecase

import (
	"sort"

	"DiscussionScanner/internal/domain"
)

// Finalize collapses accumulated discussions into the ranked result set.
// The first discussion seen for a URL wins regardless of which source or
// score a later duplicate carries, then the survivors are sorted by
// relevance descending. The sort is stable on purpose: ties keep their
// accumulation order, which reflects source and category priority.
// Running Finalize on its own output is a no-op.
func Finalize(discussions []domain.Discussion) []domain.Discussion {
	seen := make(map[string]struct{}, len(discussions))
	unique := make([]domain.Discussion, 0, len(discussions))

	for _, d := range discussions {
		if _, ok := seen[d.URL]; ok {
			continue
		}
		seen[d.URL] = struct{}{}
		unique = append(unique, d)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].RelevanceScore > unique[j].RelevanceScore
	})

	return unique
}
