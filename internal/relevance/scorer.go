// Package relevance implements the pure scoring function that rates a
// record against the topic taxonomy.
package relevance

import (
	"strings"

	"DiscussionScanner/internal/taxonomy"
)

const (
	techBonus    = 0.5
	problemBonus = 0.3
)

// Indicator terms are checked independently of keyword matches and
// contribute at most once each, however often they occur.
var (
	techIndicators    = []string{"implementation", "protocol", "api", "framework", "architecture"}
	problemIndicators = []string{"problem", "challenge", "issue", "difficulty", "pain point"}
)

// Scorer rates text against one run's taxonomy selection. Scoring is
// deterministic: identical input and selection always produce identical
// output, and the selection's fixed enumeration order decides the order
// of matched keywords.
type Scorer struct {
	selection taxonomy.Selection
}

// NewScorer binds a scorer to a run's selection.
func NewScorer(selection taxonomy.Selection) Scorer {
	return Scorer{selection: selection}
}

// Score case-folds title and body together, adds the category weight for
// every selected keyword found as a substring, then applies the fixed
// technical and problem indicator bonuses. The returned keyword list is
// ordered by the taxonomy enumeration and may repeat a term that appears
// under more than one category.
func (s Scorer) Score(text, title string) (float64, []string) {
	haystack := strings.ToLower(text + " " + title)

	var (
		score   float64
		matched []string
	)

	for _, cat := range s.selection.Categories() {
		for _, keyword := range cat.Keywords {
			if strings.Contains(haystack, strings.ToLower(keyword)) {
				matched = append(matched, keyword)
				score += cat.Weight
			}
		}
	}

	for _, term := range techIndicators {
		if strings.Contains(haystack, term) {
			score += techBonus
		}
	}

	for _, term := range problemIndicators {
		if strings.Contains(haystack, term) {
			score += problemBonus
		}
	}

	return score, matched
}
