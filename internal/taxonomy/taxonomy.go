// Package taxonomy defines the fixed set of topic categories the scanner
// searches for, together with their default keyword lists and scoring
// weights. The enumeration is a process-wide constant: a run may narrow
// the keyword selection per category but never widen it.
package taxonomy

// CategoryID identifies one topic category.
type CategoryID string

const (
	Connectivity CategoryID = "agent_connectivity"
	Discovery    CategoryID = "agent_discovery"
	Identity     CategoryID = "agent_identity"
)

// Category holds one topic with its weight and an ordered keyword list.
type Category struct {
	ID       CategoryID
	Weight   float64
	Keywords []string
}

var categories = []Category{
	{
		ID:     Connectivity,
		Weight: 2.0,
		Keywords: []string{
			"agent to agent", "A2A protocol", "MCP", "multi-agent communication",
			"agent messaging", "inter-agent", "agent network", "agent coordination",
			"agent orchestration", "agent workflow", "agent collaboration", "cross-agent",
			"agent bridge", "agent proxy", "agent middleware", "agent bus",
		},
	},
	{
		ID:     Discovery,
		Weight: 1.8,
		Keywords: []string{
			"agent registry", "agent discovery", "fleet management", "agent marketplace",
			"agent directory", "service discovery", "agent catalog", "agent inventory",
			"agent lookup", "agent routing", "agent broker", "agent mesh",
			"dynamic agent discovery", "agent topology", "agent federation",
		},
	},
	{
		ID:     Identity,
		Weight: 1.5,
		Keywords: []string{
			"agent identity", "agent authentication", "zero trust agents", "agent authorization",
			"agent credentials", "agent security", "agent access control", "agent PKI",
			"agent certificates", "agent tokens", "agent permissions", "agent roles",
			"agent delegation", "agent trust", "agent verification", "agent compliance",
		},
	},
}

// Categories returns the fixed category enumeration in scoring order.
// Callers receive copies and cannot mutate the taxonomy.
func Categories() []Category {
	out := make([]Category, len(categories))
	for i, cat := range categories {
		out[i] = cat
		out[i].Keywords = append([]string(nil), cat.Keywords...)
	}
	return out
}

// ByID looks up one category.
func ByID(id CategoryID) (Category, bool) {
	for _, cat := range Categories() {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}

// Selection is the per-run view of the taxonomy: the enabled categories
// with their (possibly narrowed) keyword lists, in taxonomy order.
type Selection struct {
	categories []Category
}

// NewSelection narrows the taxonomy for one run. Disabled categories are
// dropped. A non-empty keyword list keeps only the default keywords it
// names, preserving taxonomy order; an empty list keeps all defaults.
// Keywords not present in the taxonomy are ignored, so a run can never
// widen a category.
func NewSelection(enabled map[CategoryID]bool, keywords map[CategoryID][]string) Selection {
	var sel Selection
	for _, cat := range Categories() {
		if !enabled[cat.ID] {
			continue
		}
		if chosen := keywords[cat.ID]; len(chosen) > 0 {
			allowed := make(map[string]bool, len(chosen))
			for _, kw := range chosen {
				allowed[kw] = true
			}
			narrowed := cat.Keywords[:0]
			for _, kw := range cat.Keywords {
				if allowed[kw] {
					narrowed = append(narrowed, kw)
				}
			}
			cat.Keywords = narrowed
		}
		if len(cat.Keywords) == 0 {
			continue
		}
		sel.categories = append(sel.categories, cat)
	}
	return sel
}

// Categories returns the selected categories in taxonomy order.
func (s Selection) Categories() []Category {
	return s.categories
}

// Empty reports whether no category has a usable keyword selection.
func (s Selection) Empty() bool {
	return len(s.categories) == 0
}
