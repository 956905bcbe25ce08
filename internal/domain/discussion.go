package domain

import "time"

// ContentLimit caps the stored body of a Discussion.
const ContentLimit = 500

// NormalizedRecord is the uniform shape every source adapter produces.
// It is transient: records live only long enough to be scored.
type NormalizedRecord struct {
	Title         string
	Content       string
	URL           string
	Platform      string // optional adapter hint, e.g. "GitHub Issues"
	Author        string
	CreatedAt     time.Time
	Score         int
	CommentsCount int
}

// Discussion is a scored record that cleared the relevance threshold.
// URL is the dedup key: a finalized result set holds at most one
// Discussion per URL. Immutable once created.
type Discussion struct {
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	URL             string    `json:"url"`
	Platform        string    `json:"platform"`
	Author          string    `json:"author"`
	CreatedAt       time.Time `json:"created_at"`
	Score           int       `json:"score"`
	CommentsCount   int       `json:"comments_count"`
	RelevanceScore  float64   `json:"relevance_score"`
	KeywordsMatched []string  `json:"keywords_matched"`
}

// Run is the persisted summary of one completed scan.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	TotalResults int
	OutputFile   string
}

// TruncateContent trims a body to ContentLimit characters (runes, so
// multi-byte text is never cut mid-character).
func TruncateContent(s string) string {
	runes := []rune(s)
	if len(runes) <= ContentLimit {
		return s
	}
	return string(runes[:ContentLimit])
}
