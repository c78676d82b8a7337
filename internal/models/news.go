package models

import (
	"strings"
	"time"
)

// FeedSource is one configured news source. The URL is its identity; the
// label is what items and credibility ratings are attributed to.
type FeedSource struct {
	URL   string `toml:"url"`
	Label string `toml:"label"`
}

// NewsItem is one parsed news entry. Immutable once produced by a parser.
type NewsItem struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Link        string     `json:"link"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Source      string     `json:"source"`
}

// NormalizedText returns the lower-cased title and description joined for
// keyword matching.
func (n NewsItem) NormalizedText() string {
	return strings.ToLower(strings.TrimSpace(n.Title + " " + n.Description))
}

// FeedHealth is the last observed health of a feed source. Overwritten on
// every probe or fetch outcome.
type FeedHealth struct {
	OK           bool          `json:"ok"`
	StatusCode   int           `json:"status_code"`
	ContentType  string        `json:"content_type"`
	SampleBytes  int           `json:"sample_bytes"`
	LooksLikeXML bool          `json:"looks_like_xml"`
	Latency      time.Duration `json:"latency"`
	LastChecked  time.Time     `json:"last_checked"`
	LastError    string        `json:"last_error,omitempty"`
}

// CachedResult holds parsed items for one source URL along with the capture
// time. Items are immutable once cached.
type CachedResult struct {
	Items     []NewsItem
	FetchedAt time.Time
}

// IsExpired reports whether the cached result is older than ttl.
func (c CachedResult) IsExpired(ttl time.Duration) bool {
	return time.Since(c.FetchedAt) > ttl
}

// NewsDocument is the persisted form of a news item, carrying the dedup
// content hash, optional embedding vector and topic tags.
type NewsDocument struct {
	ID          string     `badgerhold:"key"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Link        string     `json:"link"`
	Source      string     `json:"source"`
	ContentHash string     `badgerholdIndex:"ContentHash" json:"content_hash"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Embedding   []float32  `json:"embedding,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
