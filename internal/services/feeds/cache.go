package feeds

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/models"
)

// ResultCache memoizes parsed items per source URL. Keys are lower-cased
// URLs; entries expire lazily on lookup, and Clear wipes the whole cache on
// a fixed schedule to force freshness even when TTLs haven't lapsed.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]models.CachedResult
	ttl     time.Duration
	logger  arbor.ILogger
}

// NewResultCache creates a cache with the given TTL.
func NewResultCache(ttl time.Duration, logger arbor.ILogger) *ResultCache {
	return &ResultCache{
		entries: make(map[string]models.CachedResult),
		ttl:     ttl,
		logger:  logger,
	}
}

// Get returns the cached items for a URL if present and unexpired. Expired
// entries are evicted on the way out.
func (c *ResultCache) Get(url string) ([]models.NewsItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key(url)]
	if !ok {
		return nil, false
	}
	if entry.IsExpired(c.ttl) {
		delete(c.entries, key(url))
		return nil, false
	}
	return entry.Items, true
}

// Put stores items for a URL with the current timestamp.
func (c *ResultCache) Put(url string, items []models.NewsItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(url)] = models.CachedResult{Items: items, FetchedAt: time.Now()}
}

// Clear wipes the whole cache.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]models.CachedResult)
	c.mu.Unlock()

	if n > 0 {
		c.logger.Debug().Int("entries", n).Msg("Cleared feed result cache")
	}
}

// Len returns the number of cached entries, expired or not.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
