package feeds

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/models"
)

const probeSampleSize = 4096

// HealthTracker records per-source probe results and gates sources that
// failed recently. Health state is advisory only: last-writer-wins races on
// the map are acceptable because staleness never affects emitted signals.
type HealthTracker struct {
	mu     sync.RWMutex
	health map[string]models.FeedHealth
	client *http.Client
	ttl    time.Duration
	logger arbor.ILogger
}

// NewHealthTracker creates a tracker whose unhealthy window is ttl.
func NewHealthTracker(ttl time.Duration, probeTimeout time.Duration, logger arbor.ILogger) *HealthTracker {
	return &HealthTracker{
		health: make(map[string]models.FeedHealth),
		client: &http.Client{Timeout: probeTimeout},
		ttl:    ttl,
		logger: logger,
	}
}

// Probe issues a short, range-limited GET and records the outcome. It never
// returns an error: probe failures become an ok=false health record with the
// error message attached.
func (t *HealthTracker) Probe(ctx context.Context, url string) models.FeedHealth {
	start := time.Now()

	health := models.FeedHealth{LastChecked: start}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		health.LastError = err.Error()
		t.record(url, health)
		return health
	}
	req.Header.Set("Range", "bytes=0-4095")

	resp, err := t.client.Do(req)
	if err != nil {
		health.LastError = err.Error()
		health.Latency = time.Since(start)
		t.record(url, health)
		return health
	}
	defer resp.Body.Close()

	sample, _ := io.ReadAll(io.LimitReader(resp.Body, probeSampleSize))

	health.StatusCode = resp.StatusCode
	health.ContentType = resp.Header.Get("Content-Type")
	health.SampleBytes = len(sample)
	health.LooksLikeXML = LooksLikeXML(string(sample))
	health.Latency = time.Since(start)

	acceptable := resp.StatusCode >= 200 && resp.StatusCode < 300
	htmlOK := strings.Contains(health.ContentType, "html") || strings.Contains(health.ContentType, "xml") ||
		strings.Contains(health.ContentType, "rss") || strings.Contains(health.ContentType, "atom")
	health.OK = acceptable && (health.LooksLikeXML || htmlOK)
	if !health.OK && health.LastError == "" {
		health.LastError = "unacceptable response: status " + resp.Status + " content-type " + health.ContentType
	}

	t.record(url, health)

	t.logger.Debug().
		Str("url", url).
		Bool("ok", health.OK).
		Int("status", health.StatusCode).
		Dur("latency", health.Latency).
		Msg("Probed feed source")

	return health
}

// IsRecentlyUnhealthy reports whether the source's last recorded health is
// not ok and still within the unhealthy TTL window. This is the sole gating
// mechanism; there is no backoff beyond the fixed window.
func (t *HealthTracker) IsRecentlyUnhealthy(url string) bool {
	t.mu.RLock()
	health, ok := t.health[key(url)]
	t.mu.RUnlock()

	if !ok || health.OK {
		return false
	}
	return time.Since(health.LastChecked) < t.ttl
}

// MarkHealthy records a successful real fetch, keeping health state fresh
// between scheduled probes.
func (t *HealthTracker) MarkHealthy(url string, status int, contentType string, latency time.Duration) {
	t.record(url, models.FeedHealth{
		OK:          true,
		StatusCode:  status,
		ContentType: contentType,
		Latency:     latency,
		LastChecked: time.Now(),
	})
}

// MarkUnhealthy records a failed real fetch.
func (t *HealthTracker) MarkUnhealthy(url string, err error) {
	health := models.FeedHealth{LastChecked: time.Now()}
	if err != nil {
		health.LastError = err.Error()
	}
	t.record(url, health)
}

// Health returns the last recorded health for a source.
func (t *HealthTracker) Health(url string) (models.FeedHealth, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.health[key(url)]
	return h, ok
}

func (t *HealthTracker) record(url string, health models.FeedHealth) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// LastChecked is monotonically non-decreasing per source.
	if prev, ok := t.health[key(url)]; ok && health.LastChecked.Before(prev.LastChecked) {
		health.LastChecked = prev.LastChecked
	}
	t.health[key(url)] = health
}

func key(url string) string {
	return strings.ToLower(strings.TrimSpace(url))
}
