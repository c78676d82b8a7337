package events

import (
	"sync"
	"time"

	"github.com/marketsentry/marketsentry/internal/models"
)

// purgeHorizon bounds how far back burst queries ever look; entries older
// than the larger of the requested window and this horizon are dropped
// before counting.
const purgeHorizon = 2 * time.Hour

// Ring is a bounded, time-ordered log of ingestion events used for
// burst-rate queries. Append-only; the oldest entries are evicted first
// once capacity is exceeded.
type Ring struct {
	mu       sync.Mutex
	buf      []models.NewsEvent
	capacity int
}

// NewRing creates a ring buffer with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Ring{capacity: capacity}
}

// Record appends an event, trimming from the head once capacity is
// exceeded. Timestamps are monotonically non-decreasing: an entry stamped
// earlier than the newest one is clamped forward, keeping the buffer
// time-ordered for RecentBurstCount's early-exit scan.
func (r *Ring) Record(source, symbol, category string, timestamp time.Time) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.buf); n > 0 && timestamp.Before(r.buf[n-1].Timestamp) {
		timestamp = r.buf[n-1].Timestamp
	}

	r.buf = append(r.buf, models.NewsEvent{
		Timestamp: timestamp,
		Source:    source,
		Symbol:    symbol,
		Category:  category,
	})
	if len(r.buf) > r.capacity {
		r.buf = r.buf[len(r.buf)-r.capacity:]
	}
}

// Len returns the current entry count.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// RecentBurstCount counts events inside the trailing window. It first
// purges entries older than the larger of the window and the fixed horizon,
// then scans newest to oldest, stopping at the first entry outside the
// window: entries are time-ordered, so the early exit keeps the scan
// O(window size).
func (r *Ring) RecentBurstCount(window time.Duration) int {
	now := time.Now()

	purgeCutoff := now.Add(-purgeHorizon)
	if window > purgeHorizon {
		purgeCutoff = now.Add(-window)
	}
	countCutoff := now.Add(-window)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Purge from the head; the buffer is time-ordered.
	start := 0
	for start < len(r.buf) && r.buf[start].Timestamp.Before(purgeCutoff) {
		start++
	}
	if start > 0 {
		r.buf = r.buf[start:]
	}

	count := 0
	for i := len(r.buf) - 1; i >= 0; i-- {
		if r.buf[i].Timestamp.Before(countCutoff) {
			break
		}
		count++
	}
	return count
}
