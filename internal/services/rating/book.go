// Package rating maintains per-source credibility multipliers. Ratings are
// nudged by the performance feedback loop and read as weights by the
// sentiment aggregator and risk scorer.
package rating

import (
	"sync"
)

const (
	// DefaultRating is the multiplier assigned to a source never rated.
	DefaultRating = 1.0
	// MinRating and MaxRating bound the clamp band; ratings never leave it
	// regardless of update count.
	MinRating = 0.5
	MaxRating = 1.5
	// Step is the fixed nudge applied per recorded outcome.
	Step = 0.05
)

// Book holds the per-source-label credibility ratings.
type Book struct {
	mu      sync.RWMutex
	ratings map[string]float64
}

// NewBook creates an empty credibility book.
func NewBook() *Book {
	return &Book{ratings: make(map[string]float64)}
}

// Get returns the rating for a source label, defaulting to 1.0.
func (b *Book) Get(source string) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if r, ok := b.ratings[source]; ok {
		return r
	}
	return DefaultRating
}

// Nudge moves a source's rating one step up or down, clamped to the band.
func (b *Book) Nudge(source string, up bool) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.ratings[source]
	if !ok {
		r = DefaultRating
	}
	if up {
		r += Step
	} else {
		r -= Step
	}
	r = clamp(r, MinRating, MaxRating)
	b.ratings[source] = r
	return r
}

// Average returns the mean rating across the given source labels, or the
// default when the list is empty.
func (b *Book) Average(sources []string) float64 {
	if len(sources) == 0 {
		return DefaultRating
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	sum := 0.0
	for _, s := range sources {
		if r, ok := b.ratings[s]; ok {
			sum += r
		} else {
			sum += DefaultRating
		}
	}
	return sum / float64(len(sources))
}

// Snapshot returns a copy of all ratings.
func (b *Book) Snapshot() map[string]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]float64, len(b.ratings))
	for k, v := range b.ratings {
		out[k] = v
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
