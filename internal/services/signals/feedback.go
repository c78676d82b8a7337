package signals

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/models"
	"github.com/marketsentry/marketsentry/internal/services/rating"
)

// holdAccuracyBand: a HOLD signal counts accurate when the realized move
// stays inside this band.
const holdAccuracyBand = 0.005

// Feedback records realized outcomes per signal, updates per-source
// credibility ratings and derives aggregate metrics on read.
type Feedback struct {
	generator *Generator
	ratings   *rating.Book
	logger    arbor.ILogger

	mu      sync.RWMutex
	perf    map[string]*models.SignalPerformance
	history []outcomeRecord
}

type outcomeRecord struct {
	signalID     string
	recordedAt   time.Time
	accurate     bool
	priceChange  float64
	timeToImpact time.Duration
}

// NewFeedback creates the performance feedback loop.
func NewFeedback(generator *Generator, ratings *rating.Book, logger arbor.ILogger) *Feedback {
	return &Feedback{
		generator: generator,
		ratings:   ratings,
		logger:    logger,
		perf:      make(map[string]*models.SignalPerformance),
	}
}

// RecordOutcome looks up the signal, computes directional accuracy from the
// sign of the realized change, updates the symbol's running totals and
// nudges every contributing source's credibility rating.
func (f *Feedback) RecordOutcome(signalID string, actualPriceChange float64, timeToImpact time.Duration) error {
	sig, ok := f.generator.Lookup(signalID)
	if !ok {
		return fmt.Errorf("signal not found: %s", signalID)
	}

	accurate := directionMatches(sig.Direction, actualPriceChange)

	f.mu.Lock()
	perf, ok := f.perf[sig.Symbol]
	if !ok {
		perf = &models.SignalPerformance{Symbol: sig.Symbol}
		f.perf[sig.Symbol] = perf
	}
	perf.Count++
	if accurate {
		perf.Accurate++
	}
	perf.TotalImpact += math.Abs(actualPriceChange)
	perf.TotalTimeToImpact += timeToImpact

	f.history = append(f.history, outcomeRecord{
		signalID:     signalID,
		recordedAt:   time.Now(),
		accurate:     accurate,
		priceChange:  actualPriceChange,
		timeToImpact: timeToImpact,
	})
	f.mu.Unlock()

	for _, source := range sig.Sources {
		f.ratings.Nudge(source, accurate)
	}

	f.logger.Info().
		Str("signal_id", signalID).
		Str("symbol", sig.Symbol).
		Bool("accurate", accurate).
		Float64("price_change", actualPriceChange).
		Msg("Recorded signal outcome")

	return nil
}

func directionMatches(direction models.Direction, change float64) bool {
	switch direction {
	case models.DirectionBuy:
		return change > 0
	case models.DirectionSell:
		return change < 0
	default:
		return math.Abs(change) <= holdAccuracyBand
	}
}

// Performance returns the running totals for one symbol.
func (f *Feedback) Performance(symbol string) (models.SignalPerformance, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	perf, ok := f.perf[symbol]
	if !ok {
		return models.SignalPerformance{}, false
	}
	return *perf, true
}

// Metrics derives aggregate accuracy and profitability across all symbols.
// Derived on read, not stored.
func (f *Feedback) Metrics() models.PerformanceMetrics {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var count, accurate int
	var totalImpact float64
	var totalTime time.Duration

	for _, perf := range f.perf {
		count += perf.Count
		accurate += perf.Accurate
		totalImpact += perf.TotalImpact
		totalTime += perf.TotalTimeToImpact
	}

	if count == 0 {
		return models.PerformanceMetrics{}
	}

	metrics := models.PerformanceMetrics{
		AccuracyRate:        float64(accurate) / float64(count),
		AveragePriceImpact:  totalImpact / float64(count),
		AverageTimeToImpact: totalTime / time.Duration(count),
	}
	metrics.ProfitabilityScore = metrics.AccuracyRate * metrics.AveragePriceImpact
	return metrics
}

// Prune drops impact-history entries older than maxAge and asks the
// generator to expire stale signals. Returns entries removed.
func (f *Feedback) Prune(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	f.mu.Lock()
	kept := f.history[:0]
	removed := 0
	for _, rec := range f.history {
		if rec.recordedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	f.history = kept
	f.mu.Unlock()

	removed += f.generator.Prune(maxAge)
	if removed > 0 {
		f.logger.Debug().Int("removed", removed).Msg("Pruned stale signals and outcome history")
	}
	return removed
}
