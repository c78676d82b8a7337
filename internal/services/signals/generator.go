package signals

import (
	"math"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/common"
	"github.com/marketsentry/marketsentry/internal/models"
	"github.com/marketsentry/marketsentry/internal/services/rating"
)

const (
	directionCut           = 0.6
	sectorSpillover        = 1.05
	highConfidenceFloor    = 0.8
	defaultVolatilityMult  = 1.0
	credibilityMultFloor   = 0.7
	credibilityMultCeiling = 1.3
)

// Outcome distinguishes suppression outcomes from emitted signals. These are
// not errors.
type Outcome string

const (
	OutcomeEmitted            Outcome = "emitted"
	OutcomeNoNews             Outcome = "no_news"
	OutcomeThresholdNotMet    Outcome = "threshold_not_met"
	OutcomeHalted             Outcome = "halted"
	OutcomeTooManyActive      Outcome = "too_many_active"
	OutcomeGenerationDisabled Outcome = "disabled"
)

// Generator assesses per-symbol sentiment batches and emits risk-annotated
// trading signals. Active signals are retained for 24 hours for the
// concurrency cap and feedback lookups.
type Generator struct {
	cfg     common.SignalsConfig
	ratings *rating.Book
	halt    *HaltSwitch
	logger  arbor.ILogger

	mu     sync.RWMutex
	active map[string]*models.TradingSignal
}

// NewGenerator creates a signal generator.
func NewGenerator(cfg common.SignalsConfig, ratings *rating.Book, halt *HaltSwitch, logger arbor.ILogger) *Generator {
	return &Generator{
		cfg:     cfg,
		ratings: ratings,
		halt:    halt,
		logger:  logger,
		active:  make(map[string]*models.TradingSignal),
	}
}

// MarketContext carries optional market-level inputs. A zero value applies
// the defaults.
type MarketContext struct {
	VolatilityMultiplier float64
}

// Generate runs the per-symbol pipeline for one sentiment batch:
// no-news check, impact assessment, threshold gating, then emission or
// suppression. Suppression is a normal outcome, never an error.
func (g *Generator) Generate(sym common.SymbolConfig, sentiment models.SymbolSentiment, market MarketContext) (*models.TradingSignal, Outcome) {
	if !g.cfg.Enabled {
		return nil, OutcomeGenerationDisabled
	}
	if g.halt.Active() {
		return nil, OutcomeHalted
	}
	if g.ActiveHighConfidence() >= g.cfg.MaxActiveHighConfidence {
		g.logger.Warn().
			Int("limit", g.cfg.MaxActiveHighConfidence).
			Msg("Too many active high-confidence signals, suppressing generation")
		return nil, OutcomeTooManyActive
	}
	if sentiment.Volume == 0 {
		return nil, OutcomeNoNews
	}

	volatilityMult := market.VolatilityMultiplier
	if volatilityMult <= 0 {
		volatilityMult = defaultVolatilityMult
	}

	avgCredibility := clampFloat(g.ratings.Average(sentiment.Sources), credibilityMultFloor, credibilityMultCeiling)

	impact := g.predictImpact(sentiment, avgCredibility, volatilityMult)

	if sentiment.Confidence < g.cfg.ConfidenceThreshold || impact < g.cfg.ImpactThreshold {
		g.logger.Debug().
			Str("symbol", sym.Symbol).
			Float64("confidence", sentiment.Confidence).
			Float64("impact", impact).
			Msg("Signal suppressed below thresholds")
		return nil, OutcomeThresholdNotMet
	}

	dir, strength := direction(sentiment.Score, volatilityMult)

	risk := assessRisk(sentiment, avgCredibility, sym.Volatile, g.cfg.MaxPositionSize)

	signal := &models.TradingSignal{
		ID:                 common.NewSignalID(),
		Symbol:             sym.Symbol,
		Direction:          dir,
		Strength:           strength,
		Confidence:         clamp01(sentiment.Confidence),
		PredictedImpact:    impact,
		RiskLevel:          risk.Level,
		MaxPositionSize:    risk.MaxPositionSize,
		StopLossAdjustment: risk.StopLossAdjustment,
		ExecutionWindow:    executionWindow(sentiment.Confidence),
		Urgency:            urgency(sentiment.Confidence),
		GeneratedAt:        time.Now(),
		Sources:            sentiment.Sources,
		NewsCount:          sentiment.Volume,
	}

	g.mu.Lock()
	g.active[signal.ID] = signal
	g.mu.Unlock()

	g.logger.Info().
		Str("signal_id", signal.ID).
		Str("symbol", signal.Symbol).
		Str("direction", string(signal.Direction)).
		Float64("confidence", signal.Confidence).
		Float64("impact", signal.PredictedImpact).
		Str("risk", string(signal.RiskLevel)).
		Msg("Trading signal emitted")

	return signal, OutcomeEmitted
}

// predictImpact combines base impact with the volume, credibility,
// volatility and sector-spillover multipliers.
func (g *Generator) predictImpact(sentiment models.SymbolSentiment, avgCredibility, volatilityMult float64) float64 {
	base := math.Abs(sentiment.Score) * 0.1

	// More corroborating items scale impact, capped at 2x.
	volumeMult := math.Min(2.0, 1.0+float64(sentiment.Volume)*0.1)

	return base * volumeMult * avgCredibility * volatilityMult * sectorSpillover
}

// direction maps score to BUY/SELL past the cut, HOLD with zero strength
// otherwise.
func direction(score, volatilityMult float64) (models.Direction, float64) {
	switch {
	case score > directionCut:
		return models.DirectionBuy, math.Min(1, math.Abs(score)*volatilityMult)
	case score < -directionCut:
		return models.DirectionSell, math.Min(1, math.Abs(score)*volatilityMult)
	default:
		return models.DirectionHold, 0
	}
}

// Lookup returns an active signal by ID.
func (g *Generator) Lookup(id string) (*models.TradingSignal, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	sig, ok := g.active[id]
	return sig, ok
}

// ActiveHighConfidence counts active signals at or above the
// high-confidence floor.
func (g *Generator) ActiveHighConfidence() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := 0
	for _, sig := range g.active {
		if sig.Confidence >= highConfidenceFloor {
			n++
		}
	}
	return n
}

// Prune drops active signals older than maxAge and returns the count
// removed. Wired to the scheduled sweep.
func (g *Generator) Prune(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for id, sig := range g.active {
		if sig.GeneratedAt.Before(cutoff) {
			delete(g.active, id)
			removed++
		}
	}
	return removed
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
