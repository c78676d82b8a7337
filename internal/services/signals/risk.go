package signals

import (
	"math"
	"time"

	"github.com/marketsentry/marketsentry/internal/models"
)

// volatileSymbolPenalty is the flat risk added for symbols flagged volatile.
const volatileSymbolPenalty = 0.1

// riskAssessment carries the risk-derived attributes for one signal.
type riskAssessment struct {
	Total              float64
	Level              models.RiskLevel
	MaxPositionSize    float64
	StopLossAdjustment float64
}

// assessRisk combines base risk (1 - confidence), conflict risk from the
// bull/bear balance, source-reliability risk from average credibility, and a
// flat volatile-symbol penalty. Total risk clamps to [0,1] and maps to a
// discrete level, an inverse-linear position size and a direct stop-loss
// widening.
func assessRisk(sentiment models.SymbolSentiment, avgCredibility float64, volatile bool, maxPosition float64) riskAssessment {
	base := 1 - sentiment.Confidence

	// More balanced bull/bear news means a noisier read.
	conflict := 0.0
	if total := sentiment.Bullish + sentiment.Bearish; total > 0 {
		balance := 1 - math.Abs(sentiment.Bullish-sentiment.Bearish)/total
		conflict = balance * 0.2
	}

	reliability := 0.0
	if avgCredibility < 1.0 {
		reliability = (1.0 - avgCredibility) * 0.3
	}

	total := base + conflict + reliability
	if volatile {
		total += volatileSymbolPenalty
	}
	total = clamp01(total)

	if maxPosition <= 0 {
		maxPosition = 1.0
	}

	return riskAssessment{
		Total:              total,
		Level:              riskLevel(total),
		MaxPositionSize:    maxPosition * (1 - total),
		StopLossAdjustment: 1 + total,
	}
}

func riskLevel(total float64) models.RiskLevel {
	switch {
	case total < 0.25:
		return models.RiskLow
	case total < 0.5:
		return models.RiskMedium
	case total < 0.75:
		return models.RiskHigh
	default:
		return models.RiskExtreme
	}
}

// executionWindow maps confidence to a window: higher confidence means a
// tighter window.
func executionWindow(confidence float64) time.Duration {
	switch {
	case confidence >= 0.9:
		return 5 * time.Minute
	case confidence >= 0.75:
		return 15 * time.Minute
	case confidence >= 0.6:
		return time.Hour
	default:
		return 4 * time.Hour
	}
}

// urgency maps confidence to an urgency rung on the same ladder.
func urgency(confidence float64) models.Urgency {
	switch {
	case confidence >= 0.9:
		return models.UrgencyImmediate
	case confidence >= 0.75:
		return models.UrgencyHigh
	case confidence >= 0.6:
		return models.UrgencyMedium
	default:
		return models.UrgencyLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
