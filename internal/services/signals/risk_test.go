package signals

import (
	"testing"
	"time"

	"github.com/marketsentry/marketsentry/internal/models"
)

func TestAssessRiskLevels(t *testing.T) {
	tests := []struct {
		name      string
		sentiment models.SymbolSentiment
		cred      float64
		volatile  bool
		wantLevel models.RiskLevel
	}{
		{
			name:      "high confidence one-sided news is low risk",
			sentiment: models.SymbolSentiment{Confidence: 0.9, Bullish: 10, Bearish: 0},
			cred:      1.2,
			wantLevel: models.RiskLow,
		},
		{
			name:      "balanced news adds conflict risk",
			sentiment: models.SymbolSentiment{Confidence: 0.75, Bullish: 8, Bearish: 2},
			cred:      1.0,
			wantLevel: models.RiskMedium,
		},
		{
			name:      "low confidence distrusted volatile is extreme",
			sentiment: models.SymbolSentiment{Confidence: 0.2, Bullish: 3, Bearish: 3},
			cred:      0.7,
			volatile:  true,
			wantLevel: models.RiskExtreme,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risk := assessRisk(tt.sentiment, tt.cred, tt.volatile, 1.0)
			if risk.Level != tt.wantLevel {
				t.Errorf("level = %s (total %f), want %s", risk.Level, risk.Total, tt.wantLevel)
			}
		})
	}
}

func TestAssessRiskPositionAndStopLoss(t *testing.T) {
	risk := assessRisk(models.SymbolSentiment{Confidence: 0.8, Bullish: 10, Bearish: 0}, 1.0, false, 1.0)

	// base = 0.2, no conflict, no reliability penalty
	if risk.Total < 0.19 || risk.Total > 0.21 {
		t.Fatalf("expected total risk ~0.2, got %f", risk.Total)
	}
	if risk.MaxPositionSize < 0.79 || risk.MaxPositionSize > 0.81 {
		t.Errorf("expected position ~0.8, got %f", risk.MaxPositionSize)
	}
	if risk.StopLossAdjustment < 1.19 || risk.StopLossAdjustment > 1.21 {
		t.Errorf("expected stop loss ~1.2, got %f", risk.StopLossAdjustment)
	}
}

func TestAssessRiskClampsToOne(t *testing.T) {
	risk := assessRisk(models.SymbolSentiment{Confidence: 0, Bullish: 5, Bearish: 5}, 0.5, true, 1.0)
	if risk.Total != 1.0 {
		t.Errorf("expected total clamped to 1, got %f", risk.Total)
	}
	if risk.MaxPositionSize != 0 {
		t.Errorf("expected zero position at max risk, got %f", risk.MaxPositionSize)
	}
}

func TestExecutionWindowLadder(t *testing.T) {
	tests := []struct {
		confidence float64
		window     time.Duration
		urgency    models.Urgency
	}{
		{0.95, 5 * time.Minute, models.UrgencyImmediate},
		{0.9, 5 * time.Minute, models.UrgencyImmediate},
		{0.8, 15 * time.Minute, models.UrgencyHigh},
		{0.65, time.Hour, models.UrgencyMedium},
		{0.5, 4 * time.Hour, models.UrgencyLow},
	}
	for _, tt := range tests {
		if got := executionWindow(tt.confidence); got != tt.window {
			t.Errorf("executionWindow(%v) = %v, want %v", tt.confidence, got, tt.window)
		}
		if got := urgency(tt.confidence); got != tt.urgency {
			t.Errorf("urgency(%v) = %s, want %s", tt.confidence, got, tt.urgency)
		}
	}
}
