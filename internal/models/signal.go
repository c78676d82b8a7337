package models

import "time"

// Direction is the recommended trade direction.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// RiskLevel buckets total risk into discrete bands.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskExtreme RiskLevel = "extreme"
)

// Urgency reflects how quickly a signal should be acted on.
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyImmediate Urgency = "immediate"
)

// TradingSignal is a directional, risk-annotated recommendation derived from
// recent news for one symbol.
type TradingSignal struct {
	ID                 string        `json:"id"`
	Symbol             string        `json:"symbol"`
	Direction          Direction     `json:"direction"`
	Strength           float64       `json:"strength"`
	Confidence         float64       `json:"confidence"`
	PredictedImpact    float64       `json:"predicted_impact"`
	RiskLevel          RiskLevel     `json:"risk_level"`
	MaxPositionSize    float64       `json:"max_position_size"`
	StopLossAdjustment float64       `json:"stop_loss_adjustment"`
	ExecutionWindow    time.Duration `json:"execution_window"`
	Urgency            Urgency       `json:"urgency"`
	GeneratedAt        time.Time     `json:"generated_at"`
	Sources            []string      `json:"sources"`
	NewsCount          int           `json:"news_count"`
}

// SignalPerformance accumulates realized outcomes for one symbol. Created
// lazily on the first recorded outcome; never deleted.
type SignalPerformance struct {
	Symbol            string        `json:"symbol"`
	Count             int           `json:"count"`
	Accurate          int           `json:"accurate"`
	TotalImpact       float64       `json:"total_impact"`
	TotalTimeToImpact time.Duration `json:"total_time_to_impact"`
}

// PerformanceMetrics are derived on read from the running totals.
type PerformanceMetrics struct {
	AccuracyRate        float64       `json:"accuracy_rate"`
	AveragePriceImpact  float64       `json:"average_price_impact"`
	AverageTimeToImpact time.Duration `json:"average_time_to_impact"`
	ProfitabilityScore  float64       `json:"profitability_score"`
}

// NewsEvent is one ring-buffer entry used for burst-rate queries.
type NewsEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Symbol    string    `json:"symbol,omitempty"`
	Category  string    `json:"category"`
}
