package models

import "time"

// MarketSentimentSnapshot is one aggregated market-wide sentiment reading.
// Score and Confidence are integer percentages; 50 is neutral.
type MarketSentimentSnapshot struct {
	ID         string    `badgerhold:"key" json:"id"`
	AsOf       time.Time `json:"as_of"`
	Score      int       `json:"score"`
	Confidence int       `json:"confidence"`
}

// SymbolSentiment is the per-symbol weighted sentiment used by the signal
// generator. Score is in [-1,1], Confidence in [0,1]. Bullish/Bearish carry
// the weighted keyword tallies for attribution.
type SymbolSentiment struct {
	Symbol     string   `json:"symbol"`
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Bullish    float64  `json:"bullish"`
	Bearish    float64  `json:"bearish"`
	Volume     int      `json:"volume"`
	Sources    []string `json:"sources"`
}

// IngestResult summarizes one ingest cycle. A cycle always completes; only a
// snapshot persistence failure marks it failed.
type IngestResult struct {
	StartedAt         time.Time                `json:"started_at"`
	Duration          time.Duration            `json:"duration"`
	SourcesTried      int                      `json:"sources_tried"`
	SourcesSucceeded  int                      `json:"sources_succeeded"`
	SourcesSkipped    int                      `json:"sources_skipped"`
	ItemsFetched      int                      `json:"items_fetched"`
	ItemsStored       int                      `json:"items_stored"`
	DuplicatesSkipped int                      `json:"duplicates_skipped"`
	Snapshot          *MarketSentimentSnapshot `json:"snapshot,omitempty"`
	Failure           string                   `json:"failure,omitempty"`
}
