package sentiment

import (
	"math"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/common"
	"github.com/marketsentry/marketsentry/internal/models"
	"github.com/marketsentry/marketsentry/internal/services/rating"
)

// Aggregator derives market and per-symbol sentiment from keyword tallies.
type Aggregator struct {
	cfg     common.SentimentConfig
	ratings *rating.Book
	logger  arbor.ILogger
}

// NewAggregator creates a sentiment aggregator.
func NewAggregator(cfg common.SentimentConfig, ratings *rating.Book, logger arbor.ILogger) *Aggregator {
	return &Aggregator{cfg: cfg, ratings: ratings, logger: logger}
}

// Tally holds raw keyword hit counts accumulated over a cycle.
type Tally struct {
	Bull            int
	Bear            int
	TotalItems      int
	SuccessfulFeeds int
}

// CountItem adds one item's keyword hits to the tally. Every fetched item
// counts, duplicates included: the tally measures opinions, not unique
// stories; dedup governs storage only.
func (a *Aggregator) CountItem(t *Tally, item models.NewsItem) {
	text := item.NormalizedText()
	t.Bull += CountHits(text, a.cfg.BullishKeywords)
	t.Bear += CountHits(text, a.cfg.BearishKeywords)
	t.TotalItems++
}

// Snapshot converts a tally into a market sentiment snapshot. Score is
// round(50 + raw*50) where raw = clamp((bull-bear)/(bull+bear), -1, 1), or
// 0 with no hits.
func (a *Aggregator) Snapshot(t Tally, asOf time.Time) *models.MarketSentimentSnapshot {
	raw := 0.0
	if t.Bull+t.Bear > 0 {
		raw = clampFloat(float64(t.Bull-t.Bear)/float64(t.Bull+t.Bear), -1, 1)
	}

	score := int(math.Round(50 + raw*50))

	return &models.MarketSentimentSnapshot{
		ID:         common.NewSnapshotID(),
		AsOf:       asOf,
		Score:      clampInt(score, 0, 100),
		Confidence: a.confidence(t),
	}
}

// confidence is a tiered function of successful-feed and item counts: the
// high tier requires at least three succeeding feeds and the configured item
// minimum; otherwise a lower tier scaled by feed/item count; zero succeeding
// feeds yields a fixed floor.
func (a *Aggregator) confidence(t Tally) int {
	if t.SuccessfulFeeds == 0 {
		return 20
	}
	if t.SuccessfulFeeds >= 3 && t.TotalItems >= a.cfg.MinItemsHighConfidence {
		return 90
	}
	scaled := 40 + minInt(40, t.TotalItems+20*t.SuccessfulFeeds)
	return clampInt(scaled, 0, 100)
}

// ScoreSymbol computes the weighted per-symbol sentiment over recent items.
// Each item's weight combines the symbol weight, the source credibility
// rating, a stepped time decay of publish age and a category multiplier.
func (a *Aggregator) ScoreSymbol(sym common.SymbolConfig, items []models.NewsItem, now time.Time) models.SymbolSentiment {
	result := models.SymbolSentiment{Symbol: sym.Symbol}

	symWeight := sym.Weight
	if symWeight <= 0 {
		symWeight = 1.0
	}

	seenSources := make(map[string]bool)

	for _, item := range items {
		text := item.NormalizedText()

		bull := CountHits(text, a.cfg.BullishKeywords)
		bear := CountHits(text, a.cfg.BearishKeywords)
		if bull == 0 && bear == 0 {
			result.Volume++
			continue
		}

		decay := unknownAgeWeight
		if item.PublishedAt != nil {
			decay = DecayWeight(now.Sub(*item.PublishedAt))
		}

		weight := symWeight * a.ratings.Get(item.Source) * decay * CategoryMultiplier(text)
		if MentionsSymbol(text, sym.Symbol, sym.Aliases) {
			weight *= 1.15
		}

		result.Bullish += float64(bull) * weight
		result.Bearish += float64(bear) * weight
		result.Volume++

		if item.Source != "" && !seenSources[item.Source] {
			seenSources[item.Source] = true
			result.Sources = append(result.Sources, item.Source)
		}
	}

	total := result.Bullish + result.Bearish
	if total > 0 {
		result.Score = clampFloat((result.Bullish-result.Bearish)/total, -1, 1)
	}
	result.Confidence = a.symbolConfidence(result.Volume, total)

	a.logger.Debug().
		Str("symbol", sym.Symbol).
		Float64("score", result.Score).
		Float64("confidence", result.Confidence).
		Int("volume", result.Volume).
		Msg("Scored symbol sentiment")

	return result
}

// symbolConfidence scales with corroborating volume and weighted hit mass,
// capped below 1.
func (a *Aggregator) symbolConfidence(volume int, weightedHits float64) float64 {
	if volume == 0 || weightedHits == 0 {
		return 0
	}
	conf := 0.3 + 0.05*float64(volume) + 0.02*weightedHits
	return clampFloat(conf, 0, 0.95)
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

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
