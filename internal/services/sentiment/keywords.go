package sentiment

import "strings"

// CountHits counts keyword occurrences in already-normalized text. Matching
// is case-insensitive substring counting without word boundaries; multiple
// occurrences in one item count multiply.
func CountHits(normalizedText string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		hits += strings.Count(normalizedText, kw)
	}
	return hits
}

// News categories used for weighting and event classification.
const (
	CategoryEarnings   = "earnings"
	CategoryMergers    = "mna"
	CategoryRegulatory = "regulatory"
	CategoryGeneral    = "general"
)

var (
	earningsKeywords   = []string{"earnings", "quarterly results", "guidance", "revenue", "eps", "profit report"}
	mergersKeywords    = []string{"merger", "acquisition", "takeover", "buyout", "acquire"}
	regulatoryKeywords = []string{"sec", "regulator", "antitrust", "investigation", "probe", "fine", "sanction"}
)

// Categorize assigns a coarse news category from normalized text.
func Categorize(normalizedText string) string {
	if containsAny(normalizedText, earningsKeywords) {
		return CategoryEarnings
	}
	if containsAny(normalizedText, mergersKeywords) {
		return CategoryMergers
	}
	if containsAny(normalizedText, regulatoryKeywords) {
		return CategoryRegulatory
	}
	return CategoryGeneral
}

// CategoryMultiplier boosts items in market-moving categories. Boosts
// compound when an item hits several categories.
func CategoryMultiplier(normalizedText string) float64 {
	mult := 1.0
	if containsAny(normalizedText, earningsKeywords) {
		mult *= 1.3
	}
	if containsAny(normalizedText, mergersKeywords) {
		mult *= 1.25
	}
	if containsAny(normalizedText, regulatoryKeywords) {
		mult *= 1.2
	}
	return mult
}

// MentionsSymbol reports whether text names the symbol or one of its
// aliases.
func MentionsSymbol(normalizedText, symbol string, aliases []string) bool {
	if symbol != "" && strings.Contains(normalizedText, strings.ToLower(symbol)) {
		return true
	}
	for _, alias := range aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias != "" && strings.Contains(normalizedText, alias) {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
