package feeds

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/marketsentry/marketsentry/internal/models"
)

// siteExtractor applies a regex template tuned to one site's markup. A
// pattern that yields zero items signals the caller to fall back to the
// generic HTML scraper.
type siteExtractor struct {
	hostSuffix string
	// pattern captures (href, title) from anchor markup
	pattern *regexp.Regexp
}

// Site-specific patterns. These track markup the generic heading scraper
// misses: story links carried in list items or card containers.
var siteExtractors = []siteExtractor{
	{
		hostSuffix: "finance.yahoo.com",
		pattern:    regexp.MustCompile(`<a[^>]+href="(/news/[^"]+)"[^>]*>([^<]{20,150})</a>`),
	},
	{
		hostSuffix: "reuters.com",
		pattern:    regexp.MustCompile(`<a[^>]+href="(/(?:markets|business)/[^"]+)"[^>]*>(?:<[^>]+>)*([^<]{20,150})<`),
	},
	{
		hostSuffix: "marketwatch.com",
		pattern:    regexp.MustCompile(`<a[^>]+class="[^"]*link[^"]*"[^>]+href="(https?://www\.marketwatch\.com/story/[^"]+)"[^>]*>([^<]{20,150})</a>`),
	},
}

// extractorForHost returns the specialized extractor for a page URL, if any.
func extractorForHost(pageURL string) (siteExtractor, bool) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return siteExtractor{}, false
	}
	host := strings.ToLower(parsed.Host)
	for _, ex := range siteExtractors {
		if strings.HasSuffix(host, ex.hostSuffix) {
			return ex, true
		}
	}
	return siteExtractor{}, false
}

// extract runs the site pattern over raw HTML. Titles are deduplicated by
// normalized text and relative hrefs resolved against the page URL.
func (ex siteExtractor) extract(pageURL, html string, source models.FeedSource, maxItems int) []models.NewsItem {
	base, _ := url.Parse(pageURL)

	var items []models.NewsItem
	seen := make(map[string]bool)

	for _, match := range ex.pattern.FindAllStringSubmatch(html, -1) {
		title := strings.TrimSpace(match[2])
		norm := strings.ToLower(title)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true

		items = append(items, models.NewsItem{
			Title:  title,
			Link:   resolveHref(base, match[1]),
			Source: source.Label,
		})
		if maxItems > 0 && len(items) >= maxItems {
			break
		}
	}
	return items
}
