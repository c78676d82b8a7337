package feeds

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/models"
)

const (
	minHeadlineLen = 20
	maxHeadlineLen = 150
)

// Parser converts raw feed bytes into normalized news items. Parsing never
// panics or propagates malformed input beyond the retry boundary: a parse
// failure degrades that source to an empty item list for the cycle.
type Parser struct {
	feedParser *gofeed.Parser
	logger     arbor.ILogger
}

// NewParser creates a format parser.
func NewParser(logger arbor.ILogger) *Parser {
	return &Parser{
		feedParser: gofeed.NewParser(),
		logger:     logger,
	}
}

// LooksLikeXML sniffs the content prefix for an XML/RSS/Atom document.
func LooksLikeXML(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) == 0 {
		return false
	}
	lower := strings.ToLower(trimmed)
	return strings.HasPrefix(lower, "<?xml") ||
		strings.HasPrefix(lower, "<rss") ||
		strings.HasPrefix(lower, "<feed") ||
		strings.HasPrefix(lower, "<rdf")
}

// ParseFeed parses RSS or Atom content into news items. Unparseable item
// timestamps are tolerated and left nil.
func (p *Parser) ParseFeed(content string, source models.FeedSource, maxItems int) ([]models.NewsItem, error) {
	feed, err := p.feedParser.ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", source.URL, err)
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil || strings.TrimSpace(entry.Title) == "" {
			continue
		}
		items = append(items, models.NewsItem{
			Title:       strings.TrimSpace(entry.Title),
			Description: strings.TrimSpace(entry.Description),
			Link:        strings.TrimSpace(entry.Link),
			PublishedAt: entry.PublishedParsed,
			Source:      source.Label,
		})
		if maxItems > 0 && len(items) >= maxItems {
			break
		}
	}
	return items, nil
}

// ParseHTMLBasic applies the heuristic HTML scraper: an Open Graph
// title/description pair becomes item 0, then length-filtered headings
// paired with a nearby anchor, then generic anchor text deduplicated by
// normalized text, up to maxItems. Relative hrefs are resolved against the
// page URL.
func (p *Parser) ParseHTMLBasic(pageURL, html string, source models.FeedSource, maxItems int) ([]models.NewsItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", pageURL, err)
	}

	base, _ := url.Parse(pageURL)

	var items []models.NewsItem
	seen := make(map[string]bool)

	add := func(title, description, link string) bool {
		title = strings.TrimSpace(title)
		norm := strings.ToLower(title)
		if norm == "" || seen[norm] {
			return false
		}
		seen[norm] = true
		items = append(items, models.NewsItem{
			Title:       title,
			Description: strings.TrimSpace(description),
			Link:        resolveHref(base, link),
			Source:      source.Label,
		})
		return maxItems > 0 && len(items) >= maxItems
	}

	// Open Graph metadata as item 0
	ogTitle, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	ogDesc, _ := doc.Find(`meta[property="og:description"]`).Attr("content")
	if strings.TrimSpace(ogTitle) != "" {
		if add(ogTitle, ogDesc, pageURL) {
			return items, nil
		}
	}

	// Headings paired with a nearby anchor
	full := false
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if len(text) < minHeadlineLen || len(text) > maxHeadlineLen {
			return true
		}
		href := nearbyHref(sel)
		if add(text, "", href) {
			full = true
			return false
		}
		return true
	})
	if full {
		return items, nil
	}

	// Generic anchor text with the same length filter
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if len(text) < minHeadlineLen || len(text) > maxHeadlineLen {
			return true
		}
		href, _ := sel.Attr("href")
		return !add(text, "", href)
	})

	return items, nil
}

// nearbyHref finds the anchor href closest to a heading: the heading's own
// anchor, its enclosing anchor, or the first anchor in its parent.
func nearbyHref(sel *goquery.Selection) string {
	if href, ok := sel.Find("a[href]").First().Attr("href"); ok {
		return href
	}
	if href, ok := sel.Closest("a[href]").Attr("href"); ok {
		return href
	}
	if href, ok := sel.Parent().Find("a[href]").First().Attr("href"); ok {
		return href
	}
	return ""
}

func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(parsed).String()
}
