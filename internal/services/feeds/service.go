package feeds

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/common"
	"github.com/marketsentry/marketsentry/internal/models"
)

// Service ties the fetcher, parsers, result cache and health tracker into a
// single per-source fetch operation.
type Service struct {
	fetcher *Fetcher
	parser  *Parser
	cache   *ResultCache
	health  *HealthTracker
	cfg     common.FeedsConfig
	logger  arbor.ILogger
}

// NewService creates a feed service.
func NewService(cfg common.FeedsConfig, logger arbor.ILogger) (*Service, error) {
	fetcher, err := NewFetcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	readTimeout, _ := cfg.ReadTimeoutDuration()

	return &Service{
		fetcher: fetcher,
		parser:  NewParser(logger),
		cache:   NewResultCache(cfg.CacheTTL(), logger),
		health:  NewHealthTracker(cfg.HealthTTL(), readTimeout, logger),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Cache exposes the result cache for scheduled clears.
func (s *Service) Cache() *ResultCache { return s.cache }

// Health exposes the health tracker for gating and probes.
func (s *Service) Health() *HealthTracker { return s.health }

// ProbeAll probes every configured source, refreshing health state between
// real fetches. Probe failures are recorded, never returned.
func (s *Service) ProbeAll(ctx context.Context) {
	for _, source := range s.cfg.Sources {
		s.health.Probe(ctx, source.URL)
	}
}

// FetchItems returns parsed items for a source: cache hit if unexpired,
// otherwise a fetch+parse with the primary identity, retried once with the
// alternate identity on any failure. This single alternate-identity retry is
// the only retry policy. Health state is updated after every real attempt.
func (s *Service) FetchItems(ctx context.Context, source models.FeedSource, maxItems int) ([]models.NewsItem, error) {
	if items, ok := s.cache.Get(source.URL); ok {
		s.logger.Debug().Str("url", source.URL).Int("items", len(items)).Msg("Feed cache hit")
		return items, nil
	}

	start := time.Now()

	items, contentType, err := s.fetchAndParse(ctx, source, maxItems, s.fetcher.PrimaryIdentity())
	if err != nil {
		s.logger.Debug().
			Str("url", source.URL).
			Err(err).
			Msg("Primary fetch failed, retrying with alternate identity")
		items, contentType, err = s.fetchAndParse(ctx, source, maxItems, s.fetcher.AlternateIdentity())
	}

	if err != nil {
		s.health.MarkUnhealthy(source.URL, err)
		return nil, err
	}

	s.health.MarkHealthy(source.URL, 200, contentType, time.Since(start))
	s.cache.Put(source.URL, items)

	return items, nil
}

// fetchAndParse performs one fetch attempt and dispatches the body to the
// right parser: RSS/Atom when the content sniffs as XML, otherwise a
// site-specific extractor falling back to the generic HTML scraper.
func (s *Service) fetchAndParse(ctx context.Context, source models.FeedSource, maxItems int, identity Identity) ([]models.NewsItem, string, error) {
	body, contentType, err := s.fetcher.Get(ctx, source.URL, identity)
	if err != nil {
		return nil, "", err
	}

	content := string(body)

	if LooksLikeXML(content) || isXMLContentType(contentType) {
		items, err := s.parser.ParseFeed(content, source, maxItems)
		if err != nil {
			// Malformed XML degrades to the HTML path rather than failing
			// the attempt outright.
			s.logger.Warn().Str("url", source.URL).Err(err).Msg("Feed XML parse failed, trying HTML scraper")
			return s.parseHTML(source, content, maxItems)
		}
		return items, contentType, nil
	}

	items, _, err := s.parseHTML(source, content, maxItems)
	return items, contentType, err
}

func (s *Service) parseHTML(source models.FeedSource, html string, maxItems int) ([]models.NewsItem, string, error) {
	if ex, ok := extractorForHost(source.URL); ok {
		if items := ex.extract(source.URL, html, source, maxItems); len(items) > 0 {
			return items, "text/html", nil
		}
		// Zero matches from the tuned pattern: fall through to the
		// generic scraper.
	}

	items, err := s.parser.ParseHTMLBasic(source.URL, html, source, maxItems)
	if err != nil {
		return nil, "", err
	}
	return items, "text/html", nil
}

// IsFetchError reports whether err is a typed fetch failure.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

func isXMLContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "xml") || strings.Contains(ct, "rss") || strings.Contains(ct, "atom")
}
