package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/common"
	"github.com/marketsentry/marketsentry/internal/interfaces"
	"github.com/marketsentry/marketsentry/internal/models"
	"github.com/marketsentry/marketsentry/internal/services/dedup"
	"github.com/marketsentry/marketsentry/internal/services/events"
	"github.com/marketsentry/marketsentry/internal/services/feeds"
	"github.com/marketsentry/marketsentry/internal/services/sentiment"
)

// recentWindowCap bounds the in-memory item window used for per-symbol
// scoring between cycles.
const recentWindowCap = 500

// Service orchestrates one ingest cycle: health-gated fetching across all
// configured sources, sentiment tallying over every fetched item, best-effort
// dedup and persistence, and the sentiment snapshot. Per-source failures
// degrade the cycle; only snapshot persistence can fail it.
type Service struct {
	cfg          *common.Config
	feeds        *feeds.Service
	aggregator   *sentiment.Aggregator
	dedup        *dedup.Service
	storage      interfaces.NewsStorage
	snapshots    interfaces.SnapshotRepo
	ring         *events.Ring
	eventService interfaces.EventService
	stream       interfaces.Stream
	logger       arbor.ILogger

	mu     sync.RWMutex
	recent []models.NewsItem
}

// NewService creates the ingest orchestrator.
func NewService(
	cfg *common.Config,
	feedService *feeds.Service,
	aggregator *sentiment.Aggregator,
	dedupService *dedup.Service,
	storage interfaces.NewsStorage,
	snapshots interfaces.SnapshotRepo,
	ring *events.Ring,
	eventService interfaces.EventService,
	stream interfaces.Stream,
	logger arbor.ILogger,
) *Service {
	return &Service{
		cfg:          cfg,
		feeds:        feedService,
		aggregator:   aggregator,
		dedup:        dedupService,
		storage:      storage,
		snapshots:    snapshots,
		ring:         ring,
		eventService: eventService,
		stream:       stream,
		logger:       logger,
	}
}

// RunCycle executes one full ingest cycle and returns its summary. The
// returned error is non-nil only when the sentiment snapshot could not be
// persisted.
func (s *Service) RunCycle(ctx context.Context) (*models.IngestResult, error) {
	started := time.Now()
	result := &models.IngestResult{StartedAt: started}
	tally := sentiment.Tally{}

	var cycleItems []models.NewsItem

	for _, source := range s.cfg.Feeds.Sources {
		if result.ItemsFetched >= s.cfg.Feeds.TotalLimit {
			s.logger.Debug().Int("limit", s.cfg.Feeds.TotalLimit).Msg("Total item limit reached, stopping fetch")
			break
		}

		if s.feeds.Health().IsRecentlyUnhealthy(source.URL) {
			result.SourcesSkipped++
			s.logger.Debug().Str("url", source.URL).Msg("Skipping recently unhealthy source")
			continue
		}

		result.SourcesTried++

		items, err := s.feeds.FetchItems(ctx, source, s.cfg.Feeds.PerFeedLimit)
		if err != nil {
			s.logger.Warn().Str("url", source.URL).Err(err).Msg("Source fetch failed")
			continue
		}

		result.SourcesSucceeded++
		tally.SuccessfulFeeds++

		for _, item := range items {
			if result.ItemsFetched >= s.cfg.Feeds.TotalLimit {
				break
			}
			result.ItemsFetched++

			// Every fetched item feeds the tally; dedup governs storage only.
			s.aggregator.CountItem(&tally, item)
			cycleItems = append(cycleItems, item)

			s.recordEvent(item)
			s.storeItem(ctx, item, result)
		}
	}

	s.rememberItems(cycleItems)

	snapshot := s.aggregator.Snapshot(tally, time.Now())
	saved, err := s.snapshots.Save(snapshot)
	if err != nil {
		result.Duration = time.Since(started)
		result.Failure = err.Error()
		s.logger.Error().Err(err).Msg("Failed to persist sentiment snapshot")
		return result, fmt.Errorf("failed to persist sentiment snapshot: %w", err)
	}

	result.Snapshot = saved
	result.Duration = time.Since(started)

	s.logger.Info().
		Int("sources_tried", result.SourcesTried).
		Int("sources_succeeded", result.SourcesSucceeded).
		Int("sources_skipped", result.SourcesSkipped).
		Int("items_fetched", result.ItemsFetched).
		Int("items_stored", result.ItemsStored).
		Int("duplicates_skipped", result.DuplicatesSkipped).
		Int("score", saved.Score).
		Int("confidence", saved.Confidence).
		Msg("Ingest cycle completed")

	if s.stream != nil {
		s.stream.Send(interfaces.TopicIngestResults, result)
		s.stream.Send(interfaces.TopicSentimentUpdates, saved)
	}
	if s.eventService != nil {
		s.eventService.Publish(ctx, interfaces.Event{Type: interfaces.EventIngestCompleted, Payload: result})
		s.eventService.Publish(ctx, interfaces.Event{Type: interfaces.EventSentimentUpdated, Payload: saved})
	}

	return result, nil
}

// storeItem runs the dedup path and persists non-duplicate items.
// Best-effort: storage failures are logged and the cycle continues.
func (s *Service) storeItem(ctx context.Context, item models.NewsItem, result *models.IngestResult) {
	cls := s.dedup.Classify(ctx, item)
	if cls.ExactDuplicate || cls.NearDuplicate {
		result.DuplicatesSkipped++
		return
	}

	doc := &models.NewsDocument{
		ID:          common.NewDocumentID(),
		Title:       item.Title,
		Description: item.Description,
		Link:        item.Link,
		Source:      item.Source,
		ContentHash: cls.ContentHash,
		PublishedAt: item.PublishedAt,
		Embedding:   cls.Embedding,
		CreatedAt:   time.Now(),
	}
	if cls.TopicTag != "" {
		doc.Tags = []string{cls.TopicTag}
	}

	if err := s.storage.SaveDocument(doc); err != nil {
		s.logger.Warn().Err(err).Str("source", item.Source).Msg("Failed to store news document")
		return
	}
	result.ItemsStored++
}

// recordEvent logs the item into the burst ring, tagging the first matching
// symbol when one is mentioned.
func (s *Service) recordEvent(item models.NewsItem) {
	if s.ring == nil {
		return
	}

	text := item.NormalizedText()
	symbol := ""
	for _, sym := range s.cfg.Symbols {
		if sentiment.MentionsSymbol(text, sym.Symbol, sym.Aliases) {
			symbol = sym.Symbol
			break
		}
	}

	// Burst queries count ingestion events, so entries are stamped with
	// arrival time rather than the item's published time: feeds deliver
	// newest-first, and published times would land in the ring out of order.
	s.ring.Record(item.Source, symbol, sentiment.Categorize(text), time.Now())
}

// rememberItems appends the cycle's items to the bounded in-memory window
// used for per-symbol scoring.
func (s *Service) rememberItems(items []models.NewsItem) {
	if len(items) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.recent = append(s.recent, items...)
	if len(s.recent) > recentWindowCap {
		s.recent = s.recent[len(s.recent)-recentWindowCap:]
	}
}

// RecentItems returns a copy of the in-memory item window.
func (s *Service) RecentItems() []models.NewsItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.NewsItem, len(s.recent))
	copy(out, s.recent)
	return out
}

// LatestSnapshot returns the most recent persisted snapshot, or (nil, nil)
// when none exists yet.
func (s *Service) LatestSnapshot() (*models.MarketSentimentSnapshot, error) {
	return s.snapshots.FindLatest()
}

// PruneDocuments removes stored documents older than maxAge.
func (s *Service) PruneDocuments(maxAge time.Duration) (int, error) {
	return s.storage.DeleteOlderThan(time.Now().Add(-maxAge))
}
