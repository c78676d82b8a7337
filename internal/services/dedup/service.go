// Package dedup suppresses storage of content-identical or near-identical
// news items and assigns coarse topic-cluster tags. Everything here is
// best-effort: failures degrade to exact-hash-only or no-dedup and never
// abort ingestion.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/common"
	"github.com/marketsentry/marketsentry/internal/interfaces"
	"github.com/marketsentry/marketsentry/internal/models"
)

const contentKeyMaxLen = 512

// Classification is the dedup verdict for one item.
type Classification struct {
	ContentHash    string
	ExactDuplicate bool
	NearDuplicate  bool
	TopicTag       string
	Embedding      []float32
}

// Service is the dedup and clustering engine. Embedder and DocStore are
// optional; a nil value is a normal, non-error branch.
type Service struct {
	storage  interfaces.NewsStorage
	embedder interfaces.Embedder
	docStore interfaces.DocStore
	cfg      common.DedupConfig
	logger   arbor.ILogger
}

// NewService creates a dedup engine. embedder and docStore may be nil.
func NewService(storage interfaces.NewsStorage, embedder interfaces.Embedder, docStore interfaces.DocStore, cfg common.DedupConfig, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		embedder: embedder,
		docStore: docStore,
		cfg:      cfg,
		logger:   logger,
	}
}

// ContentKey normalizes a (title, description) pair for hashing: lower-case,
// whitespace-collapsed, length-capped.
func ContentKey(title, description string) string {
	joined := strings.ToLower(title + " " + description)
	joined = strings.Join(strings.Fields(joined), " ")
	if len(joined) > contentKeyMaxLen {
		joined = joined[:contentKeyMaxLen]
	}
	return joined
}

// ContentHash digests the content key with SHA-256, base64-encoded.
func ContentHash(title, description string) string {
	sum := sha256.Sum256([]byte(ContentKey(title, description)))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Classify runs the full dedup path for one item: exact-hash check against
// persisted storage, then, when an embedder is available, the two-tier
// similarity search (approximate index -> linear scan -> skip).
func (s *Service) Classify(ctx context.Context, item models.NewsItem) Classification {
	c := Classification{ContentHash: ContentHash(item.Title, item.Description)}

	exists, err := s.storage.ExistsByContentHash(c.ContentHash)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Content hash lookup failed, skipping exact dedup")
	} else if exists {
		c.ExactDuplicate = true
		return c
	}

	if s.embedder == nil {
		return c
	}

	vector, err := s.embedder.Embed(ctx, ContentKey(item.Title, item.Description))
	if err != nil {
		s.logger.Debug().Err(err).Msg("Embedding unavailable, item proceeds without topic metadata")
		return c
	}
	if s.cfg.EmbeddingDim > 0 && len(vector) != s.cfg.EmbeddingDim {
		s.logger.Debug().
			Int("got", len(vector)).
			Int("want", s.cfg.EmbeddingDim).
			Msg("Embedding dimension mismatch, skipping similarity check for item")
		return c
	}
	c.Embedding = vector

	best, ok := s.NearestSimilarity(ctx, vector)
	if !ok {
		return c
	}

	if best >= s.cfg.DedupeThreshold {
		c.NearDuplicate = true
	}
	if best >= s.cfg.ClusterThreshold {
		c.TopicTag = sameDayTopicTag(time.Now())
	} else {
		c.TopicTag = "topic-new"
	}
	return c
}

// NearestSimilarity returns the best similarity score against stored
// documents. It first attempts an approximate top-K index search, and on any
// failure or absence of the index falls back to a linear scan over the
// most-recent stored documents computing cosine similarity directly. When
// both tiers are unavailable the check is skipped.
func (s *Service) NearestSimilarity(ctx context.Context, vector []float32) (float64, bool) {
	if s.docStore != nil {
		scored, err := s.docStore.SearchSimilar(ctx, vector, s.cfg.TopK)
		if err == nil {
			best := -1.0
			for _, sd := range scored {
				if sd.Score > best {
					best = sd.Score
				}
			}
			if len(scored) > 0 {
				return best, true
			}
			return 0, false
		}
		s.logger.Debug().Err(err).Msg("Index similarity search failed, falling back to linear scan")
	}

	docs, err := s.recentDocuments(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Linear similarity scan failed, skipping dedup check")
		return 0, false
	}

	found := false
	best := -1.0
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			continue
		}
		if sim := CosineSimilarity(vector, doc.Embedding); !found || sim > best {
			best = sim
			found = true
		}
	}
	return best, found
}

// recentDocuments sources the linear-scan candidates: the doc store's recent
// list when one is configured and answering, otherwise primary storage.
func (s *Service) recentDocuments(ctx context.Context) ([]*models.NewsDocument, error) {
	if s.docStore != nil {
		docs, err := s.docStore.ListRecent(ctx, s.cfg.RecentScanLimit)
		if err == nil {
			return docs, nil
		}
		s.logger.Debug().Err(err).Msg("Doc store recent list failed, falling back to primary storage")
	}
	return s.storage.ListRecent(s.cfg.RecentScanLimit)
}

func sameDayTopicTag(now time.Time) string {
	return fmt.Sprintf("topic:%s", now.Format("20060102"))
}
