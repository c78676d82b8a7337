package interfaces

import (
	"time"

	"github.com/marketsentry/marketsentry/internal/models"
)

// NewsStorage persists deduplicated news documents and answers the
// exact-dedupe and recency-scan queries used by the dedup engine.
type NewsStorage interface {
	SaveDocument(doc *models.NewsDocument) error
	ExistsByContentHash(hash string) (bool, error)
	ListRecent(limit int) ([]*models.NewsDocument, error)
	DeleteOlderThan(cutoff time.Time) (int, error)
}

// SnapshotRepo persists market sentiment snapshots. FindLatest returns
// (nil, nil) when no snapshot has been saved yet.
type SnapshotRepo interface {
	Save(snapshot *models.MarketSentimentSnapshot) (*models.MarketSentimentSnapshot, error)
	FindLatest() (*models.MarketSentimentSnapshot, error)
}
