package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/marketsentry/marketsentry/internal/common"
	"github.com/marketsentry/marketsentry/internal/interfaces"
	"github.com/marketsentry/marketsentry/internal/models"
)

// SnapshotStorage implements the SnapshotRepo interface for Badger
type SnapshotStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSnapshotStorage creates a new SnapshotStorage instance
func NewSnapshotStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SnapshotRepo {
	return &SnapshotStorage{
		db:     db,
		logger: logger,
	}
}

// Save persists a snapshot, assigning an ID when missing, and returns the
// stored value.
func (s *SnapshotStorage) Save(snapshot *models.MarketSentimentSnapshot) (*models.MarketSentimentSnapshot, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("snapshot is required")
	}
	if snapshot.ID == "" {
		snapshot.ID = common.NewSnapshotID()
	}

	if err := s.db.Store().Upsert(snapshot.ID, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save sentiment snapshot: %w", err)
	}
	return snapshot, nil
}

// FindLatest returns the most recent snapshot by capture time, or (nil, nil)
// when none has been saved yet.
func (s *SnapshotStorage) FindLatest() (*models.MarketSentimentSnapshot, error) {
	var snapshots []models.MarketSentimentSnapshot
	query := badgerhold.Where("ID").Ne("").SortBy("AsOf").Reverse().Limit(1)
	if err := s.db.Store().Find(&snapshots, query); err != nil {
		return nil, fmt.Errorf("failed to find latest snapshot: %w", err)
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return &snapshots[0], nil
}

var _ interfaces.SnapshotRepo = (*SnapshotStorage)(nil)
