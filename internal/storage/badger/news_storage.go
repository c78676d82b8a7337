package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/marketsentry/marketsentry/internal/interfaces"
	"github.com/marketsentry/marketsentry/internal/models"
)

// NewsStorage implements the NewsStorage interface for Badger
type NewsStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewNewsStorage creates a new NewsStorage instance
func NewNewsStorage(db *BadgerDB, logger arbor.ILogger) interfaces.NewsStorage {
	return &NewsStorage{
		db:     db,
		logger: logger,
	}
}

func (s *NewsStorage) SaveDocument(doc *models.NewsDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if doc.ContentHash == "" {
		return fmt.Errorf("document content hash is required")
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save news document: %w", err)
	}
	return nil
}

// ExistsByContentHash reports whether any stored document carries the hash.
// Backed by the ContentHash index.
func (s *NewsStorage) ExistsByContentHash(hash string) (bool, error) {
	count, err := s.db.Store().Count(&models.NewsDocument{}, badgerhold.Where("ContentHash").Eq(hash).Index("ContentHash"))
	if err != nil {
		return false, fmt.Errorf("failed to query content hash: %w", err)
	}
	return count > 0, nil
}

// ListRecent returns up to limit documents, newest first by creation time.
func (s *NewsStorage) ListRecent(limit int) ([]*models.NewsDocument, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var docs []models.NewsDocument
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to list recent documents: %w", err)
	}

	result := make([]*models.NewsDocument, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, nil
}

// DeleteOlderThan removes documents created before cutoff and returns the
// count removed.
func (s *NewsStorage) DeleteOlderThan(cutoff time.Time) (int, error) {
	var stale []models.NewsDocument
	if err := s.db.Store().Find(&stale, badgerhold.Where("CreatedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to find stale documents: %w", err)
	}

	removed := 0
	for i := range stale {
		if err := s.db.Store().Delete(stale[i].ID, &models.NewsDocument{}); err != nil {
			if err == badgerhold.ErrNotFound {
				continue
			}
			return removed, fmt.Errorf("failed to delete stale document: %w", err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Msg("Pruned stale news documents")
	}
	return removed, nil
}

var _ interfaces.NewsStorage = (*NewsStorage)(nil)
