package dedup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/common"
	"github.com/marketsentry/marketsentry/internal/interfaces"
	"github.com/marketsentry/marketsentry/internal/models"
)

type fakeStorage struct {
	hashes map[string]bool
	recent []*models.NewsDocument

	existsErr error
	listErr   error
}

func (f *fakeStorage) SaveDocument(doc *models.NewsDocument) error { return nil }

func (f *fakeStorage) ExistsByContentHash(hash string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.hashes[hash], nil
}

func (f *fakeStorage) ListRecent(limit int) ([]*models.NewsDocument, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.recent, nil
}

func (f *fakeStorage) DeleteOlderThan(cutoff time.Time) (int, error) { return 0, nil }

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

func (f *fakeEmbedder) Dimension() int { return len(f.vector) }

type fakeDocStore struct {
	scored    []interfaces.ScoredDocument
	recent    []*models.NewsDocument
	searchErr error
	listErr   error
}

func (f *fakeDocStore) SearchSimilar(ctx context.Context, vector []float32, topK int) ([]interfaces.ScoredDocument, error) {
	return f.scored, f.searchErr
}

func (f *fakeDocStore) ListRecent(ctx context.Context, limit int) ([]*models.NewsDocument, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.recent, nil
}

func testDedupConfig() common.DedupConfig {
	return common.DedupConfig{
		DedupeThreshold:  0.92,
		ClusterThreshold: 0.80,
		EmbeddingDim:     3,
		RecentScanLimit:  200,
		TopK:             5,
	}
}

func TestContentKeyNormalization(t *testing.T) {
	a := ContentKey("Fed  Raises   Rates", "Markets React")
	b := ContentKey("fed raises rates", "markets react")
	if a != b {
		t.Errorf("normalization mismatch: %q vs %q", a, b)
	}
}

func TestContentKeyLengthCap(t *testing.T) {
	long := strings.Repeat("x", 2000)
	if got := len(ContentKey(long, long)); got != 512 {
		t.Errorf("expected key capped at 512, got %d", got)
	}
}

func TestContentHashEquality(t *testing.T) {
	h1 := ContentHash("Same Title", "same body")
	h2 := ContentHash("same  title", "Same Body")
	if h1 != h2 {
		t.Error("normalized-equal content must hash identically")
	}

	h3 := ContentHash("different title", "same body")
	if h1 == h3 {
		t.Error("different content must not collide")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1},
		{"dimension mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyExactDuplicate(t *testing.T) {
	item := models.NewsItem{Title: "Fed raises rates", Description: "markets react"}
	storage := &fakeStorage{hashes: map[string]bool{
		ContentHash(item.Title, item.Description): true,
	}}
	svc := NewService(storage, nil, nil, testDedupConfig(), arbor.NewLogger())

	c := svc.Classify(context.Background(), item)
	if !c.ExactDuplicate {
		t.Error("expected exact duplicate verdict")
	}
}

func TestClassifyNoEmbedderSkipsSimilarity(t *testing.T) {
	storage := &fakeStorage{hashes: map[string]bool{}}
	svc := NewService(storage, nil, nil, testDedupConfig(), arbor.NewLogger())

	c := svc.Classify(context.Background(), models.NewsItem{Title: "fresh story"})
	if c.ExactDuplicate || c.NearDuplicate || c.TopicTag != "" {
		t.Errorf("expected hash-only classification, got %+v", c)
	}
	if c.ContentHash == "" {
		t.Error("content hash must always be computed")
	}
}

func TestClassifyStorageErrorDegradesToNoDedup(t *testing.T) {
	storage := &fakeStorage{existsErr: errors.New("storage down")}
	svc := NewService(storage, nil, nil, testDedupConfig(), arbor.NewLogger())

	c := svc.Classify(context.Background(), models.NewsItem{Title: "story"})
	if c.ExactDuplicate {
		t.Error("a failed hash lookup must not mark the item duplicate")
	}
}

func TestClassifyNearDuplicateViaIndex(t *testing.T) {
	storage := &fakeStorage{hashes: map[string]bool{}}
	embedder := &fakeEmbedder{vector: []float32{1, 0, 0}}
	docStore := &fakeDocStore{scored: []interfaces.ScoredDocument{{Score: 0.95}}}
	svc := NewService(storage, embedder, docStore, testDedupConfig(), arbor.NewLogger())

	c := svc.Classify(context.Background(), models.NewsItem{Title: "near dup"})
	if !c.NearDuplicate {
		t.Error("expected near-duplicate above dedupe threshold")
	}
	if !strings.HasPrefix(c.TopicTag, "topic:") {
		t.Errorf("expected same-day topic tag, got %q", c.TopicTag)
	}
}

func TestClassifyClusterOnlyBand(t *testing.T) {
	storage := &fakeStorage{hashes: map[string]bool{}}
	embedder := &fakeEmbedder{vector: []float32{1, 0, 0}}
	docStore := &fakeDocStore{scored: []interfaces.ScoredDocument{{Score: 0.85}}}
	svc := NewService(storage, embedder, docStore, testDedupConfig(), arbor.NewLogger())

	c := svc.Classify(context.Background(), models.NewsItem{Title: "same topic different story"})
	if c.NearDuplicate {
		t.Error("similarity in the cluster band must not suppress storage")
	}
	if !strings.HasPrefix(c.TopicTag, "topic:") {
		t.Errorf("expected same-day topic tag, got %q", c.TopicTag)
	}
}

func TestClassifyIndexFailureFallsBackToLinearScan(t *testing.T) {
	storage := &fakeStorage{
		hashes: map[string]bool{},
		recent: []*models.NewsDocument{
			{ID: "d1", Embedding: []float32{1, 0, 0}},
			{ID: "d2", Embedding: []float32{0, 1, 0}},
		},
	}
	embedder := &fakeEmbedder{vector: []float32{1, 0, 0}}
	docStore := &fakeDocStore{
		searchErr: errors.New("index unavailable"),
		listErr:   errors.New("list unavailable"),
	}
	svc := NewService(storage, embedder, docStore, testDedupConfig(), arbor.NewLogger())

	c := svc.Classify(context.Background(), models.NewsItem{Title: "near dup"})
	if !c.NearDuplicate {
		t.Error("linear-scan fallback should find the identical stored vector")
	}
}

func TestClassifyLinearScanUsesDocStoreList(t *testing.T) {
	// Primary storage has no candidates; the doc store's recent list does,
	// so a failed index search must scan the doc store's documents.
	storage := &fakeStorage{hashes: map[string]bool{}}
	embedder := &fakeEmbedder{vector: []float32{1, 0, 0}}
	docStore := &fakeDocStore{
		searchErr: errors.New("index unavailable"),
		recent: []*models.NewsDocument{
			{ID: "d1", Embedding: []float32{1, 0, 0}},
		},
	}
	svc := NewService(storage, embedder, docStore, testDedupConfig(), arbor.NewLogger())

	c := svc.Classify(context.Background(), models.NewsItem{Title: "near dup"})
	if !c.NearDuplicate {
		t.Error("expected linear scan over the doc store's recent documents")
	}
}

func TestClassifyBothTiersUnavailableSkipsCheck(t *testing.T) {
	storage := &fakeStorage{
		hashes:  map[string]bool{},
		listErr: errors.New("scan failed"),
	}
	embedder := &fakeEmbedder{vector: []float32{1, 0, 0}}
	docStore := &fakeDocStore{
		searchErr: errors.New("index unavailable"),
		listErr:   errors.New("list unavailable"),
	}
	svc := NewService(storage, embedder, docStore, testDedupConfig(), arbor.NewLogger())

	c := svc.Classify(context.Background(), models.NewsItem{Title: "story"})
	if c.NearDuplicate || c.TopicTag != "" {
		t.Errorf("expected similarity check skipped entirely, got %+v", c)
	}
}

func TestClassifyDimensionMismatchSkipsItem(t *testing.T) {
	storage := &fakeStorage{hashes: map[string]bool{}}
	embedder := &fakeEmbedder{vector: []float32{1, 0}} // config expects dim 3
	docStore := &fakeDocStore{scored: []interfaces.ScoredDocument{{Score: 0.99}}}
	svc := NewService(storage, embedder, docStore, testDedupConfig(), arbor.NewLogger())

	c := svc.Classify(context.Background(), models.NewsItem{Title: "story"})
	if c.NearDuplicate || c.TopicTag != "" {
		t.Errorf("dimension mismatch must skip the similarity check, got %+v", c)
	}
}
