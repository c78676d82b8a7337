package interfaces

import (
	"context"

	"github.com/marketsentry/marketsentry/internal/models"
)

// Embedder generates vector embeddings for text. The service is optional;
// a nil Embedder disables embedding-based dedup entirely, and a dimension
// mismatch disables it for that item only.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// ScoredDocument pairs a stored document with a similarity score in [-1,1].
type ScoredDocument struct {
	Document *models.NewsDocument
	Score    float64
}

// DocStore is an optional vector/document store used for approximate
// similarity search. When SearchSimilar fails, callers fall back to a
// linear scan over ListRecent, and over NewsStorage when that also fails
// or the store is nil.
type DocStore interface {
	SearchSimilar(ctx context.Context, vector []float32, topK int) ([]ScoredDocument, error)
	ListRecent(ctx context.Context, limit int) ([]*models.NewsDocument, error)
}
