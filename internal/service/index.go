package service

import (
	"context"

	"github.com/Waqasabid99/agiAI/internal/domain"
)

// VectorIndex stores embedded chunks and answers similarity queries.
//
// The index is created lazily by the first successful Upsert and fixes its
// dimensionality then. Search and Count against a missing index return an
// empty result and 0 respectively. Scores are cosine similarity, higher is
// more relevant. Upsert writes in sequential batches; a rejected batch aborts
// the rest and the returned STORE_WRITE_FAILED error carries a
// *domain.BatchWriteError with the number of records already committed.
type VectorIndex interface {
	Upsert(ctx context.Context, records []domain.VectorRecord) error
	Search(ctx context.Context, query []float32, topK int) ([]domain.RetrievedChunk, error)
	DeleteBySource(ctx context.Context, sourceURL string) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
