package vectorindex

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vectorIndex interface {
	Upsert(ctx context.Context, records []domain.VectorRecord) error
	Search(ctx context.Context, query []float32, topK int) ([]domain.RetrievedChunk, error)
	DeleteBySource(ctx context.Context, sourceURL string) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

func makeRecords(source string, n int, vec func(i int) []float32) []domain.VectorRecord {
	records := make([]domain.VectorRecord, 0, n)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < n; i++ {
		records = append(records, domain.VectorRecord{
			ID:     domain.RecordID(source, i),
			Vector: vec(i),
			Chunk:  domain.NewChunk(fmt.Sprintf("chunk %d of %s", i, source), "https://example.com/"+source, source, i, created),
		})
	}
	return records
}

func unit3(i int) []float32 {
	switch i % 3 {
	case 0:
		return []float32{1, 0, 0}
	case 1:
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

// runIndexContract exercises the behaviour every index adapter must share.
func runIndexContract(t *testing.T, newIndex func(t *testing.T, batchSize int) vectorIndex) {
	ctx := context.Background()

	t.Run("missing index is empty", func(t *testing.T) {
		idx := newIndex(t, 100)

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		results, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)

		assert.NoError(t, idx.DeleteBySource(ctx, "https://example.com/none"))
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		idx := newIndex(t, 100)
		require.NoError(t, idx.Upsert(ctx, makeRecords("a", 3, unit3)))

		require.NoError(t, idx.Clear(ctx))
		require.NoError(t, idx.Clear(ctx))

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		// recreated lazily with a new dimension
		require.NoError(t, idx.Upsert(ctx, makeRecords("b", 2, func(int) []float32 { return []float32{1, 1} })))
		n, err = idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("search orders by descending similarity", func(t *testing.T) {
		idx := newIndex(t, 100)
		records := []domain.VectorRecord{
			{ID: "r-0", Vector: []float32{0, 1, 0}, Chunk: domain.NewChunk("orthogonal", "https://example.com/o", "O", 0, time.Now())},
			{ID: "r-1", Vector: []float32{1, 0, 0}, Chunk: domain.NewChunk("exact", "https://example.com/e", "E", 0, time.Now())},
			{ID: "r-2", Vector: []float32{1, 1, 0}, Chunk: domain.NewChunk("close", "https://example.com/c", "C", 0, time.Now())},
		}
		require.NoError(t, idx.Upsert(ctx, records))

		results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "exact", results[0].Chunk.Text)
		assert.Equal(t, "https://example.com/e", results[0].Chunk.SourceURL)
		assert.InDelta(t, 1.0, results[0].Score, 1e-6)
		assert.Equal(t, "close", results[1].Chunk.Text)
		assert.Greater(t, results[0].Score, results[1].Score)
	})

	t.Run("ties keep insertion order", func(t *testing.T) {
		idx := newIndex(t, 100)
		require.NoError(t, idx.Upsert(ctx, makeRecords("tie", 4, func(int) []float32 { return []float32{1, 0} })))

		results, err := idx.Search(ctx, []float32{1, 0}, 4)
		require.NoError(t, err)
		require.Len(t, results, 4)
		for i, r := range results {
			assert.Equal(t, i, r.Chunk.ChunkIndex)
		}
	})

	t.Run("dimension mismatch leaves records untouched", func(t *testing.T) {
		idx := newIndex(t, 100)
		require.NoError(t, idx.Upsert(ctx, makeRecords("a", 3, unit3)))

		err := idx.Upsert(ctx, makeRecords("b", 1, func(int) []float32 { return []float32{1, 0} }))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStoreWriteFailed)
		assert.ErrorIs(t, err, ErrDimensionMismatch)

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("failed final batch keeps earlier batches", func(t *testing.T) {
		idx := newIndex(t, 100)
		records := makeRecords("bulk", 250, func(i int) []float32 {
			if i >= 200 {
				return []float32{1, 0}
			}
			return unit3(i)
		})

		err := idx.Upsert(ctx, records)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStoreWriteFailed)

		committed, ok := domain.CommittedCount(err)
		require.True(t, ok)
		assert.Equal(t, 200, committed)

		var bwe *domain.BatchWriteError
		require.ErrorAs(t, err, &bwe)
		assert.Equal(t, 2, bwe.Batch)

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 200, n)
	})

	t.Run("delete by source removes only that source", func(t *testing.T) {
		idx := newIndex(t, 100)
		require.NoError(t, idx.Upsert(ctx, makeRecords("a", 4, unit3)))
		require.NoError(t, idx.Upsert(ctx, makeRecords("b", 3, unit3)))

		require.NoError(t, idx.DeleteBySource(ctx, "https://example.com/a"))
		require.NoError(t, idx.DeleteBySource(ctx, "https://example.com/a"))

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		results, err := idx.Search(ctx, []float32{1, 0, 0}, 10)
		require.NoError(t, err)
		for _, r := range results {
			assert.Equal(t, "https://example.com/b", r.Chunk.SourceURL)
		}
	})

	t.Run("upsert replaces an existing id", func(t *testing.T) {
		idx := newIndex(t, 100)
		records := makeRecords("a", 2, unit3)
		require.NoError(t, idx.Upsert(ctx, records))

		records[0].Chunk.Text = "updated text"
		require.NoError(t, idx.Upsert(ctx, records[:1]))

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		results, err := idx.Search(ctx, []float32{1, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "updated text", results[0].Chunk.Text)
	})

	t.Run("topK below one is rejected", func(t *testing.T) {
		idx := newIndex(t, 100)
		_, err := idx.Search(ctx, []float32{1, 0, 0}, 0)
		require.Error(t, err)
		assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
	})

	t.Run("query of wrong dimension fails to read", func(t *testing.T) {
		idx := newIndex(t, 100)
		require.NoError(t, idx.Upsert(ctx, makeRecords("a", 1, unit3)))

		_, err := idx.Search(ctx, []float32{1, 0}, 3)
		assert.ErrorIs(t, err, domain.ErrStoreReadFailed)
	})
}
