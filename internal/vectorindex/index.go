// Package vectorindex holds the in-process and SQLite vector indexes and the
// batching and ranking helpers every index adapter shares.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/Waqasabid99/agiAI/internal/domain"
)

// DefaultBatchSize bounds how many records one write submits to the backing store.
const DefaultBatchSize = 100

var (
	// ErrDimensionMismatch is returned when a vector does not match the index dimension
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidTopK is returned when a search asks for fewer than one result
	ErrInvalidTopK = domain.NewDomainError(domain.ErrCodeValidation, "topK must be at least 1")
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTableName guards identifiers that are interpolated into SQL.
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid index table name %q", name)
	}
	return nil
}

// BatchWriter commits one batch of records atomically.
type BatchWriter func(ctx context.Context, batch []domain.VectorRecord) error

// UpsertInBatches submits records in sequential batches of batchSize. The first
// rejected batch stops the run; earlier batches stay committed and the returned
// STORE_WRITE_FAILED error reports how many records they held.
func UpsertInBatches(ctx context.Context, records []domain.VectorRecord, batchSize int, write BatchWriter) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	committed := 0
	for batch, start := 0, 0; start < len(records); batch, start = batch+1, start+batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := ctx.Err(); err != nil {
			return domain.NewStoreWriteError(batch, committed, err)
		}
		if err := write(ctx, records[start:end]); err != nil {
			return domain.NewStoreWriteError(batch, committed, err)
		}
		committed += end - start
	}
	return nil
}

// CheckBatch validates every record and returns the batch's common dimension.
// want is the index dimension, or 0 while the index does not exist yet.
func CheckBatch(batch []domain.VectorRecord, want int) (int, error) {
	dim := want
	for _, r := range batch {
		if err := domain.ValidateVectorRecord(r); err != nil {
			return 0, err
		}
		if dim == 0 {
			dim = len(r.Vector)
		}
		if len(r.Vector) != dim {
			return 0, fmt.Errorf("%w: record %s has %d dimensions, index has %d", ErrDimensionMismatch, r.ID, len(r.Vector), dim)
		}
	}
	return dim, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either is a zero vector or their lengths differ.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Candidate is a scored record before ranking. Seq is its insertion order.
type Candidate struct {
	Chunk domain.Chunk
	Score float32
	Seq   int64
}

// RankByScore orders candidates by descending score, breaking ties by insertion
// order, and keeps the first topK.
func RankByScore(candidates []Candidate, topK int) []domain.RetrievedChunk {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Seq < candidates[j].Seq
	})
	if topK < len(candidates) {
		candidates = candidates[:topK]
	}

	out := make([]domain.RetrievedChunk, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, domain.RetrievedChunk{Chunk: c.Chunk, Score: c.Score})
	}
	return out
}

func searchDimensionError(got, want int) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeStoreReadFailed, "query vector does not match index",
		fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, got, want))
}
