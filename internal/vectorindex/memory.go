package vectorindex

import (
	"context"
	"sync"

	"github.com/Waqasabid99/agiAI/internal/domain"
)

type memoryEntry struct {
	record domain.VectorRecord
	seq    int64
}

// Memory is a process-local vector index scored by brute-force cosine similarity.
// Its contents are lost on restart.
type Memory struct {
	mu        sync.RWMutex
	batchSize int
	created   bool
	dimension int
	entries   []memoryEntry
	byID      map[string]int
	nextSeq   int64
}

// NewMemory returns an empty, not yet created in-memory index.
func NewMemory(batchSize int) *Memory {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Memory{batchSize: batchSize}
}

func (m *Memory) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	return UpsertInBatches(ctx, records, m.batchSize, m.writeBatch)
}

func (m *Memory) writeBatch(_ context.Context, batch []domain.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dim, err := CheckBatch(batch, m.dimension)
	if err != nil {
		return err
	}

	if !m.created {
		m.created = true
		m.dimension = dim
		m.byID = make(map[string]int)
	}
	for _, r := range batch {
		if i, ok := m.byID[r.ID]; ok {
			m.entries[i].record = r
			continue
		}
		m.byID[r.ID] = len(m.entries)
		m.entries = append(m.entries, memoryEntry{record: r, seq: m.nextSeq})
		m.nextSeq++
	}
	return nil
}

func (m *Memory) Search(_ context.Context, query []float32, topK int) ([]domain.RetrievedChunk, error) {
	if topK < 1 {
		return nil, ErrInvalidTopK
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.created {
		return []domain.RetrievedChunk{}, nil
	}
	if len(query) != m.dimension {
		return nil, searchDimensionError(len(query), m.dimension)
	}

	candidates := make([]Candidate, 0, len(m.entries))
	for _, e := range m.entries {
		candidates = append(candidates, Candidate{
			Chunk: e.record.Chunk,
			Score: CosineSimilarity(query, e.record.Vector),
			Seq:   e.seq,
		})
	}
	return RankByScore(candidates, topK), nil
}

func (m *Memory) DeleteBySource(_ context.Context, sourceURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.created {
		return nil
	}
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.record.Chunk.SourceURL != sourceURL {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	m.byID = make(map[string]int, len(kept))
	for i, e := range kept {
		m.byID[e.record.ID] = i
	}
	return nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Clear drops the index; the next Upsert recreates it with a new dimension.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.created = false
	m.dimension = 0
	m.entries = nil
	m.byID = nil
	return nil
}

// Dimension reports the index dimension and whether the index exists.
func (m *Memory) Dimension() (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dimension, m.created
}
