package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/Waqasabid99/agiAI/internal/vectorindex"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// hnswMaxDimensions is the largest vector pgvector can build an HNSW index over.
const hnswMaxDimensions = 2000

// VectorIndex stores chunk embeddings in a pgvector table. The table does not
// exist until the first successful Upsert, which sizes its vector column from
// the first record; Clear drops it again.
type VectorIndex struct {
	pool      *pgxpool.Pool
	table     string
	batchSize int
}

func NewVectorIndex(pool *pgxpool.Pool, table string, batchSize int) (*VectorIndex, error) {
	if err := vectorindex.ValidateTableName(table); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = vectorindex.DefaultBatchSize
	}
	return &VectorIndex{pool: pool, table: table, batchSize: batchSize}, nil
}

func (r *VectorIndex) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	return vectorindex.UpsertInBatches(ctx, records, r.batchSize, r.writeBatch)
}

// writeBatch commits one batch in its own transaction.
func (r *VectorIndex) writeBatch(ctx context.Context, batch []domain.VectorRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// serializes lazy creation between concurrent ingestions
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, r.table); err != nil {
		return err
	}

	current, err := r.dimension(ctx, tx)
	if err != nil {
		return err
	}
	dim, err := vectorindex.CheckBatch(batch, current)
	if err != nil {
		return err
	}
	if current == 0 {
		if err := r.create(ctx, tx, dim); err != nil {
			return err
		}
	}

	b := &pgx.Batch{}
	for _, rec := range batch {
		b.Queue(fmt.Sprintf(`
			INSERT INTO %s (id, source_url, source_title, chunk_index, text, created_at, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				source_url = EXCLUDED.source_url,
				source_title = EXCLUDED.source_title,
				chunk_index = EXCLUDED.chunk_index,
				text = EXCLUDED.text,
				created_at = EXCLUDED.created_at,
				embedding = EXCLUDED.embedding`, r.table),
			rec.ID,
			rec.Chunk.SourceURL,
			rec.Chunk.SourceTitle,
			rec.Chunk.ChunkIndex,
			rec.Chunk.Text,
			rec.Chunk.CreatedAt.UTC(),
			pgvector.NewVector(rec.Vector),
		)
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("failed to insert records: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *VectorIndex) create(ctx context.Context, tx pgx.Tx, dim int) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			source_url TEXT NOT NULL,
			source_title TEXT NOT NULL DEFAULT '',
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			embedding vector(%d) NOT NULL
		)`, r.table, dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_source_url ON %s (source_url)`, r.table, r.table),
	}
	if dim <= hnswMaxDimensions {
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING hnsw (embedding vector_cosine_ops)`, r.table, r.table))
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index table: %w", err)
		}
	}
	return nil
}

// dimension reads the vector column size from the catalog; 0 means the table does not exist.
func (r *VectorIndex) dimension(ctx context.Context, db dbtx) (int, error) {
	var dim int
	err := db.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute
		 WHERE attrelid = to_regclass($1) AND attname = 'embedding' AND NOT attisdropped`,
		r.table,
	).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read index dimension: %w", err)
	}
	return dim, nil
}

func (r *VectorIndex) Search(ctx context.Context, query []float32, topK int) ([]domain.RetrievedChunk, error) {
	if topK < 1 {
		return nil, vectorindex.ErrInvalidTopK
	}

	dim, err := r.dimension(ctx, r.pool)
	if err != nil {
		return nil, readError(err)
	}
	if dim == 0 {
		return []domain.RetrievedChunk{}, nil
	}
	if len(query) != dim {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStoreReadFailed, "query vector does not match index",
			fmt.Errorf("%w: query has %d dimensions, index has %d", vectorindex.ErrDimensionMismatch, len(query), dim))
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT source_url, source_title, chunk_index, text, created_at,
		       1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, seq
		LIMIT $2`, r.table),
		pgvector.NewVector(query),
		topK,
	)
	if err != nil {
		if isUndefinedTable(err) {
			return []domain.RetrievedChunk{}, nil
		}
		return nil, readError(err)
	}
	defer rows.Close()

	results := make([]domain.RetrievedChunk, 0, topK)
	for rows.Next() {
		var (
			rc    domain.RetrievedChunk
			score float64
		)
		if err := rows.Scan(
			&rc.Chunk.SourceURL,
			&rc.Chunk.SourceTitle,
			&rc.Chunk.ChunkIndex,
			&rc.Chunk.Text,
			&rc.Chunk.CreatedAt,
			&score,
		); err != nil {
			return nil, readError(err)
		}
		rc.Score = float32(score)
		results = append(results, rc)
	}
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return []domain.RetrievedChunk{}, nil
		}
		return nil, readError(err)
	}

	return results, nil
}

func (r *VectorIndex) DeleteBySource(ctx context.Context, sourceURL string) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE source_url = $1`, r.table), sourceURL)
	if err != nil && !isUndefinedTable(err) {
		return domain.NewDomainErrorWithCause(domain.ErrCodeStoreWriteFailed, "failed to delete source", err)
	}
	return nil
}

func (r *VectorIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)).Scan(&n)
	if err != nil {
		if isUndefinedTable(err) {
			return 0, nil
		}
		return 0, readError(err)
	}
	return n, nil
}

// Clear drops the table; the next Upsert recreates it.
func (r *VectorIndex) Clear(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, r.table)); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeStoreWriteFailed, "failed to drop index", err)
	}
	return nil
}

func readError(err error) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeStoreReadFailed, "pgvector index read failed", err)
}
