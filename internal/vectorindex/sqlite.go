package vectorindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Waqasabid99/agiAI/internal/domain"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLite is a single-file vector index. Vectors are stored as JSON and scored in Go.
// The records table and its metadata table are created by the first successful Upsert.
type SQLite struct {
	db        *sql.DB
	table     string
	metaTable string
	batchSize int
}

// OpenSQLite opens (or creates) the database file at path.
func OpenSQLite(ctx context.Context, path, table string, batchSize int) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite index: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite index: %w", err)
	}

	idx, err := NewSQLite(db, table, batchSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

// NewSQLite wraps an open database handle.
func NewSQLite(db *sql.DB, table string, batchSize int) (*SQLite, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SQLite{
		db:        db,
		table:     table,
		metaTable: table + "_meta",
		batchSize: batchSize,
	}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	return UpsertInBatches(ctx, records, s.batchSize, s.writeBatch)
}

func (s *SQLite) writeBatch(ctx context.Context, batch []domain.VectorRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.createTables(ctx, tx); err != nil {
		return err
	}

	current, err := s.dimension(ctx, tx)
	if err != nil {
		return err
	}
	dim, err := CheckBatch(batch, current)
	if err != nil {
		return err
	}
	if current == 0 {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s(key, value) VALUES('dimension', ?)`, s.metaTable),
			strconv.Itoa(dim),
		); err != nil {
			return fmt.Errorf("failed to record index dimension: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s(id, source_url, source_title, chunk_index, text, created_at, vector)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_url = excluded.source_url,
			source_title = excluded.source_title,
			chunk_index = excluded.chunk_index,
			text = excluded.text,
			created_at = excluded.created_at,
			vector = excluded.vector
	`, s.table))
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range batch {
		vecJSON, err := json.Marshal(r.Vector)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID,
			r.Chunk.SourceURL,
			r.Chunk.SourceTitle,
			r.Chunk.ChunkIndex,
			r.Chunk.Text,
			r.Chunk.CreatedAt.UTC().Format(time.RFC3339Nano),
			string(vecJSON),
		); err != nil {
			return fmt.Errorf("failed to upsert record %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLite) Search(ctx context.Context, query []float32, topK int) ([]domain.RetrievedChunk, error) {
	if topK < 1 {
		return nil, ErrInvalidTopK
	}

	exists, err := s.exists(ctx)
	if err != nil {
		return nil, readError(err)
	}
	if !exists {
		return []domain.RetrievedChunk{}, nil
	}

	dim, err := s.dimension(ctx, s.db)
	if err != nil {
		return nil, readError(err)
	}
	if dim != 0 && len(query) != dim {
		return nil, searchDimensionError(len(query), dim)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT seq, source_url, source_title, chunk_index, text, created_at, vector FROM %s`, s.table))
	if err != nil {
		return nil, readError(err)
	}
	defer rows.Close()

	candidates := make([]Candidate, 0, topK*4)
	for rows.Next() {
		var (
			c         Candidate
			createdAt string
			vecJSON   string
		)
		if err := rows.Scan(&c.Seq, &c.Chunk.SourceURL, &c.Chunk.SourceTitle, &c.Chunk.ChunkIndex,
			&c.Chunk.Text, &createdAt, &vecJSON); err != nil {
			return nil, readError(err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(vecJSON), &vec); err != nil {
			return nil, readError(fmt.Errorf("corrupt vector at seq %d: %w", c.Seq, err))
		}
		c.Chunk.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		c.Score = CosineSimilarity(query, vec)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, readError(err)
	}

	return RankByScore(candidates, topK), nil
}

func (s *SQLite) DeleteBySource(ctx context.Context, sourceURL string) error {
	exists, err := s.exists(ctx)
	if err != nil || !exists {
		return err
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE source_url = ?`, s.table), sourceURL)
	return err
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	exists, err := s.exists(ctx)
	if err != nil {
		return 0, readError(err)
	}
	if !exists {
		return 0, nil
	}
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, readError(err)
	}
	return n, nil
}

// Clear drops both tables; the next Upsert recreates them.
func (s *SQLite) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range []string{s.table, s.metaTable} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, t)); err != nil {
			return fmt.Errorf("failed to drop %s: %w", t, err)
		}
	}
	return tx.Commit()
}

type sqlQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLite) createTables(ctx context.Context, tx sqlExecer) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			source_url TEXT NOT NULL,
			source_title TEXT NOT NULL DEFAULT '',
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			created_at TEXT NOT NULL,
			vector TEXT NOT NULL
		)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_source_url ON %s(source_url)`, s.table, s.table),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value TEXT NOT NULL)`, s.metaTable),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index tables: %w", err)
		}
	}
	return nil
}

// dimension returns 0 when no dimension has been recorded yet.
func (s *SQLite) dimension(ctx context.Context, q sqlQueryer) (int, error) {
	var value string
	err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = 'dimension'`, s.metaTable)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read index dimension: %w", err)
	}
	return strconv.Atoi(value)
}

func (s *SQLite) exists(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, s.table).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func readError(err error) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeStoreReadFailed, "sqlite index read failed", err)
}
