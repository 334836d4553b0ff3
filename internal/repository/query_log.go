package repository

import (
	"context"
	"time"

	"github.com/Waqasabid99/agiAI/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryLogRepository stores one row per answered question. Question text is not kept.
type QueryLogRepository struct {
	db dbtx
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{db: pool}
}

func (r *QueryLogRepository) CreateQueryLog(ctx context.Context, entry service.QueryLogEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var topScore *float32
	if entry.ResultCount > 0 {
		topScore = &entry.TopScore
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO query_logs (question_chars, result_count, top_score, fallback, cached, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.QuestionChars,
		entry.ResultCount,
		topScore,
		entry.Fallback,
		entry.Cached,
		entry.DurationMs,
		createdAt,
	)
	return err
}

func (r *QueryLogRepository) Summary(ctx context.Context, since time.Time) (*service.QueryLogSummary, error) {
	s := service.QueryLogSummary{Since: since}
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE fallback),
		        COUNT(*) FILTER (WHERE cached),
		        COALESCE(AVG(duration_ms), 0)::float8,
		        COALESCE(AVG(top_score), 0)::float8
		 FROM query_logs
		 WHERE created_at >= $1`,
		since,
	).Scan(&s.Total, &s.Fallbacks, &s.CacheHits, &s.AvgDuration, &s.AvgTopScore)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
