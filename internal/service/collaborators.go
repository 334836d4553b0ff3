package service

import (
	"context"
	"time"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/google/uuid"
)

// PageScraper fetches a URL and flattens it to title and text.
// Failures are SCRAPE_FAILED domain errors.
type PageScraper interface {
	Scrape(ctx context.Context, url string, renderDynamic bool) (*domain.Page, error)
}

// SiteCrawler walks same-host links breadth first from startURL.
type SiteCrawler interface {
	Crawl(ctx context.Context, startURL string, maxPages int) ([]*domain.Page, error)
}

// PageArchive keeps the raw scraped pages so a source can be re-indexed without re-scraping.
type PageArchive interface {
	Put(ctx context.Context, page *domain.Page) error
	Get(ctx context.Context, url string) (*domain.Page, error)
	Delete(ctx context.Context, url string) error
}

// AnswerCache stores answers to history-free questions until the index changes.
type AnswerCache interface {
	Get(ctx context.Context, question string) (*domain.QueryResult, bool, error)
	Set(ctx context.Context, question string, result *domain.QueryResult) error
	Invalidate(ctx context.Context) error
}

// IngestPublisher hands ingestion jobs to a background consumer.
type IngestPublisher interface {
	PublishIngestJob(ctx context.Context, job *domain.IngestJob) error
}

// QueryLogEntry captures one answered question.
type QueryLogEntry struct {
	QuestionChars int
	ResultCount   int
	TopScore      float32
	Fallback      bool
	Cached        bool
	DurationMs    int
	CreatedAt     time.Time
}

// QueryLogSummary aggregates query logs since a point in time.
type QueryLogSummary struct {
	Since       time.Time `json:"since"`
	Total       int       `json:"total"`
	Fallbacks   int       `json:"fallbacks"`
	CacheHits   int       `json:"cache_hits"`
	AvgDuration float64   `json:"avg_duration_ms"`
	AvgTopScore float64   `json:"avg_top_score"`
}

// QueryLogRepository persists query logs.
type QueryLogRepository interface {
	CreateQueryLog(ctx context.Context, entry QueryLogEntry) error
	Summary(ctx context.Context, since time.Time) (*QueryLogSummary, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}
