package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockGenerationClient struct {
	mock.Mock
}

func (m *MockGenerationClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockVectorIndex) Search(ctx context.Context, query []float32, topK int) ([]domain.RetrievedChunk, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedChunk), args.Error(1)
}

func (m *MockVectorIndex) DeleteBySource(ctx context.Context, sourceURL string) error {
	args := m.Called(ctx, sourceURL)
	return args.Error(0)
}

func (m *MockVectorIndex) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockVectorIndex) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockAnswerCache struct {
	mock.Mock
}

func (m *MockAnswerCache) Get(ctx context.Context, question string) (*domain.QueryResult, bool, error) {
	args := m.Called(ctx, question)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.QueryResult), args.Bool(1), args.Error(2)
}

func (m *MockAnswerCache) Set(ctx context.Context, question string, result *domain.QueryResult) error {
	args := m.Called(ctx, question, result)
	return args.Error(0)
}

func (m *MockAnswerCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockQueryLogRepository struct {
	mock.Mock
}

func (m *MockQueryLogRepository) CreateQueryLog(ctx context.Context, entry QueryLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockQueryLogRepository) Summary(ctx context.Context, since time.Time) (*QueryLogSummary, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*QueryLogSummary), args.Error(1)
}

type MockPageScraper struct {
	mock.Mock
}

func (m *MockPageScraper) Scrape(ctx context.Context, url string, renderDynamic bool) (*domain.Page, error) {
	args := m.Called(ctx, url, renderDynamic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Page), args.Error(1)
}

type MockSiteCrawler struct {
	mock.Mock
}

func (m *MockSiteCrawler) Crawl(ctx context.Context, startURL string, maxPages int) ([]*domain.Page, error) {
	args := m.Called(ctx, startURL, maxPages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Page), args.Error(1)
}

type MockPageArchive struct {
	mock.Mock
}

func (m *MockPageArchive) Put(ctx context.Context, page *domain.Page) error {
	args := m.Called(ctx, page)
	return args.Error(0)
}

func (m *MockPageArchive) Get(ctx context.Context, url string) (*domain.Page, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Page), args.Error(1)
}

func (m *MockPageArchive) Delete(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

type MockIngestPublisher struct {
	mock.Mock
}

func (m *MockIngestPublisher) PublishIngestJob(ctx context.Context, job *domain.IngestJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// sequenceUUIDGen returns tok-1, tok-2, ...
type sequenceUUIDGen struct {
	n int
}

func (g *sequenceUUIDGen) NewString() string {
	g.n++
	return fmt.Sprintf("tok-%d", g.n)
}

// keywordEmbedder maps text onto fixed keyword axes so similarity is predictable.
type keywordEmbedder struct {
	keywords []string
	calls    int
	failAt   int // 1-based call number that fails; 0 never
}

func newKeywordEmbedder(keywords ...string) *keywordEmbedder {
	return &keywordEmbedder{keywords: keywords}
}

func (e *keywordEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.failAt > 0 && e.calls >= e.failAt {
		return nil, fmt.Errorf("provider down")
	}
	vec := make([]float32, len(e.keywords)+1)
	for i, kw := range e.keywords {
		if strings.Contains(strings.ToLower(text), kw) {
			vec[i] = 1
		}
	}
	// bias axis keeps every vector non-zero
	vec[len(e.keywords)] = 0.1
	return vec, nil
}

func newTestService(embedder EmbeddingClient, generator GenerationClient, index VectorIndex) *RetrievalService {
	svc := NewRetrievalService(embedder, generator, index, RetrievalConfig{
		Chunk:           ChunkConfig{TargetTokens: 20, OverlapTokens: 4},
		TopK:            3,
		HistoryMessages: 2,
		Backend:         "memory",
	})
	svc.WithUUIDGen(&sequenceUUIDGen{})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}
