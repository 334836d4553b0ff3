package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/Waqasabid99/agiAI/internal/telemetry"
)

// RetrievalConfig tunes ingestion and query behaviour.
type RetrievalConfig struct {
	Chunk           ChunkConfig
	TopK            int
	HistoryMessages int
	// EmbeddingRate caps embedding requests per second during ingestion; 0 disables the throttle.
	EmbeddingRate float64
	CrawlMaxPages int
	Backend       string
}

// DefaultRetrievalConfig provides sane defaults for retrieval.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Chunk:           DefaultChunkConfig(),
		TopK:            5,
		HistoryMessages: 6,
		CrawlMaxPages:   20,
	}
}

// RetrievalService turns page text into indexed chunks and questions into grounded answers.
type RetrievalService struct {
	embedder  *throttledEmbedder
	generator GenerationClient
	index     VectorIndex
	scraper   PageScraper
	crawler   SiteCrawler
	archive   PageArchive
	cache     AnswerCache
	queryLogs QueryLogRepository
	publisher IngestPublisher
	uuidGen   UUIDGenerator
	cfg       RetrievalConfig
	now       func() time.Time
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(
	embedder EmbeddingClient,
	generator GenerationClient,
	index VectorIndex,
	cfg RetrievalConfig,
) *RetrievalService {
	defaults := DefaultRetrievalConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = defaults.TopK
	}
	if cfg.HistoryMessages < 0 {
		cfg.HistoryMessages = 0
	}
	if cfg.CrawlMaxPages <= 0 {
		cfg.CrawlMaxPages = defaults.CrawlMaxPages
	}
	cfg.Chunk = cfg.Chunk.normalized()

	return &RetrievalService{
		embedder:  newThrottledEmbedder(embedder, cfg.EmbeddingRate),
		generator: generator,
		index:     index,
		uuidGen:   &DefaultUUIDGenerator{},
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithScraper enables URL ingestion and site crawling.
func (s *RetrievalService) WithScraper(scraper PageScraper, crawler SiteCrawler) *RetrievalService {
	s.scraper = scraper
	s.crawler = crawler
	return s
}

// WithArchive keeps scraped pages for later re-indexing.
func (s *RetrievalService) WithArchive(archive PageArchive) *RetrievalService {
	s.archive = archive
	return s
}

// WithAnswerCache enables answer caching for history-free questions.
func (s *RetrievalService) WithAnswerCache(cache AnswerCache) *RetrievalService {
	s.cache = cache
	return s
}

// WithQueryLog records every answered question.
func (s *RetrievalService) WithQueryLog(repo QueryLogRepository) *RetrievalService {
	s.queryLogs = repo
	return s
}

// WithPublisher enables async ingestion.
func (s *RetrievalService) WithPublisher(publisher IngestPublisher) *RetrievalService {
	s.publisher = publisher
	return s
}

// WithUUIDGen replaces the ingestion token generator (for testing)
func (s *RetrievalService) WithUUIDGen(gen UUIDGenerator) *RetrievalService {
	s.uuidGen = gen
	return s
}

// IngestInput is one document to chunk, embed and index.
type IngestInput struct {
	SourceURL   string
	SourceTitle string
	Text        string
	// Replace removes the source's existing records first.
	Replace bool
}

// IngestResult reports how much of a document reached the index.
// On a partial failure it is returned together with the error.
type IngestResult struct {
	SourceURL    string `json:"source_url"`
	ChunksStored int    `json:"chunks_stored"`
	ChunksTotal  int    `json:"chunks_total"`
}

// Ingest chunks the text, embeds each chunk in order and upserts the records.
// If an embedding request fails, the chunks embedded so far are still stored and
// the result is returned alongside an EMBEDDING_UNAVAILABLE error. With Replace,
// the source's existing records are deleted only once every chunk is embedded;
// a failed embedding leaves them in place and stores nothing.
func (s *RetrievalService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Ingest", telemetry.SpanAttributes{
		SourceURL: input.SourceURL,
		Backend:   s.cfg.Backend,
		Operation: "ingest",
	})
	defer span.End()

	sourceURL := strings.TrimSpace(input.SourceURL)
	if sourceURL == "" {
		return nil, fmt.Errorf("%w: source_url", domain.ErrMissingRequiredField)
	}

	chunks := ChunkText(input.Text, s.cfg.Chunk)
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyText
	}

	token := s.uuidGen.NewString()
	createdAt := s.now().UTC()
	title := strings.TrimSpace(input.SourceTitle)

	records := make([]domain.VectorRecord, 0, len(chunks))
	var embedErr error
	for i, text := range chunks {
		if err := ctx.Err(); err != nil {
			return &IngestResult{SourceURL: sourceURL, ChunksTotal: len(chunks)}, err
		}
		vec, err := s.embedder.embed(ctx, text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return &IngestResult{SourceURL: sourceURL, ChunksTotal: len(chunks)}, ctxErr
			}
			embedErr = err
			break
		}
		records = append(records, domain.VectorRecord{
			ID:     domain.RecordID(token, i),
			Vector: vec,
			Chunk:  domain.NewChunk(text, sourceURL, title, i, createdAt),
		})
	}

	result := &IngestResult{SourceURL: sourceURL, ChunksTotal: len(chunks)}
	if input.Replace {
		// the old records stay until the whole replacement is embedded
		if embedErr != nil {
			span.SetError(embedErr)
			log.Printf("ingest: %s: embedding stopped after %d/%d chunks, keeping existing records: %v", sourceURL, len(records), len(chunks), embedErr)
			return result, embedErr
		}
		if err := s.index.DeleteBySource(ctx, sourceURL); err != nil {
			span.SetError(err)
			return result, asStoreError(err, domain.ErrCodeStoreWriteFailed, "failed to replace source")
		}
	}
	if len(records) > 0 {
		err := s.index.Upsert(ctx, records)
		if err != nil {
			committed, _ := domain.CommittedCount(err)
			result.ChunksStored = committed
			if committed > 0 {
				s.invalidateCache(ctx)
			}
			span.SetError(err)
			log.Printf("ingest: %s: upsert failed after %d/%d records: %v", sourceURL, committed, len(records), err)
			return result, asStoreError(err, domain.ErrCodeStoreWriteFailed, "failed to upsert records")
		}
		result.ChunksStored = len(records)
		s.invalidateCache(ctx)
	}

	span.SetData("chunks_stored", result.ChunksStored)
	if embedErr != nil {
		span.SetError(embedErr)
		log.Printf("ingest: %s: embedding stopped after %d/%d chunks: %v", sourceURL, result.ChunksStored, len(chunks), embedErr)
		return result, embedErr
	}

	telemetry.AddBreadcrumb(ctx, "ingest", fmt.Sprintf("stored %d chunks for %s", result.ChunksStored, sourceURL))
	return result, nil
}

// AskInput is a question plus the conversation that led to it.
type AskInput struct {
	Question string
	History  []domain.ChatMessage
}

// Answer retrieves the most similar chunks and asks the generator for an answer
// grounded in them. With nothing retrieved it returns FallbackAnswer without
// calling the generator.
func (s *RetrievalService) Answer(ctx context.Context, input AskInput) (*domain.QueryResult, error) {
	start := s.now()
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Answer", telemetry.SpanAttributes{
		Backend:   s.cfg.Backend,
		Operation: "answer",
		TopK:      s.cfg.TopK,
	})
	defer span.End()

	history := lastMessages(input.History, s.cfg.HistoryMessages)
	cacheable := s.cache != nil && len(history) == 0
	if cacheable {
		cached, ok, err := s.cache.Get(ctx, question)
		if err != nil {
			log.Printf("answer cache: get failed: %v", err)
		} else if ok {
			span.SetData("cache", "hit")
			s.logQuery(ctx, question, cached, true, start)
			return cached, nil
		}
	}

	vec, err := s.embedder.embed(ctx, question)
	if err != nil {
		// a caller that gave up is not a provider outage
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		span.SetError(err)
		return nil, err
	}

	retrieved, err := s.index.Search(ctx, vec, s.cfg.TopK)
	if err != nil {
		span.SetError(err)
		return nil, asStoreError(err, domain.ErrCodeStoreReadFailed, "failed to search index")
	}
	span.SetData("retrieved", len(retrieved))

	if len(retrieved) == 0 {
		result := &domain.QueryResult{
			Answer:   FallbackAnswer,
			Sources:  []domain.Source{},
			Fallback: true,
		}
		s.logQuery(ctx, question, result, false, start)
		return result, nil
	}

	userPrompt := buildUserPrompt(buildContext(retrieved), history, question)
	answer, err := s.generator.Generate(ctx, SystemPrompt, userPrompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if domain.CodeOf(err) == "" {
			err = domain.NewDomainErrorWithCause(domain.ErrCodeGenerationUnavailable, "failed to generate answer", err)
		}
		span.SetError(err)
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		err := domain.NewDomainError(domain.ErrCodeGenerationUnavailable, "provider returned an empty completion")
		span.SetError(err)
		return nil, err
	}

	result := &domain.QueryResult{
		Answer:  answer,
		Sources: domain.SourcesFrom(retrieved),
	}

	if cacheable {
		if err := s.cache.Set(ctx, question, result); err != nil {
			log.Printf("answer cache: set failed: %v", err)
		}
	}
	s.logQuery(ctx, question, result, false, start)
	return result, nil
}

// statsWindow is how far back Stats summarizes query logs.
const statsWindow = 24 * time.Hour

// IndexStats describes the vector index.
type IndexStats struct {
	RecordCount int              `json:"record_count"`
	Backend     string           `json:"backend"`
	Queries     *QueryLogSummary `json:"queries,omitempty"`
}

// Stats reports the number of stored records.
func (s *RetrievalService) Stats(ctx context.Context) (*IndexStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Stats", telemetry.SpanAttributes{
		Backend:   s.cfg.Backend,
		Operation: "stats",
	})
	defer span.End()

	n, err := s.index.Count(ctx)
	if err != nil {
		span.SetError(err)
		return nil, asStoreError(err, domain.ErrCodeStoreReadFailed, "failed to count records")
	}
	stats := &IndexStats{RecordCount: n, Backend: s.cfg.Backend}

	if s.queryLogs != nil {
		summary, err := s.queryLogs.Summary(ctx, s.now().UTC().Add(-statsWindow))
		if err != nil {
			log.Printf("query log: summary failed: %v", err)
		} else {
			stats.Queries = summary
		}
	}
	return stats, nil
}

// ClearAll drops the index. The next ingestion recreates it.
func (s *RetrievalService) ClearAll(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.ClearAll", telemetry.SpanAttributes{
		Backend:   s.cfg.Backend,
		Operation: "clear",
	})
	defer span.End()

	if err := s.index.Clear(ctx); err != nil {
		span.SetError(err)
		return asStoreError(err, domain.ErrCodeStoreWriteFailed, "failed to clear index")
	}
	s.invalidateCache(ctx)
	log.Printf("index: cleared (%s)", s.cfg.Backend)
	return nil
}

// DeleteSource removes every record scraped from sourceURL. Unknown sources are a no-op.
func (s *RetrievalService) DeleteSource(ctx context.Context, sourceURL string) error {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.DeleteSource", telemetry.SpanAttributes{
		SourceURL: sourceURL,
		Backend:   s.cfg.Backend,
		Operation: "delete_source",
	})
	defer span.End()

	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return fmt.Errorf("%w: url", domain.ErrMissingRequiredField)
	}
	if err := s.index.DeleteBySource(ctx, sourceURL); err != nil {
		span.SetError(err)
		return asStoreError(err, domain.ErrCodeStoreWriteFailed, "failed to delete source")
	}
	if s.archive != nil {
		if err := s.archive.Delete(ctx, sourceURL); err != nil {
			log.Printf("archive: delete %s: %v", sourceURL, err)
		}
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *RetrievalService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("answer cache: invalidate failed: %v", err)
	}
}

func (s *RetrievalService) logQuery(ctx context.Context, question string, result *domain.QueryResult, cached bool, start time.Time) {
	if s.queryLogs == nil {
		return
	}
	entry := QueryLogEntry{
		QuestionChars: len([]rune(question)),
		ResultCount:   len(result.Sources),
		Fallback:      result.Fallback,
		Cached:        cached,
		DurationMs:    int(s.now().Sub(start).Milliseconds()),
		CreatedAt:     s.now().UTC(),
	}
	if len(result.Sources) > 0 {
		entry.TopScore = result.Sources[0].Score
	}
	if err := s.queryLogs.CreateQueryLog(ctx, entry); err != nil {
		log.Printf("query log: %v", err)
	}
}

// asStoreError keeps domain errors as they are and wraps anything else under code.
func asStoreError(err error, code, message string) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.NewDomainErrorWithCause(code, message, err)
}
