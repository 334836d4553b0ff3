package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/Waqasabid99/agiAI/internal/cache"
	"github.com/Waqasabid99/agiAI/internal/config"
	"github.com/Waqasabid99/agiAI/internal/database"
	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/Waqasabid99/agiAI/internal/openai"
	"github.com/Waqasabid99/agiAI/internal/queue"
	"github.com/Waqasabid99/agiAI/internal/repository"
	"github.com/Waqasabid99/agiAI/internal/scraper"
	"github.com/Waqasabid99/agiAI/internal/service"
	"github.com/Waqasabid99/agiAI/internal/storage"
	"github.com/Waqasabid99/agiAI/internal/vectorindex"
	amqp "github.com/rabbitmq/amqp091-go"
	goopenai "github.com/sashabaranov/go-openai"
)

// app holds the retrieval service and everything it was built from.
// close releases connections in reverse order of creation.
type app struct {
	cfg     *config.Config
	svc     *service.RetrievalService
	amqp    *amqp.Connection
	closers []func()
}

const migrationsDir = "migrations"

type appOptions struct {
	migrate   bool
	withQueue bool
	// queryLog needs the migrated query_logs table
	queryLog bool
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires the configured index backend and the optional archive, cache
// and queue around a RetrievalService.
func buildApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	var (
		index     service.VectorIndex
		queryLogs service.QueryLogRepository
	)
	switch cfg.IndexBackend {
	case config.BackendPostgres:
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, ConnectAttempts: 5})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		log.Println("connected to database")

		if opts.migrate {
			version, err := database.Migrate(cfg.DatabaseURL, migrationsDir)
			if err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Printf("migrations: database at version %d", version)
		}

		pgIndex, err := repository.NewVectorIndex(pool, cfg.IndexTable, cfg.UpsertBatchSize)
		if err != nil {
			return nil, err
		}
		index = pgIndex
		queryLogs = repository.NewQueryLogRepository(pool)
	case config.BackendSQLite:
		sqliteIndex, err := vectorindex.OpenSQLite(ctx, cfg.SQLitePath, cfg.IndexTable, cfg.UpsertBatchSize)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = sqliteIndex.Close() })
		log.Printf("sqlite index at %s", cfg.SQLitePath)
		index = sqliteIndex
	default:
		index = vectorindex.NewMemory(cfg.UpsertBatchSize)
		log.Println("using in-memory index (records are lost on exit)")
	}

	var embedder service.EmbeddingClient = disabledEmbedder{}
	if cfg.HasOpenAI() {
		embedder = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			Timeout:             cfg.EmbeddingTimeout,
		})
	} else {
		log.Println("AGIAI_OPENAI_API_KEY not set: ingestion and questions are disabled")
	}

	var generator service.GenerationClient = disabledGenerator{}
	if cfg.HasGeneration() {
		generator = openai.NewChatClient(openai.ChatConfig{
			APIKey:      cfg.GenerationKey(),
			BaseURL:     cfg.GenerationBaseURL,
			Model:       cfg.GenerationModel,
			Temperature: &cfg.GenerationTemperature,
			MaxTokens:   cfg.GenerationMaxTokens,
			Timeout:     cfg.GenerationTimeout,
		})
	}

	svc := service.NewRetrievalService(embedder, generator, index, service.RetrievalConfig{
		Chunk: service.ChunkConfig{
			TargetTokens:  cfg.ChunkTargetTokens,
			OverlapTokens: cfg.ChunkOverlapTokens,
		},
		TopK:            cfg.TopK,
		HistoryMessages: cfg.HistoryMessages,
		EmbeddingRate:   cfg.EmbeddingRate,
		CrawlMaxPages:   cfg.CrawlMaxPages,
		Backend:         cfg.IndexBackend,
	})

	pageScraper := scraper.New(scraper.Config{
		Timeout:   cfg.ScrapeTimeout,
		UserAgent: cfg.UserAgent,
	})
	svc.WithScraper(pageScraper, scraper.NewCrawler(pageScraper, cfg.CrawlMinTextChars))

	if opts.queryLog && queryLogs != nil {
		svc.WithQueryLog(queryLogs)
	}

	if cfg.HasS3() {
		archive, err := storage.NewPageArchive(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		svc.WithArchive(archive)
	}

	if cfg.HasRedis() {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		svc.WithAnswerCache(cache.NewAnswerCache(client, cache.DefaultKeyPrefix, cfg.AnswerCacheTTL))
		log.Println("answer cache enabled")
	}

	if opts.withQueue && cfg.HasQueue() {
		conn, err := queue.Dial(ctx, cfg.AMQPURL)
		if err != nil {
			return nil, err
		}
		a.amqp = conn
		a.closers = append(a.closers, func() { _ = conn.Close() })
		svc.WithPublisher(queue.NewPublisher(conn, cfg.IngestQueue))
		log.Printf("ingest queue '%s' ready", cfg.IngestQueue)
	}

	a.svc = svc
	ok = true
	return a, nil
}

// disabledEmbedder stands in when no embedding provider is configured.
type disabledEmbedder struct{}

func (disabledEmbedder) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("%w: embedding provider (set AGIAI_OPENAI_API_KEY)", domain.ErrFeatureDisabled)
}

type disabledGenerator struct{}

func (disabledGenerator) Generate(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("%w: generation provider (set AGIAI_GENERATION_API_KEY)", domain.ErrFeatureDisabled)
}
