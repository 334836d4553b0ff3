package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	// AdminToken protects ingestion and index mutation routes when set
	AdminToken  string   `envconfig:"ADMIN_TOKEN"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`

	IndexBackend    string `envconfig:"INDEX_BACKEND" default:"postgres"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	SQLitePath      string `envconfig:"SQLITE_PATH" default:"agiai.db"`
	IndexTable      string `envconfig:"INDEX_TABLE" default:"site_chunks"`
	UpsertBatchSize int    `envconfig:"UPSERT_BATCH_SIZE" default:"100"`

	OpenAIAPIKey        string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int           `envconfig:"EMBEDDING_DIMENSIONS" default:"0"`
	EmbeddingTimeout    time.Duration `envconfig:"EMBEDDING_TIMEOUT" default:"30s"`
	EmbeddingRate       float64       `envconfig:"EMBEDDING_RATE" default:"0"`

	GenerationAPIKey      string        `envconfig:"GENERATION_API_KEY"`
	GenerationBaseURL     string        `envconfig:"GENERATION_BASE_URL" default:"https://api.groq.com/openai/v1"`
	GenerationModel       string        `envconfig:"GENERATION_MODEL" default:"llama-3.3-70b-versatile"`
	GenerationTemperature float32       `envconfig:"GENERATION_TEMPERATURE" default:"0.7"`
	GenerationMaxTokens   int           `envconfig:"GENERATION_MAX_TOKENS" default:"1024"`
	GenerationTimeout     time.Duration `envconfig:"GENERATION_TIMEOUT" default:"60s"`

	ChunkTargetTokens  int `envconfig:"CHUNK_TARGET_TOKENS" default:"250"`
	ChunkOverlapTokens int `envconfig:"CHUNK_OVERLAP_TOKENS" default:"50"`
	TopK               int `envconfig:"TOP_K" default:"5"`
	HistoryMessages    int `envconfig:"HISTORY_MESSAGES" default:"6"`

	SiteURL           string        `envconfig:"SITE_URL"`
	CrawlMaxPages     int           `envconfig:"CRAWL_MAX_PAGES" default:"20"`
	CrawlMinTextChars int           `envconfig:"CRAWL_MIN_TEXT_CHARS" default:"100"`
	ScrapeTimeout     time.Duration `envconfig:"SCRAPE_TIMEOUT" default:"10s"`
	UserAgent         string        `envconfig:"USER_AGENT"`

	RedisURL       string        `envconfig:"REDIS_URL"`
	AnswerCacheTTL time.Duration `envconfig:"ANSWER_CACHE_TTL" default:"10m"`

	AMQPURL     string `envconfig:"AMQP_URL"`
	IngestQueue string `envconfig:"INGEST_QUEUE" default:"agiai.ingest"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"agiai-pages"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("AGIAI", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	cfg.IndexBackend = strings.ToLower(strings.TrimSpace(cfg.IndexBackend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks settings that depend on each other
func (c *Config) Validate() error {
	switch c.IndexBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("AGIAI_DATABASE_URL is required for the postgres index backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("AGIAI_SQLITE_PATH is required for the sqlite index backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown AGIAI_INDEX_BACKEND %q (want postgres, sqlite or memory)", c.IndexBackend)
	}

	if c.ChunkTargetTokens <= 0 {
		return fmt.Errorf("AGIAI_CHUNK_TARGET_TOKENS must be positive")
	}
	if c.ChunkOverlapTokens < 0 || c.ChunkOverlapTokens >= c.ChunkTargetTokens {
		return fmt.Errorf("AGIAI_CHUNK_OVERLAP_TOKENS must be in [0, CHUNK_TARGET_TOKENS)")
	}
	if c.TopK < 1 {
		return fmt.Errorf("AGIAI_TOP_K must be at least 1")
	}
	if c.EmbeddingDimensions < 0 {
		return fmt.Errorf("AGIAI_EMBEDDING_DIMENSIONS cannot be negative")
	}
	if c.GenerationTemperature < 0 || c.GenerationTemperature > 2 {
		return fmt.Errorf("AGIAI_GENERATION_TEMPERATURE must be in [0, 2]")
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// HasGeneration reports whether a chat provider key is set. The OpenAI key is
// used when no dedicated generation key is configured.
func (c *Config) HasGeneration() bool {
	return c.GenerationAPIKey != "" || c.OpenAIAPIKey != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

func (c *Config) HasQueue() bool {
	return c.AMQPURL != ""
}

// GenerationKey returns the key used for chat completions.
func (c *Config) GenerationKey() string {
	if c.GenerationAPIKey != "" {
		return c.GenerationAPIKey
	}
	return c.OpenAIAPIKey
}
