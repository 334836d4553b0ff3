package server

import (
	"net/http"

	"github.com/Waqasabid99/agiAI/internal/api"
	"github.com/Waqasabid99/agiAI/internal/api/handlers"
	"github.com/Waqasabid99/agiAI/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	IngestHandler *handlers.IngestHandler
	QueryHandler  *handlers.QueryHandler
	IndexHandler  *handlers.IndexHandler
	// AdminToken protects ingestion and index mutation; empty leaves them open.
	AdminToken   string
	CORSOrigins  []string
	MaxBodyBytes int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 5 * 1024 * 1024
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "online"})
	})
	r.Get("/health", cfg.IndexHandler.Health)
	r.Get("/stats", cfg.IndexHandler.Stats)

	r.Post("/query", cfg.QueryHandler.Query)
	r.Post("/getMsg", cfg.QueryHandler.GetMsg)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminToken(cfg.AdminToken))

		r.Post("/ingest", cfg.IngestHandler.Ingest)
		r.Post("/ingest/url", cfg.IngestHandler.IngestURL)
		r.Post("/crawl", cfg.IngestHandler.Crawl)
		r.Post("/reindex", cfg.IngestHandler.Reindex)

		r.Delete("/index", cfg.IndexHandler.Clear)
		r.Delete("/sources", cfg.IndexHandler.DeleteSource)
	})

	return r
}
