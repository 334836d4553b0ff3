package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Waqasabid99/agiAI/internal/api/handlers"
	"github.com/Waqasabid99/agiAI/internal/config"
	"github.com/Waqasabid99/agiAI/internal/jobs"
	"github.com/Waqasabid99/agiAI/internal/queue"
	"github.com/Waqasabid99/agiAI/internal/server"
	"github.com/Waqasabid99/agiAI/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the agiai API server and, when AGIAI_AMQP_URL is set, the background ingest consumer",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Int("prefetch", 1, "Ingest jobs handled at once by the consumer")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if shutdownTelemetry := initTelemetry(cfg); shutdownTelemetry != nil {
		defer shutdownTelemetry()
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	a, err := buildApp(ctx, cfg, appOptions{migrate: !noMigrate, withQueue: true, queryLog: true})
	if err != nil {
		return err
	}
	defer a.close()

	var ingestWorker *jobs.Worker
	if a.amqp != nil {
		prefetch, _ := cmd.Flags().GetInt("prefetch")
		subscriber := queue.NewSubscriber(a.amqp, cfg.IngestQueue, prefetch)
		retry := queue.NewPublisher(a.amqp, cfg.IngestQueue)
		ingestWorker = jobs.NewWorker(subscriber, jobs.NewIngestWorker(a.svc, retry))
		if err := ingestWorker.Start(ctx); err != nil {
			return fmt.Errorf("failed to start ingest consumer: %w", err)
		}
		log.Println("ingest consumer started")
	}

	if cfg.SiteURL != "" {
		go crawlOnStartup(ctx, a, cfg.SiteURL, cfg.CrawlMaxPages)
	}

	router := server.NewRouter(server.RouterConfig{
		IngestHandler: handlers.NewIngestHandler(a.svc),
		QueryHandler:  handlers.NewQueryHandler(a.svc),
		IndexHandler:  handlers.NewIndexHandler(a.svc),
		AdminToken:    cfg.AdminToken,
		CORSOrigins:   cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s (index: %s)", cfg.Port, cfg.IndexBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if ingestWorker != nil {
		ingestWorker.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// crawlOnStartup indexes the configured site once the server is up. An index
// that already holds records is left alone.
func crawlOnStartup(ctx context.Context, a *app, siteURL string, maxPages int) {
	stats, err := a.svc.Stats(ctx)
	if err != nil {
		log.Printf("startup crawl: %v", err)
		return
	}
	if stats.RecordCount > 0 {
		log.Printf("startup crawl: index already holds %d records, skipping", stats.RecordCount)
		return
	}

	if a.amqp != nil {
		job, err := a.svc.EnqueueCrawl(ctx, siteURL, maxPages)
		if err != nil {
			log.Printf("startup crawl: %v", err)
			return
		}
		log.Printf("startup crawl: queued job %s for %s", job.ID, siteURL)
		return
	}

	result, err := a.svc.CrawlSite(ctx, siteURL, maxPages)
	if err != nil {
		log.Printf("startup crawl: %v", err)
		return
	}
	log.Printf("startup crawl: indexed %d pages (%d chunks) from %s", result.PagesIndexed, result.ChunksStored, siteURL)
}

// initTelemetry starts Sentry when a DSN is configured and returns its flush
// function, or nil when tracing stays off.
func initTelemetry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return nil
	}

	// Default to 10% sampling in production, 100% in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return nil
	}
	return shutdown
}
