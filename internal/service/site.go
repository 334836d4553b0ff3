package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/Waqasabid99/agiAI/internal/telemetry"
)

// IngestURL scrapes one page, archives it when an archive is configured and
// replaces the page's records in the index.
func (s *RetrievalService) IngestURL(ctx context.Context, rawURL string, renderDynamic bool) (*IngestResult, error) {
	if s.scraper == nil {
		return nil, fmt.Errorf("%w: scraper", domain.ErrFeatureDisabled)
	}
	if err := domain.ValidateSourceURL(rawURL); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.IngestURL", telemetry.SpanAttributes{
		SourceURL: rawURL,
		Backend:   s.cfg.Backend,
		Operation: "ingest_url",
	})
	defer span.End()

	page, err := s.scraper.Scrape(ctx, strings.TrimSpace(rawURL), renderDynamic)
	if err != nil {
		span.SetError(err)
		if domain.CodeOf(err) == "" {
			err = domain.NewDomainErrorWithCause(domain.ErrCodeScrapeFailed, "failed to scrape "+rawURL, err)
		}
		return nil, err
	}

	s.archivePage(ctx, page)
	return s.ingestPage(ctx, page)
}

// PageResult is the outcome of indexing one crawled page.
type PageResult struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	ChunksStored int    `json:"chunks_stored"`
	Error        string `json:"error,omitempty"`
}

// CrawlResult summarizes a crawl-and-index run.
type CrawlResult struct {
	StartURL     string       `json:"start_url"`
	PagesCrawled int          `json:"pages_crawled"`
	PagesIndexed int          `json:"pages_indexed"`
	ChunksStored int          `json:"chunks_stored"`
	Pages        []PageResult `json:"pages"`
}

// CrawlSite crawls same-host pages from startURL and indexes each one, replacing
// earlier records of the same page. A page that fails to index is reported in the
// result and the run continues.
func (s *RetrievalService) CrawlSite(ctx context.Context, startURL string, maxPages int) (*CrawlResult, error) {
	if s.crawler == nil {
		return nil, fmt.Errorf("%w: crawler", domain.ErrFeatureDisabled)
	}
	if err := domain.ValidateSourceURL(startURL); err != nil {
		return nil, err
	}
	if maxPages <= 0 {
		maxPages = s.cfg.CrawlMaxPages
	}

	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.CrawlSite", telemetry.SpanAttributes{
		SourceURL: startURL,
		Backend:   s.cfg.Backend,
		Operation: "crawl",
	})
	defer span.End()

	pages, err := s.crawler.Crawl(ctx, strings.TrimSpace(startURL), maxPages)
	if err != nil {
		span.SetError(err)
		if domain.CodeOf(err) == "" {
			err = domain.NewDomainErrorWithCause(domain.ErrCodeScrapeFailed, "failed to crawl "+startURL, err)
		}
		return nil, err
	}

	result := &CrawlResult{
		StartURL:     startURL,
		PagesCrawled: len(pages),
		Pages:        make([]PageResult, 0, len(pages)),
	}
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		s.archivePage(ctx, page)

		pr := PageResult{URL: page.URL, Title: page.Title}
		ingested, err := s.ingestPage(ctx, page)
		if ingested != nil {
			pr.ChunksStored = ingested.ChunksStored
			result.ChunksStored += ingested.ChunksStored
		}
		if err != nil {
			pr.Error = err.Error()
			log.Printf("crawl: %s: %v", page.URL, err)
		} else {
			result.PagesIndexed++
		}
		result.Pages = append(result.Pages, pr)
	}

	span.SetData("pages_indexed", result.PagesIndexed)
	log.Printf("crawl: %s: indexed %d/%d pages, %d chunks", startURL, result.PagesIndexed, result.PagesCrawled, result.ChunksStored)
	return result, nil
}

// Reindex re-chunks and re-embeds an archived page without scraping it again.
func (s *RetrievalService) Reindex(ctx context.Context, sourceURL string) (*IngestResult, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("%w: page archive", domain.ErrFeatureDisabled)
	}
	if err := domain.ValidateSourceURL(sourceURL); err != nil {
		return nil, err
	}

	page, err := s.archive.Get(ctx, strings.TrimSpace(sourceURL))
	if err != nil {
		return nil, err
	}
	return s.ingestPage(ctx, page)
}

// EnqueueURL queues a page for background ingestion.
func (s *RetrievalService) EnqueueURL(ctx context.Context, rawURL string, renderDynamic bool) (*domain.IngestJob, error) {
	job := domain.NewIngestJob(s.uuidGen.NewString(), domain.IngestJobKindPage, strings.TrimSpace(rawURL), s.now().UTC())
	job.RenderDynamic = renderDynamic
	return s.enqueue(ctx, job)
}

// EnqueueCrawl queues a site crawl for background ingestion.
func (s *RetrievalService) EnqueueCrawl(ctx context.Context, startURL string, maxPages int) (*domain.IngestJob, error) {
	job := domain.NewIngestJob(s.uuidGen.NewString(), domain.IngestJobKindSite, strings.TrimSpace(startURL), s.now().UTC())
	job.MaxPages = maxPages
	return s.enqueue(ctx, job)
}

func (s *RetrievalService) enqueue(ctx context.Context, job *domain.IngestJob) (*domain.IngestJob, error) {
	if s.publisher == nil {
		return nil, fmt.Errorf("%w: ingest queue", domain.ErrFeatureDisabled)
	}
	if err := domain.ValidateIngestJob(job); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid ingest job", err)
	}
	if err := s.publisher.PublishIngestJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to publish ingest job: %w", err)
	}
	return job, nil
}

// ProcessIngestJob runs a queued job. It is called by the background consumer.
func (s *RetrievalService) ProcessIngestJob(ctx context.Context, job *domain.IngestJob) error {
	if err := domain.ValidateIngestJob(job); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid ingest job", err)
	}
	switch job.Kind {
	case domain.IngestJobKindSite:
		_, err := s.CrawlSite(ctx, job.URL, job.MaxPages)
		return err
	default:
		_, err := s.IngestURL(ctx, job.URL, job.RenderDynamic)
		return err
	}
}

func (s *RetrievalService) ingestPage(ctx context.Context, page *domain.Page) (*IngestResult, error) {
	title := page.Title
	if strings.TrimSpace(title) == "" {
		title = page.URL
	}
	return s.Ingest(ctx, IngestInput{
		SourceURL:   page.URL,
		SourceTitle: title,
		Text:        page.Text,
		Replace:     true,
	})
}

func (s *RetrievalService) archivePage(ctx context.Context, page *domain.Page) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Put(ctx, page); err != nil {
		log.Printf("archive: %s: %v", page.URL, err)
	}
}
