package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/Waqasabid99/agiAI/internal/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func shippingPage() *domain.Page {
	return &domain.Page{
		URL:       shippingURL,
		Title:     "Shipping",
		Text:      "We ship worldwide within 5 days.",
		FetchedAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	}
}

func TestIngestURL_NotConfigured(t *testing.T) {
	svc := newTestService(newKeywordEmbedder(), new(MockGenerationClient), vectorindex.NewMemory(0))

	_, err := svc.IngestURL(context.Background(), shippingURL, false)
	assert.ErrorIs(t, err, domain.ErrFeatureDisabled)
	assert.Equal(t, domain.ErrCodeNotConfigured, domain.CodeOf(err))
}

func TestIngestURL_InvalidURL(t *testing.T) {
	scraper := new(MockPageScraper)
	svc := newTestService(newKeywordEmbedder(), new(MockGenerationClient), vectorindex.NewMemory(0))
	svc.WithScraper(scraper, new(MockSiteCrawler))

	for _, raw := range []string{"", "ftp://acme.test/file", "/relative/path"} {
		_, err := svc.IngestURL(context.Background(), raw, false)
		assert.ErrorIs(t, err, domain.ErrInvalidURL, raw)
	}
	scraper.AssertNotCalled(t, "Scrape", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestURL_ScrapesArchivesAndReplaces(t *testing.T) {
	index := vectorindex.NewMemory(0)
	scraper := new(MockPageScraper)
	archive := new(MockPageArchive)
	svc := newTestService(newKeywordEmbedder("ship"), new(MockGenerationClient), index)
	svc.WithScraper(scraper, new(MockSiteCrawler)).WithArchive(archive)

	page := shippingPage()
	page.Title = "  "
	scraper.On("Scrape", mock.Anything, shippingURL, true).Return(page, nil)
	archive.On("Put", mock.Anything, page).Return(nil)

	for i := 0; i < 2; i++ {
		result, err := svc.IngestURL(context.Background(), " "+shippingURL+" ", true)
		require.NoError(t, err)
		assert.Equal(t, 1, result.ChunksStored)
	}

	// the second ingestion replaced the first
	n, err := index.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := index.Search(context.Background(), []float32{1, 0.1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, shippingURL, hits[0].Chunk.SourceTitle)
	archive.AssertNumberOfCalls(t, "Put", 2)
}

func TestIngestURL_ScrapeFailure(t *testing.T) {
	scraper := new(MockPageScraper)
	svc := newTestService(newKeywordEmbedder(), new(MockGenerationClient), vectorindex.NewMemory(0))
	svc.WithScraper(scraper, new(MockSiteCrawler))

	scraper.On("Scrape", mock.Anything, shippingURL, false).Return(nil, errors.New("connection refused")).Once()
	_, err := svc.IngestURL(context.Background(), shippingURL, false)
	assert.Equal(t, domain.ErrCodeScrapeFailed, domain.CodeOf(err))

	notFound := domain.NewDomainError(domain.ErrCodeScrapeFailed, "status 404")
	scraper.On("Scrape", mock.Anything, shippingURL, false).Return(nil, notFound).Once()
	_, err = svc.IngestURL(context.Background(), shippingURL, false)
	assert.Same(t, notFound, err)
}

func TestIngestURL_ArchiveFailureIsNotFatal(t *testing.T) {
	scraper := new(MockPageScraper)
	archive := new(MockPageArchive)
	svc := newTestService(newKeywordEmbedder("ship"), new(MockGenerationClient), vectorindex.NewMemory(0))
	svc.WithScraper(scraper, new(MockSiteCrawler)).WithArchive(archive)

	scraper.On("Scrape", mock.Anything, shippingURL, false).Return(shippingPage(), nil)
	archive.On("Put", mock.Anything, mock.Anything).Return(errors.New("bucket missing"))

	result, err := svc.IngestURL(context.Background(), shippingURL, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksStored)
}

func TestCrawlSite(t *testing.T) {
	crawler := new(MockSiteCrawler)
	svc := newTestService(newKeywordEmbedder("ship"), new(MockGenerationClient), vectorindex.NewMemory(0))
	svc.WithScraper(new(MockPageScraper), crawler)

	empty := &domain.Page{URL: "https://acme.test/empty", Title: "Empty", Text: "   "}
	crawler.On("Crawl", mock.Anything, "https://acme.test/", 20).Return([]*domain.Page{shippingPage(), empty}, nil)

	result, err := svc.CrawlSite(context.Background(), "https://acme.test/", 0)
	require.NoError(t, err)

	assert.Equal(t, "https://acme.test/", result.StartURL)
	assert.Equal(t, 2, result.PagesCrawled)
	assert.Equal(t, 1, result.PagesIndexed)
	assert.Equal(t, 1, result.ChunksStored)
	require.Len(t, result.Pages, 2)
	assert.Equal(t, PageResult{URL: shippingURL, Title: "Shipping", ChunksStored: 1}, result.Pages[0])
	assert.Equal(t, "https://acme.test/empty", result.Pages[1].URL)
	assert.NotEmpty(t, result.Pages[1].Error)
}

func TestCrawlSite_Errors(t *testing.T) {
	svc := newTestService(newKeywordEmbedder(), new(MockGenerationClient), vectorindex.NewMemory(0))

	_, err := svc.CrawlSite(context.Background(), "https://acme.test/", 5)
	assert.ErrorIs(t, err, domain.ErrFeatureDisabled)

	crawler := new(MockSiteCrawler)
	svc.WithScraper(new(MockPageScraper), crawler)

	_, err = svc.CrawlSite(context.Background(), "mailto:hi@acme.test", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidURL)

	crawler.On("Crawl", mock.Anything, "https://acme.test/", 5).Return(nil, errors.New("dns failure"))
	_, err = svc.CrawlSite(context.Background(), "https://acme.test/", 5)
	assert.Equal(t, domain.ErrCodeScrapeFailed, domain.CodeOf(err))
}

func TestReindex(t *testing.T) {
	index := vectorindex.NewMemory(0)
	archive := new(MockPageArchive)
	svc := newTestService(newKeywordEmbedder("ship"), new(MockGenerationClient), index)

	_, err := svc.Reindex(context.Background(), shippingURL)
	assert.ErrorIs(t, err, domain.ErrFeatureDisabled)

	svc.WithArchive(archive)
	archive.On("Get", mock.Anything, shippingURL).Return(shippingPage(), nil)
	archive.On("Get", mock.Anything, returnsURL).Return(nil, domain.ErrPageNotArchived)

	result, err := svc.Reindex(context.Background(), shippingURL)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksStored)

	_, err = svc.Reindex(context.Background(), returnsURL)
	assert.Equal(t, domain.ErrCodeNotFound, domain.CodeOf(err))
}

func TestEnqueueURL(t *testing.T) {
	publisher := new(MockIngestPublisher)
	svc := newTestService(newKeywordEmbedder(), new(MockGenerationClient), vectorindex.NewMemory(0))

	_, err := svc.EnqueueURL(context.Background(), shippingURL, false)
	assert.Equal(t, domain.ErrCodeNotConfigured, domain.CodeOf(err))

	svc.WithPublisher(publisher)
	publisher.On("PublishIngestJob", mock.Anything, mock.MatchedBy(func(j *domain.IngestJob) bool {
		return j.URL == shippingURL
	})).Return(nil)

	job, err := svc.EnqueueURL(context.Background(), " "+shippingURL+" ", true)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", job.ID)
	assert.Equal(t, domain.IngestJobKindPage, job.Kind)
	assert.True(t, job.RenderDynamic)
	assert.Equal(t, int32(0), job.Attempt)
	assert.Equal(t, svc.now().UTC(), job.CreatedAt)

	_, err = svc.EnqueueURL(context.Background(), "not a url", false)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
	publisher.AssertNumberOfCalls(t, "PublishIngestJob", 1)
}

func TestEnqueueCrawl_PublishFails(t *testing.T) {
	publisher := new(MockIngestPublisher)
	svc := newTestService(newKeywordEmbedder(), new(MockGenerationClient), vectorindex.NewMemory(0))
	svc.WithPublisher(publisher)
	publisher.On("PublishIngestJob", mock.Anything, mock.Anything).Return(errors.New("channel closed"))

	_, err := svc.EnqueueCrawl(context.Background(), "https://acme.test/", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish ingest job")

	job := publisher.Calls[0].Arguments.Get(1).(*domain.IngestJob)
	assert.Equal(t, domain.IngestJobKindSite, job.Kind)
	assert.Equal(t, 10, job.MaxPages)
}

func TestProcessIngestJob(t *testing.T) {
	scraper := new(MockPageScraper)
	crawler := new(MockSiteCrawler)
	svc := newTestService(newKeywordEmbedder("ship"), new(MockGenerationClient), vectorindex.NewMemory(0))
	svc.WithScraper(scraper, crawler)

	scraper.On("Scrape", mock.Anything, shippingURL, true).Return(shippingPage(), nil)
	crawler.On("Crawl", mock.Anything, "https://acme.test/", 3).Return([]*domain.Page{shippingPage()}, nil)

	pageJob := domain.NewIngestJob("j1", domain.IngestJobKindPage, shippingURL, time.Now())
	pageJob.RenderDynamic = true
	require.NoError(t, svc.ProcessIngestJob(context.Background(), pageJob))

	siteJob := domain.NewIngestJob("j2", domain.IngestJobKindSite, "https://acme.test/", time.Now())
	siteJob.MaxPages = 3
	require.NoError(t, svc.ProcessIngestJob(context.Background(), siteJob))

	err := svc.ProcessIngestJob(context.Background(), &domain.IngestJob{ID: "j3", Kind: "video", URL: shippingURL})
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))

	scraper.AssertExpectations(t)
	crawler.AssertExpectations(t)
}
