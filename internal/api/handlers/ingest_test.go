package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Waqasabid99/agiAI/internal/api"
	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/Waqasabid99/agiAI/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestIngestHandler_Ingest_Success(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewIngestHandler(mockSvc)

	mockSvc.On("Ingest", mock.Anything, service.IngestInput{
		SourceURL:   "https://acme.test/faq",
		SourceTitle: "FAQ",
		Text:        "We ship worldwide.",
		Replace:     true,
	}).Return(&service.IngestResult{SourceURL: "https://acme.test/faq", ChunksStored: 1, ChunksTotal: 1}, nil)

	req := jsonRequest(http.MethodPost, "/ingest", `{"source_url":"https://acme.test/faq","source_title":"FAQ","text":"We ship worldwide.","replace":true}`)
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data service.IngestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.ChunksStored)
	mockSvc.AssertExpectations(t)
}

func TestIngestHandler_Ingest_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{`, "invalid request body"},
		{"missing url", `{"text":"hello"}`, "source_url is required"},
		{"blank text", `{"source_url":"https://acme.test","text":"   "}`, "text is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockRetrievalService)
			w := httptest.NewRecorder()

			NewIngestHandler(mockSvc).Ingest(w, jsonRequest(http.MethodPost, "/ingest", tt.body))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
			mockSvc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
		})
	}
}

func TestIngestHandler_Ingest_PartialFailure(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	mockSvc.On("Ingest", mock.Anything, mock.Anything).Return(
		&service.IngestResult{SourceURL: "https://acme.test/faq", ChunksStored: 2, ChunksTotal: 5},
		domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingUnavailable, "embedding failed", assert.AnError),
	)

	w := httptest.NewRecorder()
	NewIngestHandler(mockSvc).Ingest(w, jsonRequest(http.MethodPost, "/ingest", `{"source_url":"https://acme.test/faq","text":"a. b. c."}`))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.ErrCodeEmbeddingUnavailable, resp.Code)
	require.NotNil(t, resp.ChunksStored)
	assert.Equal(t, 2, *resp.ChunksStored)
}

func TestIngestHandler_IngestURL_Sync(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	mockSvc.On("IngestURL", mock.Anything, "https://acme.test/about", false).
		Return(&service.IngestResult{SourceURL: "https://acme.test/about", ChunksStored: 3, ChunksTotal: 3}, nil)

	w := httptest.NewRecorder()
	NewIngestHandler(mockSvc).IngestURL(w, jsonRequest(http.MethodPost, "/ingest/url", `{"url":"https://acme.test/about"}`))

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestIngestHandler_IngestURL_ScrapeFailed(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	mockSvc.On("IngestURL", mock.Anything, "https://acme.test/down", true).
		Return(nil, domain.NewDomainErrorWithCause(domain.ErrCodeScrapeFailed, "failed to scrape", assert.AnError))

	w := httptest.NewRecorder()
	NewIngestHandler(mockSvc).IngestURL(w, jsonRequest(http.MethodPost, "/ingest/url", `{"url":"https://acme.test/down","render_dynamic":true}`))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "chunks_stored")
}

func TestIngestHandler_IngestURL_Async(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	job := domain.NewIngestJob("job-1", domain.IngestJobKindPage, "https://acme.test/about", time.Now())
	mockSvc.On("EnqueueURL", mock.Anything, "https://acme.test/about", false).Return(job, nil)

	w := httptest.NewRecorder()
	NewIngestHandler(mockSvc).IngestURL(w, jsonRequest(http.MethodPost, "/ingest/url", `{"url":"https://acme.test/about","async":true}`))

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Data JobResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.Data.JobID)
	assert.Equal(t, "queued", resp.Data.Status)
	mockSvc.AssertNotCalled(t, "IngestURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestHandler_IngestURL_QueueNotConfigured(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	mockSvc.On("EnqueueURL", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrFeatureDisabled)

	w := httptest.NewRecorder()
	NewIngestHandler(mockSvc).IngestURL(w, jsonRequest(http.MethodPost, "/ingest/url", `{"url":"https://acme.test","async":true}`))

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestIngestHandler_Crawl(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	mockSvc.On("CrawlSite", mock.Anything, "https://acme.test", 10).Return(&service.CrawlResult{
		StartURL:     "https://acme.test",
		PagesCrawled: 2,
		PagesIndexed: 1,
		ChunksStored: 4,
		Pages: []service.PageResult{
			{URL: "https://acme.test", ChunksStored: 4},
			{URL: "https://acme.test/x", Error: "embedding provider unavailable"},
		},
	}, nil)

	w := httptest.NewRecorder()
	NewIngestHandler(mockSvc).Crawl(w, jsonRequest(http.MethodPost, "/crawl", `{"url":"https://acme.test","max_pages":10}`))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data service.CrawlResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.PagesIndexed)
	assert.Len(t, resp.Data.Pages, 2)
}

func TestIngestHandler_Crawl_Async(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	job := domain.NewIngestJob("job-2", domain.IngestJobKindSite, "https://acme.test", time.Now())
	mockSvc.On("EnqueueCrawl", mock.Anything, "https://acme.test", 0).Return(job, nil)

	w := httptest.NewRecorder()
	NewIngestHandler(mockSvc).Crawl(w, jsonRequest(http.MethodPost, "/crawl", `{"url":"https://acme.test","async":true}`))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"site"`)
}

func TestIngestHandler_Crawl_NegativeMaxPages(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	w := httptest.NewRecorder()

	NewIngestHandler(mockSvc).Crawl(w, jsonRequest(http.MethodPost, "/crawl", `{"url":"https://acme.test","max_pages":-1}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestHandler_Reindex(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	mockSvc.On("Reindex", mock.Anything, "https://acme.test/missing").
		Return(nil, domain.ErrPageNotArchived)

	w := httptest.NewRecorder()
	NewIngestHandler(mockSvc).Reindex(w, jsonRequest(http.MethodPost, "/reindex", `{"url":"https://acme.test/missing"}`))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
