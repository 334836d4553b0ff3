package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/Waqasabid99/agiAI/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockRetrievalService struct {
	mock.Mock
}

func (m *MockRetrievalService) Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockRetrievalService) IngestURL(ctx context.Context, rawURL string, renderDynamic bool) (*service.IngestResult, error) {
	args := m.Called(ctx, rawURL, renderDynamic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockRetrievalService) CrawlSite(ctx context.Context, startURL string, maxPages int) (*service.CrawlResult, error) {
	args := m.Called(ctx, startURL, maxPages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CrawlResult), args.Error(1)
}

func (m *MockRetrievalService) Reindex(ctx context.Context, sourceURL string) (*service.IngestResult, error) {
	args := m.Called(ctx, sourceURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockRetrievalService) EnqueueURL(ctx context.Context, rawURL string, renderDynamic bool) (*domain.IngestJob, error) {
	args := m.Called(ctx, rawURL, renderDynamic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestJob), args.Error(1)
}

func (m *MockRetrievalService) EnqueueCrawl(ctx context.Context, startURL string, maxPages int) (*domain.IngestJob, error) {
	args := m.Called(ctx, startURL, maxPages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestJob), args.Error(1)
}

func (m *MockRetrievalService) Answer(ctx context.Context, input service.AskInput) (*domain.QueryResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueryResult), args.Error(1)
}

func (m *MockRetrievalService) Stats(ctx context.Context) (*service.IndexStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IndexStats), args.Error(1)
}

func (m *MockRetrievalService) ClearAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRetrievalService) DeleteSource(ctx context.Context, sourceURL string) error {
	args := m.Called(ctx, sourceURL)
	return args.Error(0)
}

func jsonRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}
