package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Waqasabid99/agiAI/internal/api"
	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/Waqasabid99/agiAI/internal/service"
)

type IngestService interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error)
	IngestURL(ctx context.Context, rawURL string, renderDynamic bool) (*service.IngestResult, error)
	CrawlSite(ctx context.Context, startURL string, maxPages int) (*service.CrawlResult, error)
	Reindex(ctx context.Context, sourceURL string) (*service.IngestResult, error)
	EnqueueURL(ctx context.Context, rawURL string, renderDynamic bool) (*domain.IngestJob, error)
	EnqueueCrawl(ctx context.Context, startURL string, maxPages int) (*domain.IngestJob, error)
}

type IngestHandler struct {
	svc IngestService
}

func NewIngestHandler(svc IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

type IngestRequest struct {
	SourceURL   string `json:"source_url"`
	SourceTitle string `json:"source_title"`
	Text        string `json:"text"`
	Replace     bool   `json:"replace"`
}

type IngestURLRequest struct {
	URL           string `json:"url"`
	RenderDynamic bool   `json:"render_dynamic"`
	Async         bool   `json:"async"`
}

type CrawlRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"max_pages"`
	Async    bool   `json:"async"`
}

type ReindexRequest struct {
	URL string `json:"url"`
}

type JobResponse struct {
	JobID  string `json:"job_id"`
	Kind   string `json:"kind"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

func jobToResponse(job *domain.IngestJob) *JobResponse {
	return &JobResponse{
		JobID:  job.ID,
		Kind:   string(job.Kind),
		URL:    job.URL,
		Status: "queued",
	}
}

func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.SourceURL) == "" {
		api.Error(w, http.StatusBadRequest, "source_url is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	result, err := h.svc.Ingest(r.Context(), service.IngestInput{
		SourceURL:   req.SourceURL,
		SourceTitle: req.SourceTitle,
		Text:        req.Text,
		Replace:     req.Replace,
	})
	if err != nil {
		handleIngestError(w, result, err)
		return
	}

	api.Success(w, http.StatusCreated, result)
}

func (h *IngestHandler) IngestURL(w http.ResponseWriter, r *http.Request) {
	var req IngestURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.URL) == "" {
		api.Error(w, http.StatusBadRequest, "url is required")
		return
	}

	if req.Async {
		job, err := h.svc.EnqueueURL(r.Context(), req.URL, req.RenderDynamic)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusAccepted, jobToResponse(job))
		return
	}

	result, err := h.svc.IngestURL(r.Context(), req.URL, req.RenderDynamic)
	if err != nil {
		handleIngestError(w, result, err)
		return
	}

	api.Success(w, http.StatusCreated, result)
}

func (h *IngestHandler) Crawl(w http.ResponseWriter, r *http.Request) {
	var req CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.URL) == "" {
		api.Error(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.MaxPages < 0 {
		api.Error(w, http.StatusBadRequest, "max_pages cannot be negative")
		return
	}

	if req.Async {
		job, err := h.svc.EnqueueCrawl(r.Context(), req.URL, req.MaxPages)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusAccepted, jobToResponse(job))
		return
	}

	result, err := h.svc.CrawlSite(r.Context(), req.URL, req.MaxPages)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

func (h *IngestHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	var req ReindexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.URL) == "" {
		api.Error(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := h.svc.Reindex(r.Context(), req.URL)
	if err != nil {
		handleIngestError(w, result, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

// handleIngestError reports how many chunks were stored before the failure.
func handleIngestError(w http.ResponseWriter, result *service.IngestResult, err error) {
	if result != nil {
		api.HandlePartialError(w, err, result.ChunksStored)
		return
	}
	api.HandleError(w, err)
}
