package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/Waqasabid99/agiAI/internal/api"
	"github.com/Waqasabid99/agiAI/internal/service"
)

type IndexService interface {
	Stats(ctx context.Context) (*service.IndexStats, error)
	ClearAll(ctx context.Context) error
	DeleteSource(ctx context.Context, sourceURL string) error
}

type IndexHandler struct {
	svc IndexService
}

func NewIndexHandler(svc IndexService) *IndexHandler {
	return &IndexHandler{svc: svc}
}

type HealthResponse struct {
	Status      string `json:"status"`
	Backend     string `json:"backend,omitempty"`
	IndexLoaded bool   `json:"index_loaded"`
	RecordCount int    `json:"record_count"`
	Error       string `json:"error,omitempty"`
}

func (h *IndexHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, stats)
}

// Health reports whether the index is reachable and holds any records. An
// unreachable index is reported as degraded with status 503.
func (h *IndexHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		api.JSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "degraded",
			Error:  err.Error(),
		})
		return
	}

	api.JSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Backend:     stats.Backend,
		IndexLoaded: stats.RecordCount > 0,
		RecordCount: stats.RecordCount,
	})
}

func (h *IndexHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearAll(r.Context()); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *IndexHandler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	sourceURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if sourceURL == "" {
		api.Error(w, http.StatusBadRequest, "url is required")
		return
	}

	if err := h.svc.DeleteSource(r.Context(), sourceURL); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
