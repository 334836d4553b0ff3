package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		body   string
	}{
		{
			name:   "raw json",
			write:  func(w http.ResponseWriter) { JSON(w, http.StatusOK, map[string]int{"record_count": 4}) },
			status: http.StatusOK,
			body:   `{"record_count":4}`,
		},
		{
			name:   "no body",
			write:  func(w http.ResponseWriter) { JSON(w, http.StatusNoContent, nil) },
			status: http.StatusNoContent,
		},
		{
			name:   "data envelope",
			write:  func(w http.ResponseWriter) { Success(w, http.StatusAccepted, map[string]string{"job_id": "j1"}) },
			status: http.StatusAccepted,
			body:   `{"data":{"job_id":"j1"}}`,
		},
		{
			name:   "message only",
			write:  func(w http.ResponseWriter) { Error(w, http.StatusUnauthorized, "admin token required") },
			status: http.StatusUnauthorized,
			body:   `{"error":"admin token required"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.body == "" {
				assert.Empty(t, w.Body.String())
				return
			}
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation error", domain.NewDomainError(domain.ErrCodeValidation, "invalid"), http.StatusBadRequest},
		{"empty question", domain.ErrEmptyQuestion, http.StatusBadRequest},
		{"not found error", domain.ErrPageNotArchived, http.StatusNotFound},
		{"scrape failed", domain.ErrScrapeFailed, http.StatusBadGateway},
		{"embedding unavailable", domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable},
		{"generation unavailable", domain.ErrGenerationUnavailable, http.StatusServiceUnavailable},
		{"auth failed", domain.ErrAuthFailed, http.StatusBadGateway},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"store write failed", domain.NewStoreWriteError(1, 100, assert.AnError), http.StatusInternalServerError},
		{"store read failed", domain.ErrStoreReadFailed, http.StatusInternalServerError},
		{"not configured", fmt.Errorf("%w: ingest queue", domain.ErrFeatureDisabled), http.StatusNotImplemented},
		{"wrapped domain error", fmt.Errorf("outer: %w", domain.ErrRateLimited), http.StatusTooManyRequests},
		{"internal error", domain.NewDomainError(domain.ErrCodeInternalError, "internal"), http.StatusInternalServerError},
		{"unknown domain error", domain.NewDomainError("UNKNOWN", "unknown"), http.StatusInternalServerError},
		{"non-domain error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DomainErrorToHTTP(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestHandleError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, fmt.Errorf("getting page: %w", domain.ErrPageNotArchived))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domain.ErrCodeNotFound, w.Header().Get(ErrorCodeHeader))

	var result ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, strings.HasPrefix(result.Error, "getting page: "))
	assert.Equal(t, domain.ErrCodeNotFound, result.Code)
	assert.Nil(t, result.ChunksStored)
}

func TestHandleError_PlainErrorHasNoCodeHeader(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get(ErrorCodeHeader))
}

func TestHandlePartialError(t *testing.T) {
	w := httptest.NewRecorder()

	HandlePartialError(w, domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingUnavailable, "provider down", assert.AnError), 3)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var result ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, domain.ErrCodeEmbeddingUnavailable, result.Code)
	require.NotNil(t, result.ChunksStored)
	assert.Equal(t, 3, *result.ChunksStored)
}
