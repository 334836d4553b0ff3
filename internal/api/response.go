package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Waqasabid99/agiAI/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response. ChunksStored is set when an
// ingestion failed after some chunks were already written.
type ErrorResponse struct {
	Error        string `json:"error"`
	Code         string `json:"code,omitempty"`
	ChunksStored *int   `json:"chunks_stored,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeScrapeFailed, domain.ErrCodeAuthFailed:
		return http.StatusBadGateway
	case domain.ErrCodeEmbeddingUnavailable, domain.ErrCodeGenerationUnavailable:
		return http.StatusServiceUnavailable
	case domain.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case domain.ErrCodeNotConfigured:
		return http.StatusNotImplemented
	case domain.ErrCodeStoreWriteFailed, domain.ErrCodeStoreReadFailed, domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCodeHeader repeats the domain error code of an error response so access
// logs and tracing can record it without reading the body.
const ErrorCodeHeader = "X-Error-Code"

// HandleError writes an appropriate error response based on the error type
func HandleError(w http.ResponseWriter, err error) {
	writeDomainError(w, err, nil)
}

// HandlePartialError is HandleError for operations that may have committed part
// of their work before failing.
func HandlePartialError(w http.ResponseWriter, err error, chunksStored int) {
	writeDomainError(w, err, &chunksStored)
}

func writeDomainError(w http.ResponseWriter, err error, chunksStored *int) {
	code := domain.CodeOf(err)
	if code != "" {
		w.Header().Set(ErrorCodeHeader, code)
	}
	JSON(w, DomainErrorToHTTP(err), ErrorResponse{
		Error:        err.Error(),
		Code:         code,
		ChunksStored: chunksStored,
	})
}
