package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code.
// Sentinels declared below therefore match any error of their kind.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the outermost DomainError in err's chain, or "".
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeNotConfigured = "NOT_CONFIGURED"

	ErrCodeScrapeFailed          = "SCRAPE_FAILED"
	ErrCodeEmbeddingUnavailable  = "EMBEDDING_UNAVAILABLE"
	ErrCodeStoreWriteFailed      = "STORE_WRITE_FAILED"
	ErrCodeStoreReadFailed       = "STORE_READ_FAILED"
	ErrCodeGenerationUnavailable = "GENERATION_UNAVAILABLE"
	ErrCodeAuthFailed            = "AUTH_FAILED"
	ErrCodeRateLimited           = "RATE_LIMITED"
	ErrCodeIndexNotInitialized   = "INDEX_NOT_INITIALIZED"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuestion        = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrEmptyText            = NewDomainError(ErrCodeValidation, "text cannot be empty")
	ErrInvalidURL           = NewDomainError(ErrCodeValidation, "invalid url")
)

// Not found errors
var (
	ErrPageNotArchived = NewDomainError(ErrCodeNotFound, "no archived page for url")
)

// Pipeline errors. Match with errors.Is; the concrete error carries the provider cause.
var (
	ErrScrapeFailed          = NewDomainError(ErrCodeScrapeFailed, "page scrape failed")
	ErrEmbeddingUnavailable  = NewDomainError(ErrCodeEmbeddingUnavailable, "embedding provider unavailable")
	ErrStoreWriteFailed      = NewDomainError(ErrCodeStoreWriteFailed, "vector index write failed")
	ErrStoreReadFailed       = NewDomainError(ErrCodeStoreReadFailed, "vector index read failed")
	ErrGenerationUnavailable = NewDomainError(ErrCodeGenerationUnavailable, "generation provider unavailable")
	ErrAuthFailed            = NewDomainError(ErrCodeAuthFailed, "generation provider rejected credentials")
	ErrRateLimited           = NewDomainError(ErrCodeRateLimited, "generation provider rate limit exceeded")
	ErrIndexNotInitialized   = NewDomainError(ErrCodeIndexNotInitialized, "vector index not initialized")
	ErrFeatureDisabled       = NewDomainError(ErrCodeNotConfigured, "feature not configured")
)

// BatchWriteError reports an aborted batched upsert. Batches before Batch stay committed.
type BatchWriteError struct {
	Batch     int // zero-based index of the rejected batch
	Committed int // records committed before the failure
	Err       error
}

func (e *BatchWriteError) Error() string {
	return fmt.Sprintf("batch %d rejected after %d committed records: %v", e.Batch, e.Committed, e.Err)
}

func (e *BatchWriteError) Unwrap() error {
	return e.Err
}

// NewStoreWriteError wraps a rejected batch as a STORE_WRITE_FAILED domain error.
func NewStoreWriteError(batch, committed int, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStoreWriteFailed, "upsert aborted", &BatchWriteError{
		Batch:     batch,
		Committed: committed,
		Err:       err,
	})
}

// CommittedCount extracts how many records were committed before a batched upsert failed.
func CommittedCount(err error) (int, bool) {
	var bwe *BatchWriteError
	if errors.As(err, &bwe) {
		return bwe.Committed, true
	}
	return 0, false
}
