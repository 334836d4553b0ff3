package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorFormatting(t *testing.T) {
	err := NewDomainError(ErrCodeValidation, "bad input")
	assert.Equal(t, "[VALIDATION_ERROR] bad input", err.Error())

	cause := errors.New("connection refused")
	err = NewDomainErrorWithCause(ErrCodeEmbeddingUnavailable, "embed failed", cause)
	assert.Equal(t, "[EMBEDDING_UNAVAILABLE] embed failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestDomainErrorIsMatchesByCode(t *testing.T) {
	err := NewDomainErrorWithCause(ErrCodeRateLimited, "429 from provider", errors.New("slow down"))
	wrapped := fmt.Errorf("answer: %w", err)

	assert.ErrorIs(t, wrapped, ErrRateLimited)
	assert.NotErrorIs(t, wrapped, ErrAuthFailed)
	assert.Equal(t, ErrCodeRateLimited, CodeOf(wrapped))
}

func TestCodeOfNonDomainError(t *testing.T) {
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestNewStoreWriteError(t *testing.T) {
	cause := errors.New("dimension mismatch")
	err := NewStoreWriteError(2, 200, cause)

	assert.ErrorIs(t, err, ErrStoreWriteFailed)
	assert.ErrorIs(t, err, cause)

	committed, ok := CommittedCount(fmt.Errorf("ingest: %w", err))
	require.True(t, ok)
	assert.Equal(t, 200, committed)

	var bwe *BatchWriteError
	require.ErrorAs(t, err, &bwe)
	assert.Equal(t, 2, bwe.Batch)
}

func TestCommittedCountMissing(t *testing.T) {
	_, ok := CommittedCount(ErrStoreReadFailed)
	assert.False(t, ok)
}
