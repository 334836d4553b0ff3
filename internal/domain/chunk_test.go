package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunk(t *testing.T) {
	now := time.Now()
	c := NewChunk("  Shipping takes three days.  ", "https://example.com/faq", "FAQ", 2, now)

	assert.Equal(t, "Shipping takes three days.", c.Text)
	assert.Equal(t, "https://example.com/faq", c.SourceURL)
	assert.Equal(t, "FAQ", c.SourceTitle)
	assert.Equal(t, 2, c.ChunkIndex)
	assert.Equal(t, now, c.CreatedAt)
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   Chunk
		wantErr bool
		errMsg  string
	}{
		{
			name:  "valid chunk",
			chunk: Chunk{Text: "hello", SourceURL: "https://example.com"},
		},
		{
			name:    "empty text",
			chunk:   Chunk{Text: "", SourceURL: "https://example.com"},
			wantErr: true,
			errMsg:  "chunk Text is required",
		},
		{
			name:    "whitespace text",
			chunk:   Chunk{Text: " \n\t", SourceURL: "https://example.com"},
			wantErr: true,
			errMsg:  "chunk Text is required",
		},
		{
			name:    "untrimmed text",
			chunk:   Chunk{Text: " hello", SourceURL: "https://example.com"},
			wantErr: true,
			errMsg:  "chunk Text must be trimmed",
		},
		{
			name:    "missing source",
			chunk:   Chunk{Text: "hello"},
			wantErr: true,
			errMsg:  "chunk SourceURL is required",
		},
		{
			name:    "negative index",
			chunk:   Chunk{Text: "hello", SourceURL: "https://example.com", ChunkIndex: -1},
			wantErr: true,
			errMsg:  "chunk ChunkIndex cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateVectorRecord(t *testing.T) {
	chunk := Chunk{Text: "hello", SourceURL: "https://example.com"}

	assert.NoError(t, ValidateVectorRecord(VectorRecord{ID: "a-00000", Vector: []float32{1}, Chunk: chunk}))

	err := ValidateVectorRecord(VectorRecord{Vector: []float32{1}, Chunk: chunk})
	assert.ErrorContains(t, err, "ID is required")

	err = ValidateVectorRecord(VectorRecord{ID: "a-00000", Chunk: chunk})
	assert.ErrorContains(t, err, "empty Vector")

	err = ValidateVectorRecord(VectorRecord{ID: "a-00000", Vector: []float32{1}, Chunk: Chunk{Text: "x"}})
	assert.ErrorContains(t, err, "SourceURL is required")
}

func TestRecordID(t *testing.T) {
	assert.Equal(t, "tok-00000", RecordID("tok", 0))
	assert.Equal(t, "tok-00042", RecordID("tok", 42))
	assert.NotEqual(t, RecordID("a", 1), RecordID("b", 1))
}
