package domain

import (
	"fmt"
	"strings"
	"time"
)

// Chunk is a bounded span of scraped page text, the unit of embedding and retrieval.
// ChunkIndex is the 0-based position within its source page; it is unique per SourceURL only.
type Chunk struct {
	Text        string    `json:"text"`
	SourceURL   string    `json:"source_url"`
	SourceTitle string    `json:"source_title"`
	ChunkIndex  int       `json:"chunk_index"`
	CreatedAt   time.Time `json:"created_at"`
}

// VectorRecord is a chunk together with its embedding as stored in a vector index.
type VectorRecord struct {
	ID     string
	Vector []float32
	Chunk  Chunk
}

// RetrievedChunk is a stored chunk plus the similarity score of one search call.
// Score is always "higher = more relevant".
type RetrievedChunk struct {
	Chunk Chunk
	Score float32
}

// NewChunk creates a new Chunk with trimmed text
func NewChunk(text, sourceURL, sourceTitle string, chunkIndex int, createdAt time.Time) Chunk {
	return Chunk{
		Text:        strings.TrimSpace(text),
		SourceURL:   sourceURL,
		SourceTitle: sourceTitle,
		ChunkIndex:  chunkIndex,
		CreatedAt:   createdAt,
	}
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c Chunk) error {
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("chunk Text is required")
	}
	if c.Text != strings.TrimSpace(c.Text) {
		return fmt.Errorf("chunk Text must be trimmed")
	}
	if c.SourceURL == "" {
		return fmt.Errorf("chunk SourceURL is required")
	}
	if c.ChunkIndex < 0 {
		return fmt.Errorf("chunk ChunkIndex cannot be negative")
	}
	return nil
}

// ValidateVectorRecord validates a VectorRecord instance
func ValidateVectorRecord(r VectorRecord) error {
	if r.ID == "" {
		return fmt.Errorf("vector record ID is required")
	}
	if len(r.Vector) == 0 {
		return fmt.Errorf("vector record %s has an empty Vector", r.ID)
	}
	if err := ValidateChunk(r.Chunk); err != nil {
		return fmt.Errorf("vector record %s: %w", r.ID, err)
	}
	return nil
}

// RecordID builds a globally unique record id from an ingestion token and chunk index.
func RecordID(token string, chunkIndex int) string {
	return fmt.Sprintf("%s-%05d", token, chunkIndex)
}
