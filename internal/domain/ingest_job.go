package domain

import (
	"fmt"
	"time"
)

// IngestJobKind says what an async ingestion job fetches
type IngestJobKind string

const (
	IngestJobKindPage IngestJobKind = "page"
	IngestJobKindSite IngestJobKind = "site"
)

// IngestJob is a queued request to scrape and index a page or crawl a whole site
type IngestJob struct {
	ID            string        `json:"id"`
	Kind          IngestJobKind `json:"kind"`
	URL           string        `json:"url"`
	RenderDynamic bool          `json:"render_dynamic,omitempty"`
	MaxPages      int           `json:"max_pages,omitempty"`
	Attempt       int32         `json:"attempt"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewIngestJob creates a new IngestJob instance
func NewIngestJob(id string, kind IngestJobKind, url string, createdAt time.Time) *IngestJob {
	return &IngestJob{
		ID:        id,
		Kind:      kind,
		URL:       url,
		CreatedAt: createdAt,
	}
}

// ValidateIngestJob validates an IngestJob instance
func ValidateIngestJob(j *IngestJob) error {
	if j == nil {
		return fmt.Errorf("ingest job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("ingest job ID is required")
	}

	if !isValidIngestJobKind(j.Kind) {
		return fmt.Errorf("ingest job Kind is invalid: %s", j.Kind)
	}

	if err := ValidateSourceURL(j.URL); err != nil {
		return fmt.Errorf("ingest job URL: %w", err)
	}

	if j.MaxPages < 0 {
		return fmt.Errorf("ingest job MaxPages cannot be negative")
	}

	if j.Attempt < 0 {
		return fmt.Errorf("ingest job Attempt cannot be negative")
	}

	return nil
}

func isValidIngestJobKind(k IngestJobKind) bool {
	switch k {
	case IngestJobKindPage, IngestJobKindSite:
		return true
	}
	return false
}
