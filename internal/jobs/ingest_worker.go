package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/Waqasabid99/agiAI/internal/queue"
)

const (
	// MaxAttempts is the number of times a job is tried before it is dropped
	MaxAttempts = 3
)

// IngestProcessor runs one ingestion job
type IngestProcessor interface {
	ProcessIngestJob(ctx context.Context, job *domain.IngestJob) error
}

// JobPublisher re-queues a job for another attempt
type JobPublisher interface {
	PublishIngestJob(ctx context.Context, job *domain.IngestJob) error
}

// IngestWorker handles ingestion job deliveries
type IngestWorker struct {
	processor IngestProcessor
	retry     JobPublisher
}

// NewIngestWorker creates a new IngestWorker instance
func NewIngestWorker(processor IngestProcessor, retry JobPublisher) *IngestWorker {
	return &IngestWorker{
		processor: processor,
		retry:     retry,
	}
}

// Handle decodes and runs a job. A failed job is re-published with its attempt
// counter bumped until MaxAttempts; permanent failures are dropped.
func (w *IngestWorker) Handle(ctx context.Context, d queue.Delivery) error {
	var job domain.IngestJob
	if err := json.Unmarshal(d.Body(), &job); err != nil {
		_ = d.Nack(false)
		return fmt.Errorf("failed to decode ingest job: %w", err)
	}

	log.Printf("Processing ingest job %s (%s %s, attempt %d)", job.ID, job.Kind, job.URL, job.Attempt+1)

	jobErr := w.processor.ProcessIngestJob(ctx, &job)
	if jobErr == nil {
		return d.Ack()
	}

	if ctx.Err() != nil {
		_ = d.Nack(true)
		return fmt.Errorf("job %s interrupted: %w", job.ID, jobErr)
	}

	return w.handleJobFailure(ctx, d, &job, jobErr)
}

// handleJobFailure handles a failed job with retry logic
func (w *IngestWorker) handleJobFailure(ctx context.Context, d queue.Delivery, job *domain.IngestJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if !retryable(jobErr) || w.retry == nil {
		_ = d.Nack(false)
		return fmt.Errorf("job %s dropped: %w", job.ID, jobErr)
	}

	if job.Attempt+1 >= MaxAttempts {
		log.Printf("Job %s exceeded max attempts (%d), dropping", job.ID, MaxAttempts)
		_ = d.Nack(false)
		return fmt.Errorf("max attempts exceeded: %w", jobErr)
	}

	next := *job
	next.Attempt++
	if err := w.retry.PublishIngestJob(ctx, &next); err != nil {
		_ = d.Nack(true)
		return fmt.Errorf("failed to re-queue job %s: %w", job.ID, err)
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, next.Attempt+1, MaxAttempts)
	return d.Ack()
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	switch domain.CodeOf(err) {
	case domain.ErrCodeValidation, domain.ErrCodeNotFound, domain.ErrCodeAuthFailed, domain.ErrCodeNotConfigured:
		return false
	}
	return true
}
