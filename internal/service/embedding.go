package service

import (
	"context"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"golang.org/x/time/rate"
)

// EmbeddingClient defines the interface for generating embeddings.
// Implementations fail with an EMBEDDING_UNAVAILABLE domain error.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// throttledEmbedder issues embedding requests one at a time, waiting on an
// optional limiter before each call.
type throttledEmbedder struct {
	client  EmbeddingClient
	limiter *rate.Limiter
}

func newThrottledEmbedder(client EmbeddingClient, perSecond float64) *throttledEmbedder {
	e := &throttledEmbedder{client: client}
	if perSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return e
}

func (e *throttledEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingUnavailable, "embedding throttle interrupted", err)
		}
	}
	vec, err := e.client.GenerateEmbedding(ctx, text)
	if err != nil {
		switch domain.CodeOf(err) {
		case domain.ErrCodeEmbeddingUnavailable, domain.ErrCodeNotConfigured:
			return nil, err
		}
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingUnavailable, "failed to generate embedding", err)
	}
	if len(vec) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeEmbeddingUnavailable, "provider returned an empty embedding")
	}
	return vec, nil
}
