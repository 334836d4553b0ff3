package openai

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/Waqasabid99/agiAI/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatBaseURL points at Groq's OpenAI-compatible endpoint
	DefaultChatBaseURL = "https://api.groq.com/openai/v1"
	// DefaultChatModel is the completion model
	DefaultChatModel = "llama-3.3-70b-versatile"
	// DefaultGenerationTimeout bounds one completion request
	DefaultGenerationTimeout = 60 * time.Second

	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
)

// ChatAPI is the subset of the go-openai client used for completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatConfig configures ChatClient. A nil Temperature means the default; zero
// is a valid setting.
type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float32
	MaxTokens   int
	Timeout     time.Duration
}

// ChatClient generates answers through an OpenAI-compatible chat completion API.
type ChatClient struct {
	api         ChatAPI
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

func NewChatClient(cfg ChatConfig) *ChatClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultChatBaseURL
	}
	return newChatClient(openai.NewClientWithConfig(clientConfig(cfg.APIKey, baseURL)), cfg)
}

func newChatClient(api ChatAPI, cfg ChatConfig) *ChatClient {
	c := &ChatClient{
		api:         api,
		model:       cfg.Model,
		temperature: defaultTemperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
	}
	if c.model == "" {
		c.model = DefaultChatModel
	}
	if cfg.Temperature != nil {
		c.temperature = *cfg.Temperature
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}
	if c.timeout <= 0 {
		c.timeout = DefaultGenerationTimeout
	}
	return c
}

// Generate sends the system instruction and user prompt as a two-message chat.
func (c *ChatClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: requestTemperature(c.temperature),
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", mapGenerationError(err)
	}

	if len(resp.Choices) == 0 {
		return "", domain.NewDomainError(domain.ErrCodeGenerationUnavailable, "provider returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// requestTemperature keeps a zero temperature on the wire; go-openai drops a
// zero float32 as omitempty, which would leave the provider default in effect.
func requestTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// mapGenerationError converts provider failures into stable domain error codes,
// keeping the provider message.
func mapGenerationError(err error) error {
	status := 0
	message := err.Error()

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		if apiErr.Message != "" {
			message = apiErr.Message
		}
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewDomainErrorWithCause(domain.ErrCodeGenerationUnavailable, "generation timed out", err)
	}

	lower := strings.ToLower(message)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden ||
		strings.Contains(lower, "invalid api key"):
		return domain.NewDomainErrorWithCause(domain.ErrCodeAuthFailed, message, err)
	case status == http.StatusTooManyRequests || strings.Contains(lower, "rate limit"):
		return domain.NewDomainErrorWithCause(domain.ErrCodeRateLimited, message, err)
	default:
		return domain.NewDomainErrorWithCause(domain.ErrCodeGenerationUnavailable, message, err)
	}
}
