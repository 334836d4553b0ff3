package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOpenAIAPI is a mock for the embeddings API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func TestClient_GenerateEmbedding_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 1536, timeout: time.Second}

	text := "Our store ships to every EU country."
	expectedEmbedding := make([]float32, 1536)
	for i := range expectedEmbedding {
		expectedEmbedding[i] = float32(i) * 0.001
	}

	mockAPI.On("CreateEmbeddings", mock.Anything, text).Return(expectedEmbedding, nil)

	embedding, err := client.GenerateEmbedding(context.Background(), text)

	assert.NoError(t, err)
	assert.Equal(t, expectedEmbedding, embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_AnyDimensionWhenUnset(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}

	mockAPI.On("CreateEmbeddings", mock.Anything, "hi").Return([]float32{0.1, 0.2, 0.3}, nil)

	embedding, err := client.GenerateEmbedding(context.Background(), "hi")

	require.NoError(t, err)
	assert.Len(t, embedding, 3)
}

func TestClient_GenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("")

	embedding, err := client.GenerateEmbedding(context.Background(), "")

	assert.Nil(t, embedding)
	assert.ErrorIs(t, err, domain.ErrEmptyText)
}

func TestClient_GenerateEmbedding_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}

	apiErr := errors.New("upstream connect error")
	mockAPI.On("CreateEmbeddings", mock.Anything, "Test text").Return(nil, apiErr)

	embedding, err := client.GenerateEmbedding(context.Background(), "Test text")

	assert.Nil(t, embedding)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, apiErr)
	assert.Contains(t, err.Error(), "upstream connect error")
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_WrongDimensions(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	mockAPI.On("CreateEmbeddings", mock.Anything, "Test text").Return(make([]float32, 512), nil)

	embedding, err := client.GenerateEmbedding(context.Background(), "Test text")

	assert.Nil(t, embedding)
	assert.ErrorIs(t, err, ErrWrongDimensions)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_AppliesTimeout(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, timeout: 5 * time.Second}

	mockAPI.On("CreateEmbeddings", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 5*time.Second
	}), "x").Return([]float32{1}, nil)

	_, err := client.GenerateEmbedding(context.Background(), "x")

	require.NoError(t, err)
	mockAPI.AssertExpectations(t)
}

func TestNewClientWithConfig(t *testing.T) {
	client := NewClientWithConfig(Config{
		APIKey:              "test-api-key",
		BaseURL:             "http://localhost:11434/v1",
		EmbeddingDimensions: 768,
	})

	assert.NotNil(t, client.api)
	assert.Equal(t, 768, client.dimensions)
	assert.Equal(t, DefaultEmbeddingTimeout, client.timeout)
}
