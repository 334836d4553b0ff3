package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithoutDSNIsNoop(t *testing.T) {
	shutdown, err := Init(Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
}

func TestIsQuiet(t *testing.T) {
	assert.True(t, isQuiet("GET /health"))
	assert.True(t, isQuiet("get /stats"))
	assert.False(t, isQuiet("POST /query"))
	assert.False(t, isQuiet("GET /healthz"))
}

func TestSpanWithoutClient(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.op", SpanAttributes{
		SourceURL: "https://acme.test/",
		Backend:   "memory",
		Operation: "ingest",
		TopK:      3,
	})
	require.NotNil(t, ctx)

	span.SetData("chunks_stored", 2)
	span.SetError(errors.New("boom"))
	span.SetError(nil)
	span.End()

	AddBreadcrumb(ctx, "ingest", "stored 2 chunks")
}

func TestNilSpanIsSafe(t *testing.T) {
	var span Span
	span.SetData("k", 1)
	span.SetError(errors.New("boom"))
	span.End()
}
