//go:build integration

package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/Waqasabid99/agiAI/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container := testutil.NewRabbitMQContainer(ctx, t)
	defer container.Terminate(ctx)

	conn, err := Dial(ctx, container.AMQPURL())
	require.NoError(t, err)
	defer conn.Close()

	job := domain.NewIngestJob("job-1", domain.IngestJobKindSite, "https://acme.test", time.Now().UTC().Truncate(time.Second))
	job.MaxPages = 5

	require.NoError(t, NewPublisher(conn, "test.ingest").PublishIngestJob(ctx, job))

	subCtx, stop := context.WithCancel(ctx)
	defer stop()
	deliveries, err := NewSubscriber(conn, "test.ingest", 1).Subscribe(subCtx)
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		var got domain.IngestJob
		require.NoError(t, json.Unmarshal(d.Body(), &got))
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, job.Kind, got.Kind)
		assert.Equal(t, 5, got.MaxPages)
		assert.True(t, job.CreatedAt.Equal(got.CreatedAt))
		require.NoError(t, d.Ack())
	case <-ctx.Done():
		t.Fatal("no delivery received")
	}

	stop()
	for range deliveries {
	}
}
