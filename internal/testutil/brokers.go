package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NewRedisContainer starts the answer cache backend.
func NewRedisContainer(ctx context.Context, t *testing.T) *ServiceContainer {
	return startServiceContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}, "6379")
}

func (sc *ServiceContainer) RedisURL() string {
	return fmt.Sprintf("redis://%s:%s/0", sc.Host, sc.Port)
}

// NewRabbitMQContainer starts the ingest job broker.
func NewRabbitMQContainer(ctx context.Context, t *testing.T) *ServiceContainer {
	return startServiceContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{"5672/tcp"},
		Env: map[string]string{
			"RABBITMQ_DEFAULT_USER": "agiai",
			"RABBITMQ_DEFAULT_PASS": "agiai",
		},
		WaitingFor: wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
	}, "5672")
}

func (sc *ServiceContainer) AMQPURL() string {
	return fmt.Sprintf("amqp://agiai:agiai@%s:%s/", sc.Host, sc.Port)
}
