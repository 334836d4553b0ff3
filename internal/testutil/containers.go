// Package testutil starts the backing services used by integration tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Waqasabid99/agiAI/internal/database"
	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// ServiceContainer is a started container with one exposed port.
type ServiceContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

func (sc *ServiceContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(sc.Container)
}

func startServiceContainer(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest, port string) *ServiceContainer {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to create %s container: %v", req.Image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}

	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	return &ServiceContainer{Container: container, Host: host, Port: mapped.Port()}
}

const pgCredential = "agiai"

// PostgresContainer runs postgres with the pgvector extension available.
type PostgresContainer struct {
	*ServiceContainer
}

func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	return &PostgresContainer{startServiceContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:0.8.1-pg18",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pgCredential,
			"POSTGRES_PASSWORD": pgCredential,
			"POSTGRES_DB":       pgCredential,
		},
		// postgres restarts once after initdb, so the second readiness line is the real one
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(60 * time.Second),
	}, "5432")}
}

func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		pgCredential, pgCredential, pc.Host, pc.Port, pgCredential)
}

// NewTestPool connects to the container and applies the migrations in
// migrationsDir with the same runner the server uses.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()
	pool, err := database.NewPool(ctx, database.Config{
		URL:             pc.ConnectionString(),
		ConnectAttempts: 5,
	})
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	if _, err := database.Migrate(pc.ConnectionString(), migrationsDir); err != nil {
		pool.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	return pool
}

// ResetDatabase empties the migrated tables and drops the lazily created index
// tables so every test starts without an index
func ResetDatabase(ctx context.Context, pool *pgxpool.Pool, indexTables ...string) error {
	if _, err := pool.Exec(ctx, "TRUNCATE TABLE query_logs"); err != nil {
		return fmt.Errorf("failed to truncate query_logs: %w", err)
	}
	for _, table := range indexTables {
		if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	return nil
}

// RustFSContainer is an S3-compatible object store for the page archive.
type RustFSContainer struct {
	*ServiceContainer
}

const (
	RustFSAccessKey = "rustfsadmin"
	RustFSSecretKey = "rustfsadmin"
)

func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	return &RustFSContainer{startServiceContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        "rustfs/rustfs:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": RustFSAccessKey,
			"RUSTFS_SECRET_KEY": RustFSSecretKey,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	}, "9000")}
}

func (rc *RustFSContainer) Endpoint() string {
	return fmt.Sprintf("http://%s:%s", rc.Host, rc.Port)
}
