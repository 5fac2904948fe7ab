package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/roamly/roamly/internal/store"
)

// TestRedis manages a Redis testcontainer and the store wired to it
type TestRedis struct {
	Container testcontainers.Container
	Store     *store.RedisStore
	close     func()
}

// SetupTestRedis starts a Redis container and returns a connected store
func SetupTestRedis(ctx context.Context) (*TestRedis, error) {
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	client, err := store.NewRedisClient(ctx, fmt.Sprintf("%s:%s", host, port.Port()), "", 0)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &TestRedis{
		Container: container,
		Store:     store.NewRedisStore(client),
		close:     func() { _ = client.Close() },
	}, nil
}

// Teardown closes the client and stops the container
func (tr *TestRedis) Teardown(ctx context.Context) error {
	if tr.close != nil {
		tr.close()
	}
	if tr.Container != nil {
		return tr.Container.Terminate(ctx)
	}
	return nil
}
