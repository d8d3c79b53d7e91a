//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a throwaway Redis for the test.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return host + ":" + port.Port()
}

func TestConnectAndRoundTrip(t *testing.T) {
	addr := setupRedisContainer(t)
	ctx := context.Background()

	m, err := Connect(ctx, addr, 0, 2*time.Second, nil)
	require.NoError(t, err)
	defer m.Close()

	key := Key{Service: "arxiv", URL: "http://export.arxiv.org/api/query"}
	m.Store(ctx, key, []byte("<feed/>"), "application/atom+xml")

	body, ok := m.Lookup(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "<feed/>", string(body))

	// Redis expires the key on its own once the TTL passes
	time.Sleep(2500 * time.Millisecond)
	_, ok = m.Lookup(ctx, key)
	assert.False(t, ok)
}

func TestConnectFailsForDeadAddress(t *testing.T) {
	_, err := Connect(context.Background(), "127.0.0.1:1", 0, time.Minute, nil)
	assert.Error(t, err)
}
