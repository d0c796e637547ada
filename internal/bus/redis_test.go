package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisPubSub(t *testing.T) {
	if testing.Short() || os.Getenv("HINTPARTY_CONTAINER_TESTS") == "" {
		t.Skip("set HINTPARTY_CONTAINER_TESTS=1 to run redis container tests")
	}
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	b := NewRedis(redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())}))
	t.Cleanup(func() { _ = b.Close() })
	require.NoError(t, b.Connect(ctx))

	sub, err := b.Subscribe(ctx, RoomChannel("r1"))
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, RoomChannel("r2"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })

	require.NoError(t, b.Publish(ctx, RoomChannel("r1"), "new_guess", map[string]string{"text": "苹果"}))

	select {
	case msg := <-sub.C():
		assert.Equal(t, "new_guess", msg.Event)
		assert.Equal(t, RoomChannel("r1"), msg.Channel)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, "苹果", payload["text"])
	case <-time.After(5 * time.Second):
		t.Fatal("expected message")
	}
	select {
	case msg := <-other.C():
		t.Fatalf("unexpected message on other channel: %+v", msg)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, sub.Close())
	_, open := <-sub.C()
	assert.False(t, open)
}
