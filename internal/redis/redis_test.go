package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklog-summary/internal/config"
	"worklog-summary/internal/task"
)

func TestNilClientIsNoop(t *testing.T) {
	var c *Client
	ctx := context.Background()

	release, err := c.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	release()

	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, val)

	assert.NoError(t, c.Set(ctx, "k", "v", time.Second))
	assert.NoError(t, c.Close())
}

// newLiveClient connects to REDIS_ADDRESS or skips the test.
func newLiveClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS not set")
	}
	c, err := NewClient(&config.RedisConfig{Enabled: true, Address: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestTryLock_Exclusive(t *testing.T) {
	c := newLiveClient(t)
	ctx := context.Background()
	key := "test:lock:" + uuid.New().String()

	release, err := c.TryLock(ctx, key, 10*time.Second)
	require.NoError(t, err)

	_, err = c.TryLock(ctx, key, 10*time.Second)
	assert.ErrorIs(t, err, task.ErrSweepLocked)

	release()
	again, err := c.TryLock(ctx, key, 10*time.Second)
	require.NoError(t, err)
	again()
}

func TestGetSet(t *testing.T) {
	c := newLiveClient(t)
	ctx := context.Background()
	key := "test:insight:" + uuid.New().String()

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, "tip", time.Minute))
	val, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tip", val)
}
