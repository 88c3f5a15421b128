package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMemoryClient_SetGet(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Expiry(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Millisecond))
	require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryClient_EvictsWhenFull(t *testing.T) {
	c := NewMemoryClient(2)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Hour))

	assert.Equal(t, 2, c.Len())
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss, "oldest insertion is evicted first")

	// Overwriting an existing key never evicts.
	require.NoError(t, c.Set(ctx, "c", []byte("4"), time.Hour))
	assert.Equal(t, 2, c.Len())
}

func TestMemoryClient_EvictsExpiredBeforeLive(t *testing.T) {
	c := NewMemoryClient(2)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "old", []byte("1"), time.Hour))
	require.NoError(t, c.Set(ctx, "stale", []byte("2"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, c.Set(ctx, "new", []byte("3"), time.Hour))

	_, err := c.Get(ctx, "old")
	assert.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestMemoryClient_CopiesValues(t *testing.T) {
	c := NewMemoryClient(0)
	defer c.Close()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestMemoryClient_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryClient(0)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "summary:abc:50", Key("summary", "abc", "50"))
}

func TestRedisClient_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis container test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("Docker not available: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewRedisClient(RedisConfig{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, client.Set(ctx, "k", []byte("summary"), time.Minute))
	got, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "summary", string(got))

	require.NoError(t, client.Delete(ctx, "k"))
	_, err = client.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(RedisConfig{Addr: "cache:6379", DB: 2, PoolSize: 4})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions(RedisConfig{Addr: "redis://:pw@cache:6380/3", PoolSize: 8})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 8, opts.PoolSize)

	_, err = redisOptions(RedisConfig{Addr: "redis://cache:6379/notadb"})
	require.Error(t, err)
}
