package override

import (
	"context"
	"os"
	"testing"
	"time"

	"localcart/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySetGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(0)

	_, err := repo.Get(ctx, "customer:c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Set(ctx, "customer:c1", "14850"))
	zip, err := repo.Get(ctx, "customer:c1")
	require.NoError(t, err)
	assert.Equal(t, "14850", zip)

	require.NoError(t, repo.Delete(ctx, "customer:c1"))
	_, err = repo.Get(ctx, "customer:c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryExpires(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(time.Minute).(*memoryRepo)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Set(ctx, "anonymous:a1", "10001"))
	now = now.Add(59 * time.Second)
	zip, err := repo.Get(ctx, "anonymous:a1")
	require.NoError(t, err)
	assert.Equal(t, "10001", zip)

	now = now.Add(time.Second)
	_, err = repo.Get(ctx, "anonymous:a1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	repo := NewRedis(client, time.Minute, nil)

	require.NoError(t, repo.Set(ctx, "customer:redis-test", "14853"))
	zip, err := repo.Get(ctx, "customer:redis-test")
	require.NoError(t, err)
	assert.Equal(t, "14853", zip)

	ttl, err := client.TTL(ctx, keyPrefix+"customer:redis-test").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, repo.Delete(ctx, "customer:redis-test"))
	_, err = repo.Get(ctx, "customer:redis-test")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
