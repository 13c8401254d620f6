package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coneflip/overlay-server-go/internal/clock"
)

func TestRedis_Claim(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	defer client.Close()

	ctx := context.Background()
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		t.Skip("Redis not available for testing")
	}
	client.FlushDB(ctx)

	store := NewRedis(client, time.Minute, NewMemory(clock.Real(), time.Minute))

	ok, err := store.Claim(ctx, "duel_win:d1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "duel_win:d1")
	require.NoError(t, err)
	assert.False(t, ok)

	ttl := client.TTL(ctx, "dedup:duel_win:d1").Val()
	assert.Greater(t, ttl, 50*time.Second)
}

func TestRedis_FallsBackToMemory(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:9999",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	fc := clock.Fake(time.Unix(1000, 0))
	store := NewRedis(client, time.Minute, NewMemory(fc, time.Minute))
	ctx := context.Background()

	ok, err := store.Claim(ctx, "fail:c1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "fail:c1")
	require.NoError(t, err)
	assert.False(t, ok)
}
