package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/coneflip/overlay-server-go/internal/redis"
)

// Redis claims keys with SET NX EX so duplicates are caught across server
// instances. When Redis is unreachable it degrades to the in-process set.
type Redis struct {
	client   redis.Cmdable
	ttl      time.Duration
	fallback *Memory
}

func NewRedis(client redis.Cmdable, ttl time.Duration, fallback *Memory) *Redis {
	return &Redis{client: client, ttl: ttl, fallback: fallback}
}

func (r *Redis) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, redisclient.DedupKey(key), 1, r.ttl).Result()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis dedup claim failed, using in-memory set")
		return r.fallback.Claim(ctx, key)
	}
	return ok, nil
}

// Sweep only touches the fallback set; Redis expires its own keys.
func (r *Redis) Sweep(ctx context.Context) (int64, error) {
	return r.fallback.Sweep(ctx)
}
