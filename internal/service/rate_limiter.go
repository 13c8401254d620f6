package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/coneflip/overlay-server-go/internal/redis"
)

// slidingWindowScript trims the window, then admits the request if the
// remaining count is under the limit. Returns {allowed, resetAt, remaining}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)
if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = now + window
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    end
    return {0, resetAt, 0}
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)
return {1, now + window, limit - count - 1}
`)

type RateLimitDecision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter is a Redis-backed sliding window limiter shared by every
// server instance.
type RateLimiter struct {
	client redis.Scripter
}

func NewRateLimiter(client redis.Scripter) *RateLimiter {
	return &RateLimiter{client: client}
}

// CheckLimit fails closed: a Redis error denies the request.
func (rl *RateLimiter) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) RateLimitDecision {
	now := time.Now()
	denied := RateLimitDecision{ResetAt: now.Add(window)}

	result, err := slidingWindowScript.Run(
		ctx,
		rl.client,
		[]string{redisclient.RateLimitKey(key)},
		now.Unix(),
		int64(window.Seconds()),
		limit,
	).Int64Slice()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("rate limit check failed, denying request")
		return denied
	}
	if len(result) != 3 {
		log.Warn().Str("key", key).Int("len", len(result)).Msg("unexpected rate limit result, denying request")
		return denied
	}

	return RateLimitDecision{
		Allowed:   result[0] == 1,
		ResetAt:   time.Unix(result[1], 0),
		Remaining: int(result[2]),
	}
}
