package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the counter and starts the window on the first hit.
// Returns {count, remaining window in ms}. A key that somehow lost its expiry is
// given a fresh window rather than counting forever.
//
// KEYS[1]: counter key
// ARGV[1]: window in milliseconds
var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiter keeps window counters in Redis so quotas hold across instances
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter creates a limiter storing counters under "ratelimit:<key>"
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: "ratelimit:"}
}

// Enforce implements Limiter
func (l *RedisLimiter) Enforce(ctx context.Context, key string, limit int, window time.Duration) error {
	res, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return fmt.Errorf("rate limit check for %s: %w", key, err)
	}
	if len(res) != 2 {
		return fmt.Errorf("rate limit check for %s: unexpected script reply %v", key, res)
	}

	if res[0] > int64(limit) {
		return &LimitError{Key: key, RetryAfter: time.Duration(res[1]) * time.Millisecond}
	}
	return nil
}

var _ Limiter = (*RedisLimiter)(nil)
