package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisIncrScript increments the key, arms its expiry on the first hit (or when
// the key somehow lost its TTL) and returns {count, pttl}.
var redisIncrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if current == 1 or ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisCounter implements a fixed-window counter shared by every instance
// pointing at the same Redis.
type RedisCounter struct {
	client redis.UniversalClient
	nowFn  func() time.Time
}

// NewRedisCounter constructs a RedisCounter; nowFn defaults to time.Now.
func NewRedisCounter(client redis.UniversalClient, nowFn func() time.Time) *RedisCounter {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &RedisCounter{client: client, nowFn: nowFn}
}

// IncrementAndCheck atomically increments key and reads back its remaining TTL.
func (c *RedisCounter) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	if c == nil || c.client == nil {
		return Result{}, errors.New("rate limit redis: client not initialized")
	}
	windowMs := window.Milliseconds()
	if windowMs <= 0 {
		windowMs = 1
	}
	now := c.nowFn()
	res, errEval := redisIncrScript.Run(ctx, c.client, []string{key}, windowMs).Result()
	if errEval != nil {
		return Result{}, fmt.Errorf("rate limit redis: eval: %w", errEval)
	}
	count, ttl, errParse := parseScriptReply(res)
	if errParse != nil {
		return Result{}, errParse
	}
	return newResult(count, limit, now.Add(time.Duration(ttl)*time.Millisecond)), nil
}

func parseScriptReply(res any) (int64, int64, error) {
	values, ok := res.([]any)
	if !ok || len(values) != 2 {
		return 0, 0, errors.New("rate limit redis: unexpected response shape")
	}
	count, okCount := toInt64(values[0])
	ttl, okTTL := toInt64(values[1])
	if !okCount || !okTTL {
		return 0, 0, errors.New("rate limit redis: unexpected response type")
	}
	return count, ttl, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}
