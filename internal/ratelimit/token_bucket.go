package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ingest:rl:user:"

// Limiter throttles ingest requests per user. Costs are weighted: a batch
// request pays one token per source, so a single call cannot dodge the
// per-request limit.
type Limiter interface {
	// Allow consumes a single token for the user if available.
	// Returns allowed flag and remaining token count.
	Allow(ctx context.Context, userID string) (bool, float64, error)
	// AllowN consumes cost tokens atomically, or none if the bucket
	// holds fewer than cost.
	AllowN(ctx context.Context, userID string, cost int) (bool, float64, error)
}

// TokenBucket implements a distributed per-user token bucket using Redis,
// so limits hold across replicas.
type TokenBucket struct {
	client   *redis.Client
	capacity int
	refill   float64 // tokens per second
	ttl      time.Duration
}

// NewTokenBucket constructs a bucket with the provided capacity/refill.
func NewTokenBucket(client *redis.Client, capacity int, refillPerSecond float64, ttl time.Duration) *TokenBucket {
	return &TokenBucket{
		client:   client,
		capacity: capacity,
		refill:   refillPerSecond,
		ttl:      ttl,
	}
}

func (b *TokenBucket) Allow(ctx context.Context, userID string) (bool, float64, error) {
	return b.AllowN(ctx, userID, 1)
}

func (b *TokenBucket) AllowN(ctx context.Context, userID string, cost int) (bool, float64, error) {
	if cost < 1 {
		cost = 1
	}
	now := time.Now().UnixMilli()
	res, err := bucketScript.Run(ctx, b.client, []string{keyPrefix + userID},
		b.capacity, b.refill, now, b.ttl.Milliseconds(), cost).Result()
	if err != nil {
		return false, 0, err
	}
	arr, ok := res.([]interface{})
	if !ok || len(arr) < 2 {
		return false, 0, err
	}
	allowed := arr[0].(int64) == 1
	var level float64
	switch v := arr[1].(type) {
	case string:
		level, _ = strconv.ParseFloat(v, 64)
	case int64:
		level = float64(v)
	case float64:
		level = v
	}
	return allowed, level, nil
}

// The fill level is persisted alongside its refill timestamp and returned as
// a string so the fractional part survives the Redis reply conversion. A cost
// the bucket cannot cover drains nothing.
var bucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2]) -- tokens per second
local now_ms = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])
local cost = tonumber(ARGV[5])

local level = tonumber(redis.call('HGET', KEYS[1], 'level'))
local refilled = tonumber(redis.call('HGET', KEYS[1], 'refilled_at'))
if level == nil then level = capacity end
if refilled == nil then refilled = now_ms end

if now_ms > refilled then
  level = math.min(capacity, level + (now_ms - refilled) / 1000 * rate)
end

local allowed = 0
if level >= cost then
  allowed = 1
  level = level - cost
end

redis.call('HSET', KEYS[1], 'level', level, 'refilled_at', now_ms)
if ttl_ms > 0 then redis.call('PEXPIRE', KEYS[1], ttl_ms) end
return {allowed, tostring(level)}
`)
