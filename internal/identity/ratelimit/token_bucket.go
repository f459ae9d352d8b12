// Package ratelimit gates login attempts with a Redis token bucket.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// The bucket lives entirely in the script so concurrent callers on different
// instances agree on the remaining tokens.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
  ts = now
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  tokens = math.min(burst, tokens + (delta / 1000) * rate)
  ts = now
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HMSET", KEYS[1], "tokens", tokens, "ts", ts)
redis.call("PEXPIRE", KEYS[1], ttl)

return allowed
`

type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

// Allow takes one token from the bucket at key, refilled at rate tokens per
// second up to burst.
func (b *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (bool, error) {
	if b == nil || b.client == nil {
		return false, errors.New("rate limit client not configured")
	}
	if key == "" {
		return false, errors.New("rate limit key is empty")
	}
	if rate <= 0 || burst <= 0 {
		return false, errors.New("rate and burst must be positive")
	}

	ttl := bucketTTL(rate, burst)
	res, err := b.script.Run(ctx, b.client, []string{key}, rate, burst, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// bucketTTL keeps the key around long enough for a drained bucket to fully
// refill twice over.
func bucketTTL(rate float64, burst int) time.Duration {
	seconds := math.Ceil((float64(burst) / rate) * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

const keyLoginAttempt = "auth:login:%s"

// LoginLimiter allows loginBurst attempts per window per client key.
type LoginLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewLoginLimiter builds the login gate: burst attempts refilling over
// window. The production policy is 5 attempts per 15 minutes.
func NewLoginLimiter(client *redis.Client, burst int, window time.Duration) *LoginLimiter {
	if burst <= 0 {
		burst = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginLimiter{
		bucket: NewTokenBucket(client),
		rate:   float64(burst) / window.Seconds(),
		burst:  burst,
	}
}

func (l *LoginLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.bucket == nil {
		return true, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyLoginAttempt, key), l.rate, l.burst)
}
