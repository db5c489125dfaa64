package redis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitConfig is a request budget for one upstream
type RateLimitConfig struct {
	Key    string // upstream identifier, e.g. "cdc"
	Limit  int
	Window time.Duration
}

// Upstream budgets. Both sources are public pages; stay well under anything
// that looks like a crawl.
var (
	CDCRateLimit          = RateLimitConfig{Key: "cdc", Limit: 10, Window: time.Minute}
	WorldometersRateLimit = RateLimitConfig{Key: "worldometers", Limit: 6, Window: time.Minute}
)

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // zero when Allowed
}

// RateLimiter is a sliding-window limiter kept in a Redis sorted set, shared
// by every healthdash process pointed at the same Redis
// ⭐ SSOT: shared rate limiting lives here only
type RateLimiter struct {
	client *Client
	prefix string
	seq    atomic.Uint64
}

func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix}
}

// KEYS[1] window set; ARGV now_ms, window_ms, limit, member.
// Returns {allowed, remaining, retry_after_ms}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window)
	return {1, limit - count - 1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local wait = window
if oldest[2] then
	wait = tonumber(oldest[2]) + window - now
end
return {0, 0, wait}
`)

// Allow records a request against cfg if the window has room
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (Decision, error) {
	if !r.client.Enabled() {
		return Decision{Allowed: true, Remaining: cfg.Limit}, nil
	}

	now := time.Now().UnixMilli()
	member := fmt.Sprintf("%d-%d", now, r.seq.Add(1))
	key := r.prefix + ":ratelimit:" + cfg.Key

	vals, err := slidingWindow.Run(ctx, r.client.Redis(), []string{key},
		now, cfg.Window.Milliseconds(), cfg.Limit, member).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", cfg.Key, err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("rate limit %s: unexpected reply %v", cfg.Key, vals)
	}

	return Decision{
		Allowed:    vals[0] == 1,
		Remaining:  int(vals[1]),
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// Wait blocks until cfg admits a request or ctx is done
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		d, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if d.Allowed {
			return nil
		}

		pause := d.RetryAfter
		if pause <= 0 {
			pause = 50 * time.Millisecond
		}
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
