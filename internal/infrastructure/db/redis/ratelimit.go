package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// RateLimiter is a fixed-window counter per key.
// Key format: ratelimit:<scope>:<key>:<window_index>
type RateLimiter struct {
	client *redis.Client
	scope  string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(client *redis.Client, scope string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		scope:  scope,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow counts one hit for key in the current window.
func (l *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	windowKey, resetIn := l.windowKey(key, now)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, resetIn+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit}, fmt.Errorf("rate limit %s: %w", l.scope, err)
	}

	return decide(incr.Val(), l.limit, resetIn), nil
}

func (l *RateLimiter) windowKey(key string, now time.Time) (string, time.Duration) {
	idx := now.UnixNano() / int64(l.window)
	end := time.Unix(0, (idx+1)*int64(l.window))
	return fmt.Sprintf("ratelimit:%s:%s:%d", l.scope, key, idx), end.Sub(now)
}

func decide(count int64, limit int, resetIn time.Duration) Decision {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetIn:   resetIn,
	}
}
