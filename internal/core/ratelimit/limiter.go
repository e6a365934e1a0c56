// Package ratelimit counts requests per key in fixed windows stored in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gichigi/choir/internal/core"
)

const defaultPrefix = "choir:ratelimit"

// Limiter admits at most limit requests per key in each window. Windows are
// aligned to the epoch, so every replica sharing the Redis agrees on them.
type Limiter struct {
	rdb    redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

var _ core.RateLimiter = (*Limiter)(nil)

// New wraps an existing Redis client. Close closes rdb.
func New(rdb redis.UniversalClient, prefix string, limit int, window time.Duration) (*Limiter, error) {
	if rdb == nil {
		return nil, errors.New("rate limiter requires a redis client")
	}
	if limit <= 0 || window < time.Millisecond {
		return nil, fmt.Errorf("rate limiter requires a positive limit and window, got %d per %s", limit, window)
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Limiter{rdb: rdb, prefix: prefix, limit: limit, window: window, now: time.Now}, nil
}

// Dial connects to Redis at addr and checks it answers before returning.
// Close releases the connection.
func Dial(ctx context.Context, addr, password string, limit int, window time.Duration) (*Limiter, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("%w: rate limiter redis at %s: %v", core.ErrUnavailable, addr, err)
	}
	l, err := New(rdb, "", limit, window)
	if err != nil {
		rdb.Close()
		return nil, err
	}
	return l, nil
}

// Allow counts one request for key. Redis failures come back as
// core.ErrUnavailable with a zero decision.
func (l *Limiter) Allow(ctx context.Context, key string) (core.RateDecision, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}

	now := l.now()
	windowMs := l.window.Milliseconds()
	slot := now.UnixMilli() / windowMs
	resetAt := time.UnixMilli((slot + 1) * windowMs)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		// The key outlives its window slightly so late replicas never see a reset count.
		pipe.PExpire(ctx, redisKey, l.window+time.Second)
		return nil
	})
	if err != nil {
		return core.RateDecision{}, fmt.Errorf("%w: rate limiter: %v", core.ErrUnavailable, err)
	}

	count := int(incr.Val())
	d := core.RateDecision{Allowed: count <= l.limit, Remaining: max(l.limit-count, 0)}
	if !d.Allowed {
		d.RetryAfter = resetAt.Sub(now)
	}
	return d, nil
}

func (l *Limiter) Close() error {
	return l.rdb.Close()
}
