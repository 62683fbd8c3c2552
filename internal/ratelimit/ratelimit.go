package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter holds one-shot per-user action locks in redis. A nil client allows
// every action, which is how local and test builds run.
type Limiter struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb}
}

func key(userID, action string) string {
	return fmt.Sprintf("mira:rate_limit:%s:%s", userID, action)
}

// Allow takes the lock for (userID, action) for window. It reports false when
// the lock is already held.
func (l *Limiter) Allow(ctx context.Context, userID, action string, window time.Duration) (bool, error) {
	if l == nil || l.rdb == nil || window <= 0 {
		return true, nil
	}
	ok, err := l.rdb.SetNX(ctx, key(userID, action), "locked", window).Result()
	if err != nil {
		return false, fmt.Errorf("check rate limit: %w", err)
	}
	return ok, nil
}

// RetryAfter is how long the current lock still holds.
func (l *Limiter) RetryAfter(ctx context.Context, userID, action string) (time.Duration, error) {
	if l == nil || l.rdb == nil {
		return 0, nil
	}
	ttl, err := l.rdb.TTL(ctx, key(userID, action)).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (l *Limiter) Clear(ctx context.Context, userID, action string) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Del(ctx, key(userID, action)).Err()
}
