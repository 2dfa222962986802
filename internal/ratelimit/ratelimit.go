// Package ratelimit enforces the duplicate-submission policy: at most one
// committed order per user within a configured window. The window and the
// policy itself are deployment configuration, not hard-coded behavior.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter answers whether a user may commit another order right now.
type Limiter interface {
	Allow(ctx context.Context, chatID int64) (bool, error)
	MarkSubmitted(ctx context.Context, chatID int64) error
}

// Disabled is a Limiter that always allows, used when the policy is off.
type Disabled struct{}

func (Disabled) Allow(context.Context, int64) (bool, error)  { return true, nil }
func (Disabled) MarkSubmitted(context.Context, int64) error { return nil }

// RedisLimiter keeps one key per user with the window as TTL.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
}

// NewRedisLimiter constructs the limiter.
func NewRedisLimiter(client *redis.Client, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &RedisLimiter{client: client, window: window}
}

// Allow reports whether no submission marker exists for the user. On a
// Redis error it fails open so the intake never hard-depends on Redis.
func (l *RedisLimiter) Allow(ctx context.Context, chatID int64) (bool, error) {
	exists, err := l.client.Exists(ctx, l.key(chatID)).Result()
	if err != nil {
		return true, err
	}
	return exists == 0, nil
}

// MarkSubmitted records a successful commit, expiring after the window.
func (l *RedisLimiter) MarkSubmitted(ctx context.Context, chatID int64) error {
	return l.client.Set(ctx, l.key(chatID), time.Now().Unix(), l.window).Err()
}

func (l *RedisLimiter) key(chatID int64) string {
	return fmt.Sprintf("orders:submitted:%d", chatID)
}
