package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/identity-api/internal/repository"
)

const keyPrefix = "attempts"

// AttemptLimiter is a fixed-window counter in redis, shared across process
// instances. Used to throttle authentication attempts and verification-code
// resends.
type AttemptLimiter struct {
	client *redis.Client
}

func NewAttemptLimiter(client *redis.Client) repository.AttemptLimiter {
	return &AttemptLimiter{client: client}
}

// Allow increments the counter for key and reports whether the caller is
// still under limit within the window. The first increment sets the window
// expiry; a failed expire is surfaced so a key cannot silently live forever.
func (l *AttemptLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", keyPrefix, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment attempt counter: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set attempt window: %w", err)
		}
	}

	return count <= int64(limit), nil
}
