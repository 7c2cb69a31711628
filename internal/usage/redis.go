package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quizethic/quizethic-ai/internal/platform/cache"
)

// Keys expire a day after their day ends.
const counterTTL = 48 * time.Hour

// RedisCounter keeps daily counters as expiring Redis keys.
type RedisCounter struct {
	cache *cache.Cache
}

func NewRedisCounter(c *cache.Cache) (*RedisCounter, error) {
	if c == nil || c.Client == nil {
		return nil, errors.New("cache is nil")
	}
	return &RedisCounter{cache: c}, nil
}

func (c *RedisCounter) key(userID string, day time.Time) string {
	return c.cache.Key("usage", userID, dayKey(day))
}

func (c *RedisCounter) Count(ctx context.Context, userID string, day time.Time) (int, error) {
	n, err := c.cache.Int(ctx, c.key(userID, day))
	if err != nil {
		return 0, fmt.Errorf("read usage counter: %w", err)
	}
	return n, nil
}

func (c *RedisCounter) Increment(ctx context.Context, userID string, day time.Time) (int, error) {
	n, err := c.cache.IncrWithTTL(ctx, c.key(userID, day), counterTTL)
	if err != nil {
		return 0, fmt.Errorf("increment usage counter: %w", err)
	}
	return n, nil
}
