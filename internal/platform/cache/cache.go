// Package cache holds the Redis connection used for per-day usage counters.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes every key unless Wrap is given another one.
const DefaultNamespace = "quizethic"

// Cache is a namespaced Redis handle.
type Cache struct {
	Client    redis.Cmdable
	namespace string
	closer    func() error
}

// ParseURL turns a redis:// or rediss:// URL into client options with the
// service's timeouts applied.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, errors.New("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second
	return opts, nil
}

// New connects and pings. The returned Cache owns the client.
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Addr, err)
	}
	return &Cache{Client: client, namespace: DefaultNamespace, closer: client.Close}, nil
}

// Wrap shares an existing client under another namespace. Close does not
// close the shared client.
func Wrap(client redis.Cmdable, namespace string) *Cache {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Cache{Client: client, namespace: namespace}
}

// Key builds "<namespace>:<part>:<part>...".
func (c *Cache) Key(parts ...string) string {
	return c.namespace + ":" + strings.Join(parts, ":")
}

// Int reads an integer key. A missing key reads as zero.
func (c *Cache) Int(ctx context.Context, key string) (int, error) {
	n, err := c.Client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// IncrWithTTL increments key and refreshes its expiry in one MULTI block, so a
// counter never outlives ttl after its last write.
func (c *Cache) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int, error) {
	var incr *redis.IntCmd
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

func (c *Cache) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
