package fx

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "fx:rate"

// RedisCache shares market rates between processes through Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache constructs a cache helper. An empty prefix uses "fx:rate".
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Key returns the Redis key used for pair.
func (c *RedisCache) Key(pair Pair) string {
	return c.prefix + ":" + string(pair.From) + ":" + string(pair.To)
}

// Get reads the cached entry. It reports whether the key existed.
func (c *RedisCache) Get(ctx context.Context, pair Pair) (Entry, bool, error) {
	if c == nil || c.client == nil {
		return Entry{}, false, nil
	}
	data, err := c.client.Get(ctx, c.Key(pair)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// Put serialises entry as JSON and stores it with ttl.
func (c *RedisCache) Put(ctx context.Context, pair Pair, entry Entry, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.Key(pair), data, ttl).Err()
}
