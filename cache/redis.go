package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"EchoCanvas/logger"

	"github.com/go-redis/redis/v8"
)

const opTimeout = 2 * time.Second

// Cache stores JSON values in Redis. A Cache without a client is disabled:
// reads miss and writes are dropped.
type Cache struct {
	client *redis.Client
}

func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// getJSON decodes key into dst. It reports false on a miss.
func (c *Cache) getJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.Warn("丢弃无法解析的缓存", logger.String("key", key), logger.ErrorField(err))
		c.client.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

func (c *Cache) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	logger.Debug("缓存设置成功",
		logger.String("key", key),
		logger.Int("dataSize", len(data)),
		logger.Duration("expiration", ttl))
	return nil
}
