package cache

import (
	"context"
	"errors"
	"time"

	"social-hub/domain/repository"
	"social-hub/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewCache creates a Redis client and verifies connectivity.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Redis ping failed")
		return nil, err
	}
	return client, nil
}

type redisCache struct {
	client *redis.Client
}

// NewRedisCache wraps a Redis client as the TTL cache the state store
// consumes. GetDel maps to the GETDEL command, which makes consume atomic:
// concurrent callbacks racing on one key see it exactly once.
func NewRedisCache(client *redis.Client) repository.ICache {
	return &redisCache{client: client}
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *redisCache) GetDel(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *redisCache) Delete(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *redisCache) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	d, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, err
	}
	// go-redis returns -2 for a missing key and -1 for a key without expiry.
	if d < 0 {
		return 0, false, nil
	}
	return d, true, nil
}
