package out

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"retort/internal/modules/lethality/domain"
	lethalityout "retort/internal/modules/lethality/port/out"
)

const defaultResultTTL = 24 * time.Hour

// RedisResultCache shares evaluations between processes.
type RedisResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ lethalityout.ResultCache = (*RedisResultCache)(nil)

func NewRedisResultCache(addr, password string, db int) *RedisResultCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisResultCache{client: client, ttl: defaultResultTTL}
}

func (c *RedisResultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisResultCache) Close() error {
	return c.client.Close()
}

func (c *RedisResultCache) Get(ctx context.Context, key string) (domain.Result, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Result{}, false, nil
	}
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	result := domain.Result{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.Result{}, false, fmt.Errorf("decode cached result: %w", err)
	}
	return result, true, nil
}

func (c *RedisResultCache) Set(ctx context.Context, key string, result domain.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
