// Package cache — короткоживущий кеш агрегатов в Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// JSONCache хранит значения в JSON под ключом с TTL.
type JSONCache interface {
	// Get заполняет dest; false — промах (или кеш недоступен).
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, v any)
	Delete(ctx context.Context, key string)
}

type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(rdb *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(k string) string { return c.prefix + ":" + k }

func (c *RedisCache) Get(ctx context.Context, key string, dest any) bool {
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// Set молча игнорирует ошибки: кеш не влияет на корректность.
func (c *RedisCache) Set(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, c.key(key), raw, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, c.key(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return
	}
}

// Nop — кеш без хранения, когда Redis не настроен.
type Nop struct{}

func (Nop) Get(context.Context, string, any) bool { return false }
func (Nop) Set(context.Context, string, any)      {}
func (Nop) Delete(context.Context, string)        {}
