package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deduper interface {
	// AcquireOnce возвращает true, если задача обрабатывается впервые.
	AcquireOnce(ctx context.Context, kind Kind, id string) bool
	// Release снимает отметку, чтобы повторная доставка была обработана.
	Release(ctx context.Context, kind Kind, id string)
}

type RedisDeduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl, logger: logger}
}

func dedupKey(kind Kind, id string) string {
	return fmt.Sprintf("dedup:%s:%s", kind, id)
}

func (d *RedisDeduper) AcquireOnce(ctx context.Context, kind Kind, id string) bool {
	key := dedupKey(kind, id)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		// Redis недоступен: не блокируем обработку, обработчики идемпотентны.
		d.logger.Warn("redis dedup check failed, allowing processing",
			zap.String("kind", string(kind)),
			zap.String("task_id", id),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("skipped duplicated task",
			zap.String("kind", string(kind)),
			zap.String("dedup_key", key),
		)
	}
	return ok
}

func (d *RedisDeduper) Release(ctx context.Context, kind Kind, id string) {
	if err := d.rdb.Del(ctx, dedupKey(kind, id)).Err(); err != nil {
		d.logger.Warn("redis dedup release failed",
			zap.String("kind", string(kind)),
			zap.String("task_id", id),
			zap.Error(err),
		)
	}
}
