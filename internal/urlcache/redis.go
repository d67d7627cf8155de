package urlcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const backendRedis = "redis"

// RedisCache — общий для всех реплик кэш URL в Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache создаёт кэш поверх готового клиента Redis.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get возвращает URL из Redis. redis.Nil — промах, не ошибка.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		cacheMissesTotal.WithLabelValues(backendRedis).Inc()
		return "", false, nil
	}
	if err != nil {
		cacheErrorsTotal.WithLabelValues(backendRedis, "get").Inc()
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	cacheHitsTotal.WithLabelValues(backendRedis).Inc()
	return val, true, nil
}

// Put сохраняет URL с TTL.
func (c *RedisCache) Put(ctx context.Context, key, url string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, url, ttl).Err(); err != nil {
		cacheErrorsTotal.WithLabelValues(backendRedis, "put").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete удаляет запись.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		cacheErrorsTotal.WithLabelValues(backendRedis, "delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// CheckReady проверяет доступность Redis для readiness probe.
// Недоступный кэш не блокирует работу: статус degraded, а не fail.
func (c *RedisCache) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return "degraded", fmt.Sprintf("Redis недоступен: %v", err)
	}
	return "ok", "Redis доступен"
}
