package urlcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const backendMemory = "memory"

// memoryEntry — URL и момент истечения записи.
type memoryEntry struct {
	url       string
	expiresAt time.Time
}

// MemoryCache — LRU-кэш URL с автоматическим TTL.
// Каждый экземпляр сервиса имеет собственный in-memory кэш.
type MemoryCache struct {
	cache  *expirable.LRU[string, memoryEntry]
	maxTTL time.Duration
	now    func() time.Time
}

// NewMemoryCache создаёт LRU-кэш с указанным максимальным размером и TTL.
// maxSize — максимальное количество записей в кэше.
// maxTTL — верхняя граница времени жизни записи; Put с меньшим ttl
// истекает раньше.
func NewMemoryCache(maxSize int, maxTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		cache:  expirable.NewLRU[string, memoryEntry](maxSize, nil, maxTTL),
		maxTTL: maxTTL,
		now:    time.Now,
	}
}

// Get возвращает URL из кэша.
// Обновляет Prometheus-метрики hit/miss.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	e, ok := c.cache.Get(key)
	if ok && c.now().Before(e.expiresAt) {
		cacheHitsTotal.WithLabelValues(backendMemory).Inc()
		return e.url, true, nil
	}
	if ok {
		c.cache.Remove(key)
	}
	cacheMissesTotal.WithLabelValues(backendMemory).Inc()
	return "", false, nil
}

// Put добавляет или заменяет запись.
func (c *MemoryCache) Put(_ context.Context, key, url string, ttl time.Duration) error {
	if ttl <= 0 || ttl > c.maxTTL {
		ttl = c.maxTTL
	}
	c.cache.Add(key, memoryEntry{url: url, expiresAt: c.now().Add(ttl)})
	return nil
}

// Delete удаляет запись из кэша.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.cache.Remove(key)
	return nil
}

// Len возвращает количество записей (включая ещё не вычищенные просроченные).
func (c *MemoryCache) Len() int {
	return c.cache.Len()
}
