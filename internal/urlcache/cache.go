// Пакет urlcache — кэш делегированных URL.
//
// Ключ — (владелец, ассет, направление), значение — подписанный URL.
// Запись не обновляется на месте: по истечении TTL она удаляется
// и выпускается заново при следующем обращении.
//
// Ошибка backend'а не фатальна: вызывающий трактует её как промах
// и выпускает URL напрямую через blob storage.
package urlcache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Direction — направление делегированного доступа.
type Direction string

const (
	DirectionUpload   Direction = "upload"
	DirectionDownload Direction = "download"
)

// Prometheus-метрики кэша (лейбл backend: memory, redis).
var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fm_url_cache_hits_total",
		Help: "Общее количество попаданий в кэш делегированных URL.",
	}, []string{"backend"})
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fm_url_cache_misses_total",
		Help: "Общее количество промахов кэша делегированных URL.",
	}, []string{"backend"})
	cacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fm_url_cache_errors_total",
		Help: "Ошибки backend'а кэша делегированных URL.",
	}, []string{"backend", "operation"})
)

// Cache — хранилище URL с TTL на запись.
type Cache interface {
	// Get возвращает (url, true, nil) при попадании, ("", false, nil) при промахе.
	Get(ctx context.Context, key string) (string, bool, error)
	// Put сохраняет URL на ttl.
	Put(ctx context.Context, key, url string, ttl time.Duration) error
	// Delete удаляет запись (отсутствие записи — не ошибка).
	Delete(ctx context.Context, key string) error
}

// Key строит ключ кэша: asset_url:{owner}:{assetID}:{direction}.
func Key(owner, assetID string, dir Direction) string {
	return "asset_url:" + owner + ":" + assetID + ":" + string(dir)
}
