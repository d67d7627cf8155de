// metrics.go — Prometheus HTTP метрики Fitting Module.
// Регистрирует метрики: fm_http_requests_total, fm_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fm_http_requests_total",
			Help: "Общее количество HTTP-запросов к Fitting Module",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	// Верхние бакеты покрывают синхронную генерацию.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fm_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Fitting Module в секундах",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			normalizedPath := normalizePath(r.URL.Path)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(statusOf(ww))

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// normalizePath заменяет идентификаторы в пути на шаблоны.
// /api/v1/assets/{uuid}/confirm → /api/v1/assets/{id}/confirm
// /blobs/{owner}/garment/{file} → /blobs/{key}
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/assets", "/api/v1/assets/uploads", "/api/v1/assets/uploads/batch",
		"/api/v1/generations", "/api/v1/generators":
		return path
	}

	if strings.HasPrefix(path, "/blobs/") {
		return "/blobs/{key}"
	}

	const assetsPrefix = "/api/v1/assets/"
	if rest, ok := strings.CutPrefix(path, assetsPrefix); ok && rest != "" {
		_, suffix, _ := strings.Cut(rest, "/")
		switch suffix {
		case "":
			return "/api/v1/assets/{id}"
		case "confirm", "fail", "download-url":
			return "/api/v1/assets/{id}/" + suffix
		}
	}

	return "other"
}
