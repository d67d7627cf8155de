// logging.go — middleware логирования входящих HTTP-запросов через slog.
// Статус и размер ответа берутся из chi WrapResponseWriter.
// Владелец запроса попадает в лог, если аутентификация прошла успешно:
// auth middleware записывает его в слот, созданный RequestLogger.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// logSlotKey — ключ слота владельца в контексте запроса.
type logSlotKey struct{}

// logSlot — данные, которые внутренние middleware сообщают логгеру запросов.
type logSlot struct {
	owner string
}

// noteOwner сохраняет владельца для строки лога запроса.
func noteOwner(ctx context.Context, owner string) {
	if slot, ok := ctx.Value(logSlotKey{}).(*logSlot); ok {
		slot.owner = owner
	}
}

// statusOf возвращает статус ответа (200, если WriteHeader не вызывался).
func statusOf(ww chimw.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}

// isProbePath — служебные запросы kubelet и Prometheus.
func isProbePath(path string) bool {
	return strings.HasPrefix(path, "/health/") || path == "/metrics"
}

// RequestLogger возвращает middleware, логирующий каждый HTTP-запрос:
// метод, путь, статус, длительность, размер ответа, request_id, владелец.
// Уровень: INFO (1xx-3xx), WARN (4xx), ERROR (5xx); probes — DEBUG.
// Query string не логируется: в ней подписанный токен blob URL.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			slot := &logSlot{}
			r = r.WithContext(context.WithValue(r.Context(), logSlotKey{}, slot))
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := statusOf(ww)
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			case isProbePath(r.URL.Path):
				level = slog.LevelDebug
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("request_id", chimw.GetReqID(r.Context())),
			}
			if slot.owner != "" {
				attrs = append(attrs, slog.String("owner", slot.owner))
			}
			logger.LogAttrs(r.Context(), level, "HTTP запрос", attrs...)
		})
	}
}
