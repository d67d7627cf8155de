package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики генерации.
var (
	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fm_generation_duration_seconds",
		Help:    "Длительность вызова генератора.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s … 128s
	}, []string{"generator"})

	generationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fm_generation_total",
		Help: "Количество вызовов генераторов по результату.",
	}, []string{"generator", "result"}) // result: success, failed
)

// Registry — реестр генераторов по идентификатору.
// Заполняется при старте, после чего используется только на чтение.
type Registry struct {
	generators map[string]Generator
	logger     *slog.Logger
}

// NewRegistry создаёт пустой реестр.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		generators: make(map[string]Generator),
		logger:     logger.With(slog.String("component", "generator_registry")),
	}
}

// Register добавляет генератор. Пустой или повторный идентификатор — ошибка.
func (r *Registry) Register(id string, g Generator) error {
	if id == "" {
		return errors.New("идентификатор генератора не может быть пустым")
	}
	if g == nil {
		return fmt.Errorf("генератор %s: реализация не задана", id)
	}
	if _, exists := r.generators[id]; exists {
		return fmt.Errorf("генератор %s уже зарегистрирован", id)
	}
	r.generators[id] = g
	r.logger.Info("Генератор зарегистрирован", slog.String("generator", id))
	return nil
}

// Resolve возвращает генератор или ErrUnknownGenerator.
func (r *Registry) Resolve(id string) (Generator, error) {
	g, ok := r.generators[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, id)
	}
	return g, nil
}

// IDs возвращает отсортированный список зарегистрированных генераторов.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.generators))
	for id := range r.generators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispatch вызывает генератор id синхронно.
// Любая ошибка возвращается как *GenerationError; пустой результат — тоже ошибка.
// Повторных попыток нет.
func (r *Registry) Dispatch(ctx context.Context, id string, req Request) ([]byte, error) {
	g, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := g.Generate(ctx, req)
	duration := time.Since(start)
	generationDuration.WithLabelValues(id).Observe(duration.Seconds())

	if err == nil && len(data) == 0 {
		err = fail(id, "пустой результат генерации", nil)
	}
	if err != nil {
		generationTotal.WithLabelValues(id, "failed").Inc()
		var genErr *GenerationError
		if !errors.As(err, &genErr) {
			err = fail(id, "ошибка вызова", err)
		}
		r.logger.Warn("Генерация не удалась",
			slog.String("generator", id),
			slog.Int("garments", len(req.Garments)),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	generationTotal.WithLabelValues(id, "success").Inc()
	r.logger.Info("Генерация выполнена",
		slog.String("generator", id),
		slog.Int("garments", len(req.Garments)),
		slog.Int("size", len(data)),
		slog.Duration("duration", duration),
	)
	return data, nil
}
