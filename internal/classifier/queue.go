package classifier

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты обработки задачи (лейбл result).
const (
	resultOK           = "ok"
	resultSkipped      = "skipped"
	resultFailed       = "failed"
	resultInvalidLabel = "invalid_label"
	resultDropped      = "dropped"
)

var (
	classificationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fm_classification_total",
		Help: "Количество задач классификации по результату.",
	}, []string{"result"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fm_classification_queue_depth",
		Help: "Текущее количество задач в очереди классификации.",
	})
)

// Queue — ограниченная очередь задач классификации.
type Queue struct {
	items  chan string
	logger *slog.Logger
}

// NewQueue создаёт очередь ёмкостью size.
func NewQueue(size int, logger *slog.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		items:  make(chan string, size),
		logger: logger.With(slog.String("component", "classification_queue")),
	}
}

// EnqueueClassification ставит задачу без блокировки.
// При переполненной очереди задача отбрасывается.
func (q *Queue) EnqueueClassification(assetID string) {
	select {
	case q.items <- assetID:
		queueDepth.Set(float64(len(q.items)))
	default:
		classificationTotal.WithLabelValues(resultDropped).Inc()
		q.logger.Warn("Очередь классификации переполнена, задача отброшена",
			slog.String("asset_id", assetID),
			slog.Int("capacity", cap(q.items)),
		)
	}
}

// Len — количество задач в очереди.
func (q *Queue) Len() int {
	return len(q.items)
}

// NopQueue — получатель задач при отключённой классификации.
// Задачи не ставятся, учитываются как skipped.
type NopQueue struct{}

// EnqueueClassification отбрасывает задачу.
func (NopQueue) EnqueueClassification(string) {
	classificationTotal.WithLabelValues(resultSkipped).Inc()
}
