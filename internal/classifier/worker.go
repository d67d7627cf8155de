package classifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
)

// AssetSource — операции жизненного цикла, нужные воркеру.
type AssetSource interface {
	GetAssetByID(ctx context.Context, assetID string) (*model.Asset, error)
	DownloadURL(ctx context.Context, asset *model.Asset) (string, error)
	RecordDetectedPart(ctx context.Context, assetID string, part model.Part) error
}

// ObjectFetcher — скачивание объекта по делегированному URL.
type ObjectFetcher interface {
	GetObject(ctx context.Context, url string) ([]byte, error)
}

// Worker — N горутин, обрабатывающих очередь классификации.
type Worker struct {
	queue      *Queue
	assets     AssetSource
	fetcher    ObjectFetcher
	classifier Classifier
	workers    int
	timeout    time.Duration
	logger     *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker создаёт воркер классификации.
// timeout — ограничение на обработку одной задачи.
func NewWorker(
	queue *Queue,
	assets AssetSource,
	fetcher ObjectFetcher,
	classifier Classifier,
	workers int,
	timeout time.Duration,
	logger *slog.Logger,
) *Worker {
	if workers < 1 {
		workers = 1
	}
	return &Worker{
		queue:      queue,
		assets:     assets,
		fetcher:    fetcher,
		classifier: classifier,
		workers:    workers,
		timeout:    timeout,
		logger:     logger.With(slog.String("component", "classification_worker")),
	}
}

// Start запускает горутины-обработчики.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case assetID := <-w.queue.items:
					queueDepth.Set(float64(w.queue.Len()))
					w.OnClassificationItem(ctx, assetID)
				}
			}
		}()
	}

	w.logger.Info("Воркер классификации запущен",
		slog.Int("workers", w.workers),
		slog.Int("queue_size", cap(w.queue.items)),
	)
}

// Stop останавливает горутины и ждёт завершения текущих задач.
// Задачи, оставшиеся в очереди, отбрасываются.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("Воркер классификации остановлен", slog.Int("dropped", w.queue.Len()))
}

// OnClassificationItem обрабатывает одну задачу и возвращает её результат.
// Начатая задача доводится до конца и при остановке воркера (в пределах timeout).
func (w *Worker) OnClassificationItem(ctx context.Context, assetID string) string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	result, err := w.classify(ctx, assetID)
	classificationTotal.WithLabelValues(result).Inc()

	log := w.logger.With(slog.String("asset_id", assetID), slog.String("result", result))
	switch {
	case err != nil && result == resultInvalidLabel:
		log.Warn("Классификатор вернул недопустимую метку", slog.String("error", err.Error()))
	case err != nil:
		log.Error("Ошибка классификации", slog.String("error", err.Error()))
	default:
		log.Debug("Задача классификации обработана")
	}
	return result
}

func (w *Worker) classify(ctx context.Context, assetID string) (string, error) {
	asset, err := w.assets.GetAssetByID(ctx, assetID)
	if err != nil {
		return resultFailed, err
	}
	if asset.Category != model.CategoryGarment || asset.Status != model.StatusUploaded || asset.DetectedPart != nil {
		return resultSkipped, nil
	}

	url, err := w.assets.DownloadURL(ctx, asset)
	if err != nil {
		return resultFailed, err
	}
	image, err := w.fetcher.GetObject(ctx, url)
	if err != nil {
		return resultFailed, err
	}

	raw, err := w.classifier.Classify(ctx, image, asset.ContentType, Instruction)
	if err != nil {
		return resultFailed, err
	}
	part, err := ParseLabel(raw)
	if err != nil {
		if errors.Is(err, ErrInvalidLabel) {
			return resultInvalidLabel, err
		}
		return resultFailed, err
	}

	if err := w.assets.RecordDetectedPart(ctx, assetID, part); err != nil {
		return resultFailed, err
	}
	return resultOK, nil
}
