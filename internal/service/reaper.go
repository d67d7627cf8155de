// reaper.go — фоновая пометка зависших загрузок.
//
// ReaperService запускает горутину с ticker (FM_REAPER_INTERVAL), которая
// переводит pending-ассеты старше FM_PENDING_UPLOAD_TTL в uploading_failed.
// Несколько реплик могут работать одновременно: строки берутся
// через FOR UPDATE SKIP LOCKED.
package service

import (
	"context"
	"log/slog"
	"time"
)

// reaperBatchSize — количество записей за один UPDATE.
const reaperBatchSize = 500

// StaleUploadReaper — операция пометки зависших загрузок.
type StaleUploadReaper interface {
	ReapStaleUploads(ctx context.Context, olderThan time.Duration, batchSize int) (int, error)
}

// ReaperService — фоновый сервис пометки зависших загрузок.
type ReaperService struct {
	assets   StaleUploadReaper
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReaperService создаёт сервис пометки зависших загрузок.
func NewReaperService(assets StaleUploadReaper, ttl, interval time.Duration, logger *slog.Logger) *ReaperService {
	return &ReaperService{
		assets:   assets,
		ttl:      ttl,
		interval: interval,
		logger:   logger.With(slog.String("component", "upload_reaper")),
	}
}

// Start запускает фоновую горутину.
// Вызывается один раз при старте приложения.
func (s *ReaperService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Пометка зависших загрузок запущена",
			slog.String("interval", s.interval.String()),
			slog.String("ttl", s.ttl.String()),
		)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Пометка зависших загрузок остановлена")
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce выполняет один проход.
func (s *ReaperService) RunOnce(ctx context.Context) int {
	count, err := s.assets.ReapStaleUploads(ctx, s.ttl, reaperBatchSize)
	if err != nil {
		s.logger.Error("Ошибка пометки зависших загрузок",
			slog.Int("reaped", count),
			slog.String("error", err.Error()),
		)
		return count
	}
	if count > 0 {
		s.logger.Info("Зависшие загрузки помечены как неудачные", slog.Int("count", count))
	}
	return count
}

// Stop останавливает фоновую горутину и ждёт завершения.
func (s *ReaperService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}
