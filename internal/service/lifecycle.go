// lifecycle.go — жизненный цикл ассетов: инициализация загрузки,
// подтверждение, выдача делегированных URL, выборка.
//
// AssetService — единственный, кто меняет status и detected_part ассета.
// Переходы статуса выполняются одним compare-and-set в БД, поэтому
// из конкурентных подтверждений одного ассета выигрывает ровно одно,
// и только победитель ставит задачу классификации.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/fitting-module/internal/blobstore"
	"github.com/bigkaa/goartstore/fitting-module/internal/domain/lifecycle"
	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
	"github.com/bigkaa/goartstore/fitting-module/internal/repository"
	"github.com/bigkaa/goartstore/fitting-module/internal/urlcache"
)

// maxFilenameLength — максимальная длина имени файла.
const maxFilenameLength = 255

// Prometheus-метрики жизненного цикла.
var (
	assetTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fm_asset_transitions_total",
		Help: "Количество переходов статуса ассетов.",
	}, []string{"status"})

	uploadsInitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fm_uploads_initialized_total",
		Help: "Количество инициализированных загрузок по категориям.",
	}, []string{"category"})
)

// ClassificationQueue — получатель задач классификации.
// EnqueueClassification не блокирует вызывающего.
type ClassificationQueue interface {
	EnqueueClassification(assetID string)
}

// AssetTxRunner — выполнение операций над ассетами в одной транзакции.
type AssetTxRunner interface {
	InAssetTx(ctx context.Context, fn func(repo repository.AssetRepository) error) error
}

// AssetConfig — параметры жизненного цикла.
type AssetConfig struct {
	// MaxUploadSize — максимальный заявленный размер файла
	MaxUploadSize int64
	// MaxBatchFiles — максимум файлов в пакетной инициализации
	MaxBatchFiles int
	// VerifyUploads — проверять объект в хранилище при подтверждении
	VerifyUploads bool
	// URLCacheTTL — время жизни записи кэша URL
	URLCacheTTL time.Duration
	// DownloadURLExpiry — срок действия URL скачивания у провайдера
	DownloadURLExpiry time.Duration
}

// UploadRequest — параметры одной загрузки.
type UploadRequest struct {
	Category    string
	Filename    string
	Size        int64
	ContentType string
}

// UploadTicket — созданный ассет и URL для прямой загрузки.
type UploadTicket struct {
	Asset     *model.Asset
	UploadURL string
}

// ListQuery — параметры выборки ассетов.
type ListQuery struct {
	Category *model.Category
	Status   *model.Status
	Limit    int
	Offset   int
	// WithURLs — выдать URL скачивания для загруженных ассетов
	WithURLs bool
}

// ListResult — результат выборки с пагинацией.
type ListResult struct {
	Items []*model.Asset
	// URLs — URL скачивания по id ассета (только при WithURLs)
	URLs   map[string]string
	Total  int
	Limit  int
	Offset int
}

// AssetService — сервис жизненного цикла ассетов.
type AssetService struct {
	repo    repository.AssetRepository
	tx      AssetTxRunner
	gateway blobstore.Gateway
	cache   urlcache.Cache
	queue   ClassificationQueue
	cfg     AssetConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewAssetService создаёт сервис жизненного цикла ассетов.
func NewAssetService(
	repo repository.AssetRepository,
	tx AssetTxRunner,
	gateway blobstore.Gateway,
	cache urlcache.Cache,
	queue ClassificationQueue,
	cfg AssetConfig,
	logger *slog.Logger,
) *AssetService {
	return &AssetService{
		repo:    repo,
		tx:      tx,
		gateway: gateway,
		cache:   cache,
		queue:   queue,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "asset_service")),
		now:     time.Now,
	}
}

// MinURLValidity — минимальный оставшийся срок действия выданного URL скачивания:
// URL из кэша может быть выпущен не раньше чем URLCacheTTL назад.
func (s *AssetService) MinURLValidity() time.Duration {
	return s.cfg.DownloadURLExpiry - s.cfg.URLCacheTTL
}

// InitUpload создаёт ассет в статусе pending и выдаёт URL для прямой загрузки.
// Если выпустить URL не удалось, запись остаётся pending (её закроет reaper)
// и возвращается ErrStorageUnavailable.
func (s *AssetService) InitUpload(ctx context.Context, owner string, req UploadRequest) (*UploadTicket, error) {
	asset, err := s.newPendingAsset(owner, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("создание ассета: %w", err)
	}
	uploadsInitTotal.WithLabelValues(string(asset.Category)).Inc()

	uploadURL, err := s.issueUploadURL(ctx, asset)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Загрузка инициализирована",
		slog.String("asset_id", asset.ID),
		slog.String("owner", owner),
		slog.String("category", string(asset.Category)),
		slog.Int64("declared_size", asset.DeclaredSize),
	)
	return &UploadTicket{Asset: asset, UploadURL: uploadURL}, nil
}

// InitUploadBatch инициализирует несколько загрузок.
// Все файлы проверяются до создания записей: первый некорректный отклоняет весь пакет.
// Записи создаются в одной транзакции.
func (s *AssetService) InitUploadBatch(ctx context.Context, owner string, reqs []UploadRequest) ([]*UploadTicket, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: список файлов пуст", ErrValidation)
	}
	if len(reqs) > s.cfg.MaxBatchFiles {
		return nil, fmt.Errorf("%w: не более %d файлов за запрос", ErrValidation, s.cfg.MaxBatchFiles)
	}

	assets := make([]*model.Asset, 0, len(reqs))
	for i, req := range reqs {
		asset, err := s.newPendingAsset(owner, req)
		if err != nil {
			return nil, fmt.Errorf("файл %d (%s): %w", i, req.Filename, err)
		}
		assets = append(assets, asset)
	}

	err := s.tx.InAssetTx(ctx, func(repo repository.AssetRepository) error {
		for _, a := range assets {
			if err := repo.Create(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("создание ассетов: %w", err)
	}

	tickets := make([]*UploadTicket, 0, len(assets))
	for _, a := range assets {
		uploadsInitTotal.WithLabelValues(string(a.Category)).Inc()
		uploadURL, err := s.issueUploadURL(ctx, a)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, &UploadTicket{Asset: a, UploadURL: uploadURL})
	}

	s.logger.Info("Пакетная загрузка инициализирована",
		slog.String("owner", owner),
		slog.Int("count", len(tickets)),
	)
	return tickets, nil
}

// ConfirmUpload переводит ассет pending → uploaded.
// Для одежды победитель перехода ставит задачу классификации.
func (s *AssetService) ConfirmUpload(ctx context.Context, owner, assetID string) (*model.Asset, error) {
	asset, err := s.GetAsset(ctx, owner, assetID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanPerform(asset.Status, lifecycle.OpConfirm) {
		return nil, ErrAlreadyFinalized
	}

	if s.cfg.VerifyUploads {
		if err := s.verifyObject(ctx, asset); err != nil {
			return nil, err
		}
	}

	updated, err := s.transition(ctx, owner, assetID, model.StatusUploaded)
	if err != nil {
		return nil, err
	}

	s.evict(ctx, updated, urlcache.DirectionUpload)

	// Переход уже закоммичен: воркер не увидит pending-ассет
	if updated.Category == model.CategoryGarment {
		s.queue.EnqueueClassification(updated.ID)
	}

	s.logger.Info("Загрузка подтверждена",
		slog.String("asset_id", updated.ID),
		slog.String("owner", owner),
		slog.String("category", string(updated.Category)),
	)
	return updated, nil
}

// FailUpload переводит ассет pending → uploading_failed по сообщению клиента.
func (s *AssetService) FailUpload(ctx context.Context, owner, assetID string) (*model.Asset, error) {
	asset, err := s.GetAsset(ctx, owner, assetID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanPerform(asset.Status, lifecycle.OpFail) {
		return nil, ErrAlreadyFinalized
	}

	updated, err := s.transition(ctx, owner, assetID, model.StatusUploadingFailed)
	if err != nil {
		return nil, err
	}
	s.evict(ctx, updated, urlcache.DirectionUpload)

	s.logger.Info("Загрузка помечена как неудачная",
		slog.String("asset_id", updated.ID),
		slog.String("owner", owner),
	)
	return updated, nil
}

// GetAsset возвращает ассет владельца. Чужой ассет неотличим от отсутствующего.
func (s *AssetService) GetAsset(ctx context.Context, owner, assetID string) (*model.Asset, error) {
	if _, err := uuid.Parse(assetID); err != nil {
		return nil, ErrNotFound
	}
	asset, err := s.repo.GetByOwner(ctx, owner, assetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение ассета: %w", err)
	}
	return asset, nil
}

// GetAssetByID возвращает ассет без проверки владельца (для фоновых задач).
func (s *AssetService) GetAssetByID(ctx context.Context, assetID string) (*model.Asset, error) {
	asset, err := s.repo.GetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение ассета: %w", err)
	}
	return asset, nil
}

// GetDownloadURL возвращает URL скачивания загруженного ассета.
func (s *AssetService) GetDownloadURL(ctx context.Context, owner, assetID string) (string, error) {
	asset, err := s.GetAsset(ctx, owner, assetID)
	if err != nil {
		return "", err
	}
	if !lifecycle.CanPerform(asset.Status, lifecycle.OpDownload) {
		return "", ErrAssetNotReady
	}
	return s.DownloadURL(ctx, asset)
}

// DownloadURL возвращает URL скачивания: из кэша, при промахе — новый от хранилища.
// Недоступность кэша не является ошибкой.
func (s *AssetService) DownloadURL(ctx context.Context, asset *model.Asset) (string, error) {
	key := urlcache.Key(asset.Owner, asset.ID, urlcache.DirectionDownload)

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Кэш URL недоступен, URL будет выпущен напрямую",
			slog.String("asset_id", asset.ID),
			slog.String("error", err.Error()),
		)
	}
	if ok {
		return cached, nil
	}

	downloadURL, err := s.gateway.IssueDownloadURL(ctx, asset.StorageKey)
	if err != nil {
		return "", fmt.Errorf("%w: выпуск URL скачивания: %v", ErrStorageUnavailable, err)
	}
	s.put(ctx, key, downloadURL)
	return downloadURL, nil
}

// ListAssets возвращает ассеты владельца, новые первыми.
func (s *AssetService) ListAssets(ctx context.Context, owner string, q ListQuery) (*ListResult, error) {
	items, total, err := s.repo.List(ctx, repository.ListFilter{
		Owner:    owner,
		Category: q.Category,
		Status:   q.Status,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("выборка ассетов: %w", err)
	}

	result := &ListResult{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}
	if q.WithURLs {
		result.URLs = make(map[string]string, len(items))
		for _, a := range items {
			if !lifecycle.CanPerform(a.Status, lifecycle.OpDownload) {
				continue
			}
			u, err := s.DownloadURL(ctx, a)
			if err != nil {
				// Выборка остаётся полезной и без URL
				s.logger.Warn("Не удалось выдать URL скачивания для списка",
					slog.String("asset_id", a.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			result.URLs[a.ID] = u
		}
	}
	return result, nil
}

// RecordDetectedPart записывает результат классификации.
// Не ошибка: часть уже задана, ассет не одежда.
func (s *AssetService) RecordDetectedPart(ctx context.Context, assetID string, part model.Part) error {
	asset, err := s.GetAssetByID(ctx, assetID)
	if err != nil {
		return err
	}
	if asset.Category != model.CategoryGarment || asset.DetectedPart != nil {
		return nil
	}

	changed, err := s.repo.SetDetectedPart(ctx, assetID, part)
	if err != nil {
		return fmt.Errorf("запись части тела: %w", err)
	}
	if changed {
		s.logger.Info("Часть тела определена",
			slog.String("asset_id", assetID),
			slog.String("part", string(part)),
		)
	}
	return nil
}

// ReapStaleUploads помечает pending-ассеты старше olderThan как uploading_failed.
// Возвращает количество изменённых записей.
func (s *AssetService) ReapStaleUploads(ctx context.Context, olderThan time.Duration, batchSize int) (int, error) {
	before := s.now().Add(-olderThan)
	total := 0

	for {
		reaped, err := s.repo.FailStalePending(ctx, before, batchSize)
		if err != nil {
			return total, fmt.Errorf("пометка зависших загрузок: %w", err)
		}
		for _, a := range reaped {
			s.evict(ctx, a, urlcache.DirectionUpload)
		}
		assetTransitionsTotal.WithLabelValues(string(model.StatusUploadingFailed)).Add(float64(len(reaped)))
		total += len(reaped)

		if len(reaped) < batchSize {
			return total, nil
		}
	}
}

// CreateGenerated создаёт запись сгенерированного ассета сразу в статусе uploaded.
func (s *AssetService) CreateGenerated(ctx context.Context, asset *model.Asset) error {
	asset.Category = model.CategoryGenerated
	asset.Status = model.StatusUploaded
	if err := s.repo.Create(ctx, asset); err != nil {
		return fmt.Errorf("создание сгенерированного ассета: %w", err)
	}
	assetTransitionsTotal.WithLabelValues(string(model.StatusUploaded)).Inc()
	return nil
}

// --- Вспомогательные методы ---

// newPendingAsset проверяет параметры загрузки и строит запись ассета.
func (s *AssetService) newPendingAsset(owner string, req UploadRequest) (*model.Asset, error) {
	category, err := model.ParseCategory(req.Category)
	if err != nil {
		return nil, ErrInvalidCategory
	}

	filename := strings.TrimSpace(req.Filename)
	if filename == "" || len(filename) > maxFilenameLength {
		return nil, fmt.Errorf("%w: имя файла должно содержать от 1 до %d символов", ErrValidation, maxFilenameLength)
	}

	if req.Size <= 0 {
		return nil, fmt.Errorf("%w: размер файла должен быть положительным", ErrValidation)
	}
	if req.Size > s.cfg.MaxUploadSize {
		return nil, fmt.Errorf("%w: %d байт, максимум %d", ErrFileTooLarge, req.Size, s.cfg.MaxUploadSize)
	}

	ext, contentType, ok := model.ImageExtension(filename)
	if !ok {
		return nil, ErrUnsupportedFormat
	}
	if req.ContentType != "" {
		if !strings.HasPrefix(req.ContentType, "image/") {
			return nil, ErrUnsupportedFormat
		}
		contentType = req.ContentType
	}

	// Владелец — первый сегмент ключа объекта
	id := uuid.New().String()
	key := model.StorageKey(owner, category, id+ext)
	if strings.Contains(owner, "/") || blobstore.ValidateKey(key) != nil {
		return nil, fmt.Errorf("%w: некорректный идентификатор владельца", ErrValidation)
	}

	return &model.Asset{
		ID:               id,
		Owner:            owner,
		Category:         category,
		Status:           model.StatusPending,
		StorageKey:       key,
		OriginalFilename: filename,
		DeclaredSize:     req.Size,
		ContentType:      contentType,
	}, nil
}

// issueUploadURL выпускает URL загрузки и кэширует его.
func (s *AssetService) issueUploadURL(ctx context.Context, asset *model.Asset) (string, error) {
	uploadURL, err := s.gateway.IssueUploadURL(ctx, asset.StorageKey)
	if err != nil {
		s.logger.Error("Не удалось выпустить URL загрузки",
			slog.String("asset_id", asset.ID),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%w: выпуск URL загрузки: %v", ErrStorageUnavailable, err)
	}
	s.put(ctx, urlcache.Key(asset.Owner, asset.ID, urlcache.DirectionUpload), uploadURL)
	return uploadURL, nil
}

// verifyObject проверяет, что объект загружен полностью.
func (s *AssetService) verifyObject(ctx context.Context, asset *model.Asset) error {
	info, exists, err := s.gateway.Stat(ctx, asset.StorageKey)
	if err != nil {
		return fmt.Errorf("%w: проверка объекта: %v", ErrStorageUnavailable, err)
	}
	if !exists {
		return fmt.Errorf("%w: объект не найден в хранилище", ErrUploadIncomplete)
	}
	if info.Size != asset.DeclaredSize {
		return fmt.Errorf("%w: размер объекта %d байт, заявлено %d", ErrUploadIncomplete, info.Size, asset.DeclaredSize)
	}
	return nil
}

// transition выполняет CAS pending → to.
// Проигравший конкурентный вызов получает ErrAlreadyFinalized.
func (s *AssetService) transition(ctx context.Context, owner, assetID string, to model.Status) (*model.Asset, error) {
	if err := lifecycle.CheckTransition(model.StatusPending, to); err != nil {
		return nil, err
	}

	updated, err := s.repo.TransitionStatus(ctx, owner, assetID, model.StatusPending, to)
	if err == nil {
		assetTransitionsTotal.WithLabelValues(string(to)).Inc()
		return updated, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("смена статуса ассета: %w", err)
	}

	// 0 строк: ассет исчез или статус уже изменён другим вызовом
	if _, getErr := s.GetAsset(ctx, owner, assetID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrAlreadyFinalized
}

// put сохраняет URL в кэш; ошибка кэша только логируется.
func (s *AssetService) put(ctx context.Context, key, value string) {
	if err := s.cache.Put(ctx, key, value, s.cfg.URLCacheTTL); err != nil {
		s.logger.Warn("Не удалось сохранить URL в кэш",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// evict удаляет URL ассета из кэша; ошибка кэша только логируется.
func (s *AssetService) evict(ctx context.Context, asset *model.Asset, dir urlcache.Direction) {
	key := urlcache.Key(asset.Owner, asset.ID, dir)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("Не удалось удалить URL из кэша",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// GetOwnedAssets возвращает найденные ассеты владельца по списку id.
// Некорректные и чужие id в результат не попадают.
func (s *AssetService) GetOwnedAssets(ctx context.Context, owner string, ids []string) (map[string]*model.Asset, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	assets, err := s.repo.GetManyByOwner(ctx, owner, valid)
	if err != nil {
		return nil, fmt.Errorf("получение ассетов: %w", err)
	}
	return assets, nil
}
