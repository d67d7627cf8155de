// orchestrator.go — синхронная генерация изображения.
//
// GenerationService проверяет запрос, скачивает исходные изображения
// по делегированным URL, вызывает выбранный генератор и сохраняет
// результат как новый ассет категории generated.
// Вся валидация завершается до первого сетевого вызова; при ошибке
// генерации запись ассета не создаётся.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/goartstore/fitting-module/internal/blobstore"
	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
	"github.com/bigkaa/goartstore/fitting-module/internal/generator"
)

const (
	// minGarments, maxGarments — допустимое количество вещей в запросе.
	minGarments = 1
	maxGarments = 3
	// fetchConcurrency — параллельные скачивания исходных изображений.
	fetchConcurrency = 4
)

// GenerationRequest — запрос генерации.
type GenerationRequest struct {
	BodyAssetID     string
	GarmentAssetIDs []string
	GeneratorID     string
	// PartsOverride — nil: не задан; "" в элементе: без переопределения
	PartsOverride []string
}

// Dispatcher — выбор и вызов генератора.
type Dispatcher interface {
	Resolve(id string) (generator.Generator, error)
	Dispatch(ctx context.Context, id string, req generator.Request) ([]byte, error)
}

// GenerationService — оркестратор генерации.
type GenerationService struct {
	assets     *AssetService
	gateway    blobstore.Gateway
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewGenerationService создаёт оркестратор генерации.
func NewGenerationService(
	assets *AssetService,
	gateway blobstore.Gateway,
	dispatcher Dispatcher,
	logger *slog.Logger,
) *GenerationService {
	return &GenerationService{
		assets:     assets,
		gateway:    gateway,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "generation_service")),
	}
}

// Generate выполняет генерацию и возвращает созданный ассет.
func (s *GenerationService) Generate(ctx context.Context, owner string, req GenerationRequest) (*model.Asset, error) {
	body, garments, overrides, err := s.validate(ctx, owner, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	images, err := s.fetchImages(ctx, req.GeneratorID, append([]*model.Asset{body}, garments...))
	if err != nil {
		return nil, err
	}

	parts := EffectiveParts(garments, overrides)
	genReq := generator.Request{
		Body:     images[0],
		Garments: images[1:],
		Parts:    parts,
		Prompt:   generator.BuildPrompt(parts),
	}

	data, err := s.dispatcher.Dispatch(ctx, req.GeneratorID, genReq)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	asset := &model.Asset{
		ID:               id,
		Owner:            owner,
		StorageKey:       model.StorageKey(owner, model.CategoryGenerated, id+".jpg"),
		OriginalFilename: req.GeneratorID + "-" + id + ".jpg",
		DeclaredSize:     int64(len(data)),
		ContentType:      http.DetectContentType(data),
	}

	if err := s.gateway.PutObject(ctx, asset.StorageKey, data, asset.ContentType); err != nil {
		return nil, &generator.GenerationError{Generator: req.GeneratorID, Detail: "сохранение результата", Err: err}
	}

	if err := s.assets.CreateGenerated(ctx, asset); err != nil {
		// Объект уже записан: остаётся без записи в БД
		s.logger.Error("Результат генерации сохранён, но запись ассета не создана",
			slog.String("storage_key", asset.StorageKey),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("Генерация завершена",
		slog.String("asset_id", asset.ID),
		slog.String("owner", owner),
		slog.String("generator", req.GeneratorID),
		slog.Int("garments", len(garments)),
		slog.Duration("duration", time.Since(start)),
	)
	return asset, nil
}

// validate проверяет запрос в фиксированном порядке:
// человек → вещи → количество вещей → длина переопределений → значения → генератор.
func (s *GenerationService) validate(
	ctx context.Context, owner string, req GenerationRequest,
) (*model.Asset, []*model.Asset, []model.Part, error) {
	ids := append([]string{req.BodyAssetID}, req.GarmentAssetIDs...)
	owned, err := s.assets.GetOwnedAssets(ctx, owner, ids)
	if err != nil {
		return nil, nil, nil, err
	}

	body, ok := owned[req.BodyAssetID]
	if !ok || !body.IsUsableAs(model.CategoryBody) {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrInvalidBodyAsset, req.BodyAssetID)
	}

	garments := make([]*model.Asset, 0, len(req.GarmentAssetIDs))
	for _, id := range req.GarmentAssetIDs {
		g, ok := owned[id]
		if !ok || !g.IsUsableAs(model.CategoryGarment) {
			return nil, nil, nil, fmt.Errorf("%w: %s", ErrInvalidGarmentAsset, id)
		}
		garments = append(garments, g)
	}

	if len(garments) < minGarments || len(garments) > maxGarments {
		return nil, nil, nil, fmt.Errorf("%w: передано %d", ErrTooManyGarments, len(garments))
	}

	var overrides []model.Part
	if req.PartsOverride != nil {
		if len(req.PartsOverride) != len(garments) {
			return nil, nil, nil, fmt.Errorf("%w: %d вместо %d", ErrPartsLengthMismatch, len(req.PartsOverride), len(garments))
		}
		overrides = make([]model.Part, len(req.PartsOverride))
		for i, raw := range req.PartsOverride {
			if raw == "" {
				continue
			}
			p, err := model.ParsePart(raw)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("%w: partsOverride[%d]: %v", ErrValidation, i, err)
			}
			overrides[i] = p
		}
	}

	if _, err := s.dispatcher.Resolve(req.GeneratorID); err != nil {
		return nil, nil, nil, err
	}
	return body, garments, overrides, nil
}

// fetchImages скачивает изображения ассетов параллельно, сохраняя порядок.
func (s *GenerationService) fetchImages(ctx context.Context, generatorID string, assets []*model.Asset) ([]generator.Image, error) {
	images := make([]generator.Image, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for i, a := range assets {
		g.Go(func() error {
			url, err := s.assets.DownloadURL(gctx, a)
			if err != nil {
				return err
			}
			data, err := s.gateway.GetObject(gctx, url)
			if err != nil {
				return fmt.Errorf("ассет %s: %w", a.ID, err)
			}
			images[i] = generator.Image{Data: data, ContentType: a.ContentType}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, &generator.GenerationError{Generator: generatorID, Detail: "получение исходных изображений", Err: err}
	}
	return images, nil
}

// EffectiveParts вычисляет часть тела для каждой вещи:
// переопределение из запроса → сохранённое значение → не определена ("").
func EffectiveParts(garments []*model.Asset, overrides []model.Part) []model.Part {
	parts := make([]model.Part, len(garments))
	for i, g := range garments {
		switch {
		case i < len(overrides) && overrides[i] != "":
			parts[i] = overrides[i]
		case g.DetectedPart != nil:
			parts[i] = *g.DetectedPart
		}
	}
	return parts
}
