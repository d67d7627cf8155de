// handler.go — основной обработчик API, реализующий generated.ServerInterface.
// Объединяет health, ассеты и генерацию; бизнес-логика — в сервисном слое.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/goartstore/fitting-module/internal/api/errors"
	"github.com/bigkaa/goartstore/fitting-module/internal/api/generated"
	"github.com/bigkaa/goartstore/fitting-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
	"github.com/bigkaa/goartstore/fitting-module/internal/service"
)

// Пагинация списка ассетов.
const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// AssetManager — операции жизненного цикла ассетов.
type AssetManager interface {
	InitUpload(ctx context.Context, owner string, req service.UploadRequest) (*service.UploadTicket, error)
	InitUploadBatch(ctx context.Context, owner string, reqs []service.UploadRequest) ([]*service.UploadTicket, error)
	ConfirmUpload(ctx context.Context, owner, assetID string) (*model.Asset, error)
	FailUpload(ctx context.Context, owner, assetID string) (*model.Asset, error)
	GetAsset(ctx context.Context, owner, assetID string) (*model.Asset, error)
	GetDownloadURL(ctx context.Context, owner, assetID string) (string, error)
	ListAssets(ctx context.Context, owner string, q service.ListQuery) (*service.ListResult, error)
	MinURLValidity() time.Duration
}

// GenerationRunner — запуск генерации.
type GenerationRunner interface {
	Generate(ctx context.Context, owner string, req service.GenerationRequest) (*model.Asset, error)
}

// GeneratorCatalog — список зарегистрированных генераторов.
type GeneratorCatalog interface {
	IDs() []string
}

// APIHandler — основной обработчик API Fitting Module.
// Реализует generated.ServerInterface, делегируя запросы в сервисный слой.
type APIHandler struct {
	health            *HealthHandler
	assets            AssetManager
	generations       GenerationRunner
	generators        GeneratorCatalog
	generationTimeout time.Duration
	logger            *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// generationTimeout — ограничение на весь запрос генерации.
func NewAPIHandler(
	health *HealthHandler,
	assets AssetManager,
	generations GenerationRunner,
	generators GeneratorCatalog,
	generationTimeout time.Duration,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:            health,
		assets:            assets,
		generations:       generations,
		generators:        generators,
		generationTimeout: generationTimeout,
		logger:            logger.With(slog.String("component", "api_handler")),
	}
}

var _ generated.ServerInterface = (*APIHandler)(nil)

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса. При ошибке пишет 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// requireOwner возвращает владельца запроса. Без него — 401.
func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Владелец запроса не определён")
		return "", false
	}
	return owner, true
}

// paginationDefaults нормализует параметры пагинации.
// Возвращает корректные limit и offset.
func paginationDefaults(limit, offset *int) (limitVal, offsetVal int) {
	l := defaultListLimit
	o := 0

	if limit != nil {
		l = *limit
		if l < 1 {
			l = 1
		}
		if l > maxListLimit {
			l = maxListLimit
		}
	}

	if offset != nil {
		o = *offset
		if o < 0 {
			o = 0
		}
	}

	return l, o
}

// writeServiceError преобразует ошибку сервисного слоя в ответ API.
// Неизвестные ошибки — 500 без деталей, детали только в логе.
//
//nolint:cyclop // плоское отображение ошибок на коды
func (h *APIHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Ассет не найден")
	case errors.Is(err, service.ErrInvalidCategory):
		apierrors.BadRequest(w, apierrors.CodeInvalidCategory, msg)
	case errors.Is(err, service.ErrFileTooLarge):
		apierrors.BadRequest(w, apierrors.CodeFileTooLarge, msg)
	case errors.Is(err, service.ErrUnsupportedFormat):
		apierrors.BadRequest(w, apierrors.CodeUnsupportedFormat, msg)
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, msg)
	case errors.Is(err, service.ErrAlreadyFinalized):
		apierrors.Conflict(w, apierrors.CodeAlreadyFinalized, msg)
	case errors.Is(err, service.ErrUploadIncomplete):
		apierrors.Conflict(w, apierrors.CodeUploadIncomplete, msg)
	case errors.Is(err, service.ErrAssetNotReady):
		apierrors.Conflict(w, apierrors.CodeAssetNotReady, msg)
	case errors.Is(err, service.ErrInvalidBodyAsset):
		apierrors.BadRequest(w, apierrors.CodeInvalidBodyAsset, msg)
	case errors.Is(err, service.ErrInvalidGarmentAsset):
		apierrors.BadRequest(w, apierrors.CodeInvalidGarmentAsset, msg)
	case errors.Is(err, service.ErrTooManyGarments):
		apierrors.BadRequest(w, apierrors.CodeTooManyGarments, msg)
	case errors.Is(err, service.ErrPartsLengthMismatch):
		apierrors.BadRequest(w, apierrors.CodePartsLengthMismatch, msg)
	case errors.Is(err, service.ErrUnknownGenerator):
		apierrors.BadRequest(w, apierrors.CodeUnknownGenerator, msg)
	case errors.Is(err, service.ErrGenerationFailed):
		h.logger.Warn("Генерация не удалась", slog.String("operation", op), slog.String("error", msg))
		apierrors.GenerationFailed(w, "Не удалось сгенерировать изображение")
	case errors.Is(err, service.ErrStorageUnavailable):
		h.logger.Error("Хранилище недоступно", slog.String("operation", op), slog.String("error", msg))
		apierrors.StorageUnavailable(w, "Хранилище временно недоступно")
	default:
		h.logger.Error("Внутренняя ошибка", slog.String("operation", op), slog.String("error", msg))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// mapAsset преобразует доменную модель в ответ API.
// downloadURL — пустая строка, если URL не выдаётся.
func mapAsset(a *model.Asset, downloadURL string) generated.Asset {
	resp := generated.Asset{
		Id:               a.ID,
		Category:         generated.AssetCategory(a.Category),
		Status:           generated.AssetStatus(a.Status),
		OriginalFilename: a.OriginalFilename,
		Size:             a.DeclaredSize,
		ContentType:      a.ContentType,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
	if a.DetectedPart != nil {
		p := generated.AssetPart(*a.DetectedPart)
		resp.DetectedPart = &p
	}
	if downloadURL != "" {
		resp.DownloadUrl = &downloadURL
	}
	return resp
}
