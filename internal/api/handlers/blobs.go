// blobs.go — blob endpoints для делегированных URL.
// PUT /blobs/{key}?token= — загрузка, GET /blobs/{key}?token= — скачивание.
// Bearer-аутентификация не требуется: доступ определяется подписанным токеном в URL.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	apierrors "github.com/bigkaa/goartstore/fitting-module/internal/api/errors"
	"github.com/bigkaa/goartstore/fitting-module/internal/blobstore"
)

// BlobPathPrefix — префикс маршрутов blob endpoints.
const BlobPathPrefix = "/blobs/"

// BlobEndpoint — приём и выдача объектов по делегированным URL.
type BlobEndpoint interface {
	AcceptUpload(key, token string, body io.Reader) (int64, error)
	OpenDownload(key, token string) (*os.File, error)
}

// BlobHandler — обработчик blob endpoints.
type BlobHandler struct {
	blobs  BlobEndpoint
	logger *slog.Logger
}

// NewBlobHandler создаёт обработчик blob endpoints.
func NewBlobHandler(blobs BlobEndpoint, logger *slog.Logger) *BlobHandler {
	return &BlobHandler{
		blobs:  blobs,
		logger: logger.With(slog.String("component", "blob_handler")),
	}
}

// Upload — PUT /blobs/{key}?token=.
func (h *BlobHandler) Upload(w http.ResponseWriter, r *http.Request) {
	key, token, ok := blobRequest(w, r)
	if !ok {
		return
	}
	defer r.Body.Close()

	if _, err := h.blobs.AcceptUpload(key, token, r.Body); err != nil {
		h.writeBlobError(w, key, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Download — GET /blobs/{key}?token=.
func (h *BlobHandler) Download(w http.ResponseWriter, r *http.Request) {
	key, token, ok := blobRequest(w, r)
	if !ok {
		return
	}

	f, err := h.blobs.OpenDownload(key, token)
	if err != nil {
		h.writeBlobError(w, key, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.writeBlobError(w, key, err)
		return
	}

	// ServeContent определяет Content-Type по расширению и поддерживает Range
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, path.Base(key), info.ModTime(), f)
}

// blobRequest извлекает ключ объекта и токен из запроса.
func blobRequest(w http.ResponseWriter, r *http.Request) (key, token string, ok bool) {
	key = strings.TrimPrefix(r.URL.Path, BlobPathPrefix)
	if key == "" || key == r.URL.Path {
		apierrors.NotFound(w, "Объект не найден")
		return "", "", false
	}
	token = r.URL.Query().Get("token")
	if token == "" {
		apierrors.AccessDenied(w, "Отсутствует токен доступа")
		return "", "", false
	}
	return key, token, true
}

// writeBlobError преобразует ошибку хранилища в ответ API.
func (h *BlobHandler) writeBlobError(w http.ResponseWriter, key string, err error) {
	switch {
	case errors.Is(err, blobstore.ErrAccessDenied):
		h.logger.Debug("Отказ в доступе к объекту",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		apierrors.AccessDenied(w, "URL недействителен или истёк")
	case errors.Is(err, blobstore.ErrObjectTooLarge):
		apierrors.PayloadTooLarge(w, "Объект превышает максимальный размер")
	case errors.Is(err, blobstore.ErrObjectNotFound):
		apierrors.NotFound(w, "Объект не найден")
	default:
		h.logger.Error("Ошибка blob storage",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		apierrors.StorageUnavailable(w, "Хранилище временно недоступно")
	}
}
