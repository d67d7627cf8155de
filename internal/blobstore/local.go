package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// LocalConfig — параметры LocalGateway.
type LocalConfig struct {
	// PublicBaseURL — внешний адрес сервиса (без завершающего /)
	PublicBaseURL string
	// UploadExpiry — срок действия URL загрузки
	UploadExpiry time.Duration
	// DownloadExpiry — срок действия URL скачивания
	DownloadExpiry time.Duration
	// MaxObjectSize — максимальный размер объекта (загрузка и скачивание)
	MaxObjectSize int64
	// HTTPTimeout — таймаут скачивания объекта по URL
	HTTPTimeout time.Duration
}

// LocalGateway — Gateway поверх FileStore.
// Делегированные URL указывают на blob endpoints самого сервиса:
// {PublicBaseURL}/blobs/{key}?token={JWT}.
type LocalGateway struct {
	store  *FileStore
	signer *Signer
	cfg    LocalConfig
	client *http.Client
	logger *slog.Logger
}

// NewLocalGateway создаёт шлюз к локальному хранилищу.
func NewLocalGateway(store *FileStore, signer *Signer, cfg LocalConfig, logger *slog.Logger) *LocalGateway {
	return &LocalGateway{
		store:  store,
		signer: signer,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger.With(slog.String("component", "blobstore")),
	}
}

// IssueUploadURL выпускает URL загрузки.
func (g *LocalGateway) IssueUploadURL(_ context.Context, key string) (string, error) {
	return g.issue(key, OpUpload, g.cfg.UploadExpiry)
}

// IssueDownloadURL выпускает URL скачивания.
func (g *LocalGateway) IssueDownloadURL(_ context.Context, key string) (string, error) {
	return g.issue(key, OpDownload, g.cfg.DownloadExpiry)
}

func (g *LocalGateway) issue(key string, op Operation, ttl time.Duration) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	token, _, err := g.signer.Sign(key, op, ttl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return g.cfg.PublicBaseURL + "/blobs/" + escapeKey(key) + "?token=" + url.QueryEscape(token), nil
}

// PutObject записывает объект напрямую (без делегированного URL).
func (g *LocalGateway) PutObject(_ context.Context, key string, data []byte, contentType string) error {
	if _, err := g.store.Save(key, bytes.NewReader(data), 0); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	g.logger.Debug("Объект записан",
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.String("content_type", contentType),
	)
	return nil
}

// GetObject скачивает объект по делегированному URL.
func (g *LocalGateway) GetObject(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: некорректный URL: %v", ErrStorageUnavailable, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrObjectNotFound
	case http.StatusForbidden:
		return nil, ErrAccessDenied
	default:
		return nil, fmt.Errorf("%w: неожиданный статус %d", ErrStorageUnavailable, resp.StatusCode)
	}

	limit := g.cfg.MaxObjectSize
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка чтения объекта: %v", ErrStorageUnavailable, err)
	}
	if int64(len(data)) > limit {
		return nil, ErrObjectTooLarge
	}
	return data, nil
}

// Stat возвращает размер объекта.
func (g *LocalGateway) Stat(_ context.Context, key string) (ObjectInfo, bool, error) {
	size, err := g.store.Stat(key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return ObjectInfo{}, false, nil
		}
		return ObjectInfo{}, false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return ObjectInfo{Key: key, Size: size}, true, nil
}

// AcceptUpload принимает тело загрузки по делегированному URL.
// Возвращает размер записанного объекта.
func (g *LocalGateway) AcceptUpload(key, token string, body io.Reader) (int64, error) {
	if err := g.signer.Verify(token, key, OpUpload); err != nil {
		return 0, err
	}
	size, err := g.store.Save(key, body, g.cfg.MaxObjectSize)
	if err != nil {
		if errors.Is(err, ErrObjectTooLarge) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	g.logger.Info("Объект загружен по делегированному URL",
		slog.String("key", key),
		slog.Int64("size", size),
	)
	return size, nil
}

// OpenDownload открывает объект для скачивания по делегированному URL.
// Вызывающий код обязан закрыть файл.
func (g *LocalGateway) OpenDownload(key, token string) (*os.File, error) {
	if err := g.signer.Verify(token, key, OpDownload); err != nil {
		return nil, err
	}
	f, err := g.store.Open(key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return f, nil
}

// escapeKey экранирует сегменты ключа, сохраняя разделители "/".
func escapeKey(key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
