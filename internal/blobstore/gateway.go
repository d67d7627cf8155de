// Пакет blobstore — шлюз к хранилищу бинарных объектов.
//
// Сервис не передаёт байты изображений через свой API: клиенты
// загружают и скачивают объекты по делегированным URL с ограниченным
// сроком действия. Сам сервис читает объекты тем же путём (GetObject
// по URL) и пишет напрямую только сгенерированные результаты (PutObject).
package blobstore

import (
	"context"
	"errors"
)

// Ошибки blob storage.
var (
	// ErrStorageUnavailable — хранилище недоступно или операция не удалась.
	ErrStorageUnavailable = errors.New("blob storage недоступен")
	// ErrAccessDenied — токен делегированного URL недействителен.
	ErrAccessDenied = errors.New("доступ к объекту запрещён")
	// ErrObjectNotFound — объекта нет в хранилище.
	ErrObjectNotFound = errors.New("объект не найден")
	// ErrObjectTooLarge — объект превышает допустимый размер.
	ErrObjectTooLarge = errors.New("объект превышает допустимый размер")
)

// ObjectInfo — метаданные объекта.
type ObjectInfo struct {
	Key  string
	Size int64
}

// Gateway — операции над blob storage, нужные жизненному циклу ассетов.
type Gateway interface {
	// IssueUploadURL выпускает URL для прямой загрузки объекта клиентом.
	IssueUploadURL(ctx context.Context, key string) (string, error)
	// IssueDownloadURL выпускает URL для скачивания объекта.
	IssueDownloadURL(ctx context.Context, key string) (string, error)
	// PutObject записывает объект напрямую.
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	// GetObject скачивает объект по делегированному URL.
	GetObject(ctx context.Context, url string) ([]byte, error)
	// Stat возвращает метаданные объекта; exists=false — объекта нет.
	Stat(ctx context.Context, key string) (info ObjectInfo, exists bool, err error)
}
