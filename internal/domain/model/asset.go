// Пакет model — доменные модели Fitting Module.
// Asset — маппинг таблицы assets (метаданные, байты лежат в blob storage).
package model

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Category — логическая роль ассета.
type Category string

const (
	// CategoryGarment — изображение одежды
	CategoryGarment Category = "garment"
	// CategoryBody — изображение человека
	CategoryBody Category = "body"
	// CategoryGenerated — результат генерации
	CategoryGenerated Category = "generated"
)

// Status — статус загрузки ассета.
type Status string

const (
	// StatusPending — запись создана, байты ещё не подтверждены
	StatusPending Status = "pending"
	// StatusUploadingFailed — загрузка не состоялась
	StatusUploadingFailed Status = "uploading_failed"
	// StatusUploaded — байты в хранилище, ассет пригоден для генерации
	StatusUploaded Status = "uploaded"
)

// Part — часть тела, к которой относится одежда.
type Part string

const (
	PartUpper   Part = "upper"
	PartLower   Part = "lower"
	PartFullSet Part = "full_set"
)

// Asset — запись ассета.
type Asset struct {
	// ID — UUID ассета, неизменяем
	ID string
	// Owner — идентификатор владельца (sub из JWT)
	Owner string
	// Category — garment, body, generated
	Category Category
	// Status — pending, uploading_failed, uploaded
	Status Status
	// DetectedPart — результат классификации (nil — не определена)
	DetectedPart *Part
	// StorageKey — ключ объекта в blob storage: {owner}/{category}/{filename}
	StorageKey string
	// OriginalFilename — имя файла, переданное клиентом
	OriginalFilename string
	// DeclaredSize — заявленный размер в байтах
	DeclaredSize int64
	// ContentType — MIME-тип
	ContentType string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего изменения статуса или части
	UpdatedAt time.Time
}

// IsUsableAs проверяет, что ассет может служить входом генерации указанной категории.
func (a *Asset) IsUsableAs(c Category) bool {
	return a.Category == c && a.Status == StatusUploaded
}

// ParseCategory проверяет категорию из клиентского запроса.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	switch c {
	case CategoryGarment, CategoryBody, CategoryGenerated:
		return c, nil
	default:
		return "", fmt.Errorf("недопустимая категория: %q, допустимые: garment, body, generated", s)
	}
}

// ParseStatus проверяет статус из фильтра.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusUploadingFailed, StatusUploaded:
		return st, nil
	default:
		return "", fmt.Errorf("недопустимый статус: %q, допустимые: pending, uploading_failed, uploaded", s)
	}
}

// ParsePart разбирает метку части тела.
// Пробелы и регистр игнорируются: ответы внешних моделей бывают неаккуратными.
func ParsePart(s string) (Part, error) {
	p := Part(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PartUpper, PartLower, PartFullSet:
		return p, nil
	default:
		return "", fmt.Errorf("недопустимая часть: %q, допустимые: upper, lower, full_set", s)
	}
}

// allowedExtensions — форматы, принимаемые при загрузке.
var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ImageExtension возвращает нормализованное расширение файла и MIME-тип по умолчанию.
// ok = false, если формат не поддерживается.
func ImageExtension(filename string) (ext, contentType string, ok bool) {
	ext = strings.ToLower(path.Ext(filename))
	contentType, ok = allowedExtensions[ext]
	return ext, contentType, ok
}

// StorageKey строит ключ объекта: {owner}/{category}/{filename}.
func StorageKey(owner string, category Category, filename string) string {
	return owner + "/" + string(category) + "/" + filename
}
