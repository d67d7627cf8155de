// Пакет generator — реестр генераторов изображений и их реализации.
//
// Генератор — стратегия: по изображению человека, упорядоченному списку
// изображений одежды и готовому промпту возвращает новое изображение.
// Набор генераторов закрыт и собирается при старте из конфигурации.
package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
)

// Ошибки генерации.
var (
	// ErrUnknownGenerator — генератор с таким идентификатором не зарегистрирован.
	ErrUnknownGenerator = errors.New("неизвестный генератор")
	// ErrGenerationFailed — генерация не удалась.
	ErrGenerationFailed = errors.New("генерация не удалась")
)

// GenerationError — ошибка конкретного генератора.
// errors.Is(err, ErrGenerationFailed) == true.
type GenerationError struct {
	// Generator — идентификатор генератора
	Generator string
	// Detail — описание причины
	Detail string
	// Err — исходная ошибка (может быть nil)
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("генератор %s: %s: %v", e.Generator, e.Detail, e.Err)
	}
	return fmt.Sprintf("генератор %s: %s", e.Generator, e.Detail)
}

// Is сопоставляет ошибку с ErrGenerationFailed.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// fail создаёт GenerationError.
func fail(generator, detail string, err error) *GenerationError {
	return &GenerationError{Generator: generator, Detail: detail, Err: err}
}

// Image — изображение с MIME-типом.
type Image struct {
	Data        []byte
	ContentType string
}

// Request — входные данные генерации.
type Request struct {
	// Body — изображение человека
	Body Image
	// Garments — изображения одежды в порядке запроса (1-3)
	Garments []Image
	// Parts — эффективная часть тела для каждой вещи ("" — не определена)
	Parts []model.Part
	// Prompt — готовый текст промпта
	Prompt string
}

// Generator — контракт генератора изображений.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// GeneratorFunc — адаптер функции к Generator.
type GeneratorFunc func(ctx context.Context, req Request) ([]byte, error)

// Generate вызывает f(ctx, req).
func (f GeneratorFunc) Generate(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}
