// Пакет classifier — фоновое определение части тела для загруженной одежды.
//
// После подтверждения загрузки garment-ассета AssetService ставит его id
// в Queue. Worker забирает задачи, скачивает изображение по делегированному
// URL, спрашивает Classifier и записывает результат через RecordDetectedPart.
// Любая ошибка логируется и учитывается в метрике, задача отбрасывается:
// ассет остаётся без detected_part, генерация при этом не блокируется.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
)

// Instruction — текст запроса к модели классификации.
const Instruction = "Analyze this clothing image and determine which part of the body it belongs to. " +
	"Respond with ONLY one word: 'upper' for upper body clothing (t-shirts, shirts, jackets, tops), " +
	"'lower' for lower body clothing (pants, jeans, skirts, shorts), " +
	"or 'full_set' for full-body clothing (dresses, jumpsuits)."

// ErrInvalidLabel — ответ модели не является допустимой частью тела.
var ErrInvalidLabel = errors.New("недопустимый ответ классификатора")

// Classifier — модель, отвечающая одной меткой на изображение и инструкцию.
type Classifier interface {
	Classify(ctx context.Context, image []byte, contentType, instruction string) (string, error)
}

// ParseLabel нормализует ответ модели: пробелы, регистр, пунктуация и кавычки
// по краям отбрасываются. Допустимы только upper, lower, full_set.
func ParseLabel(raw string) (model.Part, error) {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.TrimFunc(label, func(r rune) bool {
		return r != '_' && (unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r))
	})

	part, err := model.ParsePart(label)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLabel, raw)
	}
	return part, nil
}
