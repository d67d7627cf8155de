// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"

	"github.com/bigkaa/goartstore/fitting-module/internal/generator"
)

var (
	// ErrNotFound — ассет не найден или принадлежит другому владельцу.
	ErrNotFound = errors.New("ассет не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrInvalidCategory — недопустимая категория загрузки.
	ErrInvalidCategory = errors.New("недопустимая категория: допустимые значения — garment, body, generated")
	// ErrFileTooLarge — заявленный размер превышает лимит.
	ErrFileTooLarge = errors.New("файл превышает максимальный размер")
	// ErrUnsupportedFormat — формат файла не поддерживается.
	ErrUnsupportedFormat = errors.New("неподдерживаемый формат: допустимые — jpg, jpeg, png, webp")
	// ErrAlreadyFinalized — статус ассета уже не pending.
	ErrAlreadyFinalized = errors.New("загрузка ассета уже завершена")
	// ErrUploadIncomplete — объект в хранилище отсутствует или его размер не совпадает.
	ErrUploadIncomplete = errors.New("загрузка не завершена")
	// ErrAssetNotReady — ассет ещё не загружен.
	ErrAssetNotReady = errors.New("ассет не загружен")
	// ErrStorageUnavailable — blob storage недоступен.
	ErrStorageUnavailable = errors.New("хранилище недоступно")

	// ErrInvalidBodyAsset — изображение человека непригодно для генерации.
	ErrInvalidBodyAsset = errors.New("некорректный ассет изображения человека")
	// ErrInvalidGarmentAsset — изображение одежды непригодно для генерации.
	ErrInvalidGarmentAsset = errors.New("некорректный ассет изображения одежды")
	// ErrTooManyGarments — количество вещей вне диапазона 1..3.
	ErrTooManyGarments = errors.New("количество вещей должно быть от 1 до 3")
	// ErrPartsLengthMismatch — длина partsOverride не совпадает с количеством вещей.
	ErrPartsLengthMismatch = errors.New("длина partsOverride не совпадает с количеством вещей")

	// ErrUnknownGenerator — генератор не зарегистрирован.
	ErrUnknownGenerator = generator.ErrUnknownGenerator
	// ErrGenerationFailed — генерация не удалась.
	ErrGenerationFailed = generator.ErrGenerationFailed
)
