// Пакет errors — конструкторы стандартных ошибок API.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // конфликт имени со stdlib, импортируется как apierrors

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок, определённые в OpenAPI контракте.
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeInvalidCategory     = "INVALID_CATEGORY"
	CodeFileTooLarge        = "FILE_TOO_LARGE"
	CodeUnsupportedFormat   = "UNSUPPORTED_FORMAT"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyFinalized    = "ALREADY_FINALIZED"
	CodeUploadIncomplete    = "UPLOAD_INCOMPLETE"
	CodeAssetNotReady       = "ASSET_NOT_READY"
	CodeInvalidBodyAsset    = "INVALID_BODY_ASSET"
	CodeInvalidGarmentAsset = "INVALID_GARMENT_ASSET"
	CodeTooManyGarments     = "TOO_MANY_GARMENTS"
	CodePartsLengthMismatch = "PARTS_LENGTH_MISMATCH"
	CodeUnknownGenerator    = "UNKNOWN_GENERATOR"
	CodeGenerationFailed    = "GENERATION_FAILED"
	CodeStorageUnavailable  = "STORAGE_UNAVAILABLE"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeAccessDenied        = "ACCESS_DENIED"
	CodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	CodeInternalError       = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// BadRequest — 400 с произвольным кодом предметной ошибки.
func BadRequest(w http.ResponseWriter, code, message string) {
	WriteError(w, http.StatusBadRequest, code, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Conflict — 409 с произвольным кодом (ALREADY_FINALIZED, UPLOAD_INCOMPLETE, ASSET_NOT_READY).
func Conflict(w http.ResponseWriter, code, message string) {
	WriteError(w, http.StatusConflict, code, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// AccessDenied — 403 делегированный URL недействителен.
func AccessDenied(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeAccessDenied, message)
}

// PayloadTooLarge — 413 тело запроса превышает лимит.
func PayloadTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, message)
}

// GenerationFailed — 502 ошибка генератора или получения изображений.
func GenerationFailed(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeGenerationFailed, message)
}

// StorageUnavailable — 503 blob storage недоступен.
func StorageUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, CodeStorageUnavailable, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
