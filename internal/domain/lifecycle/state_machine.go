// Пакет lifecycle — конечный автомат статусов ассета.
//
// Жизненный цикл:
//   - pending → uploaded (клиент подтвердил загрузку)
//   - pending → uploading_failed (загрузка не состоялась)
//
// uploaded и uploading_failed — конечные статусы, обратных переходов нет.
// Сгенерированные ассеты создаются сразу в uploaded.
//
// Пакет не хранит состояние: статус живёт в БД, а атомарность перехода
// обеспечивает compare-and-set в репозитории. Здесь только матрицы правил.
package lifecycle

import (
	"fmt"

	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
)

// Operation — операция над ассетом.
type Operation string

const (
	OpConfirm     Operation = "confirm"
	OpFail        Operation = "fail"
	OpDownload    Operation = "download"
	OpGenerate    Operation = "generate"
	OpClassify    Operation = "classify"
	OpIssueUpload Operation = "issue_upload"
)

// validTransitions — матрица допустимых переходов.
// Ключ — текущий статус, значение — набор допустимых целевых статусов.
var validTransitions = map[model.Status]map[model.Status]bool{
	model.StatusPending:         {model.StatusUploaded: true, model.StatusUploadingFailed: true},
	model.StatusUploaded:        {},
	model.StatusUploadingFailed: {},
}

// allowedOperations — матрица допустимых операций для каждого статуса.
var allowedOperations = map[model.Status]map[Operation]bool{
	model.StatusPending:         {OpConfirm: true, OpFail: true, OpIssueUpload: true},
	model.StatusUploaded:        {OpDownload: true, OpGenerate: true, OpClassify: true},
	model.StatusUploadingFailed: {},
}

// CanTransition проверяет, допустим ли переход from → to.
func CanTransition(from, to model.Status) bool {
	transitions, ok := validTransitions[from]
	if !ok {
		return false
	}
	return transitions[to]
}

// CheckTransition возвращает *TransitionError, если переход недопустим.
func CheckTransition(from, to model.Status) error {
	if _, ok := validTransitions[to]; !ok {
		return &TransitionError{
			Code:    "INVALID_TRANSITION",
			Message: fmt.Sprintf("недопустимый целевой статус: %q", to),
		}
	}
	if !CanTransition(from, to) {
		return &TransitionError{
			Code:    "ALREADY_FINALIZED",
			Message: fmt.Sprintf("переход %s → %s недопустим", from, to),
		}
	}
	return nil
}

// CanPerform проверяет, допустима ли операция в указанном статусе.
func CanPerform(status model.Status, op Operation) bool {
	ops, ok := allowedOperations[status]
	if !ok {
		return false
	}
	return ops[op]
}

// IsFinal сообщает, что из статуса нет переходов.
func IsFinal(status model.Status) bool {
	return len(validTransitions[status]) == 0
}

// TransitionError — ошибка перехода между статусами.
type TransitionError struct {
	Code    string // Машиночитаемый код (INVALID_TRANSITION, ALREADY_FINALIZED)
	Message string // Человекочитаемое описание
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
