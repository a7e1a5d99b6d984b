// Package errs описывает типизированные ошибки предметной области.
package errs

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Kind категория ошибки
type Kind string

const (
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation_error"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotDraft          Kind = "not_draft"
	KindEditNotAllowed    Kind = "edit_not_allowed"
	KindStorage           Kind = "storage_error"
)

// Error ошибка предметной области
type Error struct {
	Kind    Kind
	Message string
	// Fields причины ошибок валидации по именам полей
	Fields map[string]string
	// From и To заполняются для недопустимых переходов
	From string
	To   string
	Err  error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
			parts = append(parts, k+": "+e.Fields[k])
		}
		return "validation failed: " + strings.Join(parts, "; ")
	}
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf возвращает категорию ошибки или пустую строку для чужих ошибок
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is сообщает, относится ли ошибка к категории
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// New создает ошибку с сообщением
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Unauthorized запрос без валидной сессии
func Unauthorized(msg string) *Error {
	return New(KindUnauthorized, msg)
}

// Forbidden у актора нет прав на операцию
func Forbidden() *Error {
	return New(KindForbidden, "Forbidden")
}

// NotFound сущность не найдена
func NotFound(entity string) *Error {
	return New(KindNotFound, entity+" not found")
}

// Validation ошибка валидации одного поля
func Validation(field, reason string) *Error {
	return &Error{Kind: KindValidation, Fields: map[string]string{field: reason}}
}

// FieldErrors накапливает ошибки валидации по полям
type FieldErrors map[string]string

// Add запоминает первую причину для поля
func (f FieldErrors) Add(field, reason string) {
	if _, ok := f[field]; !ok {
		f[field] = reason
	}
}

// Err возвращает ошибку валидации или nil, если ошибок нет
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &Error{Kind: KindValidation, Fields: map[string]string(f)}
}

// Transition недопустимый переход между состояниями
func Transition(from, to, reason string) *Error {
	if reason == "" {
		reason = fmt.Sprintf("cannot move test from %s to %s", from, to)
	}
	return &Error{Kind: KindInvalidTransition, Message: reason, From: from, To: to}
}

// NotDraft операция доступна только для черновиков
func NotDraft(from, reason string) *Error {
	return &Error{Kind: KindNotDraft, Message: reason, From: from, To: "deleted"}
}

// EditNotAllowed детали теста нельзя менять в текущем состоянии
func EditNotAllowed(status string) *Error {
	return &Error{Kind: KindEditNotAllowed, Message: "Only draft tests can be edited.", From: status}
}

// Storage оборачивает ошибку хранилища
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
}
