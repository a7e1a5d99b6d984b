// Package http содержит общие JSON-ответы HTTP-обработчиков.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
)

// Error тело ответа с ошибкой
type Error struct {
	Error  string            `json:"error"`
	Kind   errs.Kind         `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	From   string            `json:"from,omitempty"`
	To     string            `json:"to,omitempty"`
}

// JSON пишет v с кодом status
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

// ErrorResponse пишет ошибку с сообщением msg
func ErrorResponse(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Error{Error: msg})
}

// StatusOf код ответа для ошибки домена
func StatusOf(err error) int {
	switch errs.KindOf(err) {
	case errs.KindUnauthorized:
		return http.StatusUnauthorized
	case errs.KindForbidden:
		return http.StatusForbidden
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindInvalidTransition, errs.KindNotDraft, errs.KindEditNotAllowed:
		return http.StatusConflict
	case errs.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError пишет ответ по ошибке домена. Неизвестные ошибки скрываются.
func FromError(w http.ResponseWriter, err error) {
	status := StatusOf(err)

	var de *errs.Error
	if !errors.As(err, &de) {
		ErrorResponse(w, status, "Internal server error")
		return
	}

	body := Error{
		Error:  de.Error(),
		Kind:   de.Kind,
		Fields: de.Fields,
		From:   de.From,
		To:     de.To,
	}
	if de.Kind == errs.KindStorage {
		body.Error = "Storage unavailable, retry later"
	}
	JSON(w, status, body)
}
