package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/gorilla/mux"
)

// MaxBodyBytes предельный размер JSON-тела запроса
const MaxBodyBytes = 1 << 20

// DecodeJSON читает тело запроса в v. Неизвестные поля считаются ошибкой.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.Validation("body", "request body is empty")
		}
		return errs.Validation("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	if dec.More() {
		return errs.Validation("body", "unexpected data after JSON object")
	}
	return nil
}

// Var параметр маршрута
func Var(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
