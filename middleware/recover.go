package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	httpError "github.com/IT-Nick/testpoint/pkg/http"
)

// Recover перехватывает панику в обработчике, логирует ее и отвечает 500.
// onError, если передан, вызывается вместо логирования по умолчанию.
func Recover(log *slog.Logger, onError ...func(error, *http.Request)) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	handleError := func(err error, r *http.Request) {
		log.Error("recovered from panic",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"stack", string(debug.Stack()),
		)
	}
	if len(onError) > 0 {
		handleError = onError[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				var err error
				switch x := rec.(type) {
				case error:
					err = x
				case string:
					err = errors.New(x)
				default:
					err = fmt.Errorf("unknown panic: %v", x)
				}
				handleError(err, r)
				httpError.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
