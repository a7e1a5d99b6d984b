package middleware

import (
	"log/slog"
	"net/http"

	"github.com/IT-Nick/testpoint/internal/auth"
)

// DebugActions при enabled логирует, какой актор вызвал какой маршрут.
// Ставится после аутентификации.
func DebugActions(enabled bool, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled || log == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := auth.ActorFromContext(r.Context())
			log.Debug("actor action",
				"actor_id", actor.ID,
				"role", actor.Role,
				"groups", actor.GroupIDs,
				"action", r.Method+" "+r.URL.Path,
			)
			next.ServeHTTP(w, r)
		})
	}
}
