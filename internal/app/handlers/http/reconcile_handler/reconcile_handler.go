package reconcile_handler

import (
	"net/http"

	"github.com/IT-Nick/testpoint/internal/auth"
	questionsService "github.com/IT-Nick/testpoint/internal/domain/questions/service"
	httpError "github.com/IT-Nick/testpoint/pkg/http"
)

// ReconcileHandler структура для обработчика
type ReconcileHandler struct {
	questionService *questionsService.QuestionService
}

// NewReconcileHandler создает новый экземпляр обработчика
func NewReconcileHandler(questionService *questionsService.QuestionService) *ReconcileHandler {
	return &ReconcileHandler{questionService: questionService}
}

// ServeHTTP пересчитывает question_count теста
func (h *ReconcileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		httpError.FromError(w, err)
		return
	}

	result, err := h.questionService.Reconcile(r.Context(), actor, httpError.Var(r, "id"))
	if err != nil {
		httpError.FromError(w, err)
		return
	}

	httpError.JSON(w, http.StatusOK, result)
}
