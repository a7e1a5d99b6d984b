package bulk_questions_handler

import (
	"net/http"

	"github.com/IT-Nick/testpoint/internal/auth"
	questionsService "github.com/IT-Nick/testpoint/internal/domain/questions/service"
	httpError "github.com/IT-Nick/testpoint/pkg/http"
)

// BulkQuestionsHandler структура для обработчика
type BulkQuestionsHandler struct {
	questionService *questionsService.QuestionService
}

// NewBulkQuestionsHandler создает новый экземпляр обработчика
func NewBulkQuestionsHandler(questionService *questionsService.QuestionService) *BulkQuestionsHandler {
	return &BulkQuestionsHandler{questionService: questionService}
}

// ServeHTTP добавляет вопросы пачкой. Некорректные строки пропускаются
// и перечисляются в ответе.
func (h *BulkQuestionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		httpError.FromError(w, err)
		return
	}

	var req BulkQuestionsRequest
	if err := httpError.DecodeJSON(w, r, &req); err != nil {
		httpError.FromError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httpError.FromError(w, err)
		return
	}

	ctx := r.Context()
	testID := httpError.Var(r, "id")

	if len(req.Questions) > 0 {
		result, err := h.questionService.BulkCreateQuestions(ctx, actor, testID, req.Questions)
		if err != nil {
			httpError.FromError(w, err)
			return
		}
		httpError.JSON(w, http.StatusCreated, result)
		return
	}

	result, err := h.questionService.BulkImportQuestions(ctx, actor, testID, req.toRows())
	if err != nil {
		httpError.FromError(w, err)
		return
	}
	httpError.JSON(w, http.StatusCreated, result)
}
