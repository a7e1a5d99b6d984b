package question_handler

import (
	"errors"
	"net/http"

	"github.com/IT-Nick/testpoint/internal/auth"
	"github.com/IT-Nick/testpoint/internal/autosave"
	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	questionsService "github.com/IT-Nick/testpoint/internal/domain/questions/service"
	httpError "github.com/IT-Nick/testpoint/pkg/http"
)

// Drafts буферы автосохранения, которые надо держать в курсе прямых правок
type Drafts interface {
	Pending(id string) bool
	Refresh(q model.Question) error
	Untrack(id string)
}

// QuestionHandler структура для обработчика
type QuestionHandler struct {
	questionService *questionsService.QuestionService
	drafts          Drafts
}

// NewQuestionHandler создает новый экземпляр обработчика
func NewQuestionHandler(questionService *questionsService.QuestionService, drafts Drafts) *QuestionHandler {
	return &QuestionHandler{questionService: questionService, drafts: drafts}
}

// ServeHTTP GET возвращает вопрос, PATCH меняет его, DELETE удаляет
func (h *QuestionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		httpError.FromError(w, err)
		return
	}
	ctx := r.Context()
	testID, questionID := httpError.Var(r, "id"), httpError.Var(r, "qid")

	switch r.Method {
	case http.MethodGet:
		q, err := h.questionService.GetQuestion(ctx, actor, testID, questionID)
		if err != nil {
			httpError.FromError(w, err)
			return
		}
		httpError.JSON(w, http.StatusOK, q)

	case http.MethodPatch:
		var req UpdateQuestionRequest
		if err := httpError.DecodeJSON(w, r, &req); err != nil {
			httpError.FromError(w, err)
			return
		}
		if err := req.Validate(); err != nil {
			httpError.FromError(w, err)
			return
		}
		// Иначе автосохранение затрет правку старым буфером
		if h.drafts.Pending(questionID) {
			httpError.FromError(w, errs.New(errs.KindEditNotAllowed, "Question has unsaved draft changes."))
			return
		}
		q, err := h.questionService.UpdateQuestion(ctx, actor, testID, questionID, req.toModel())
		if err != nil {
			httpError.FromError(w, err)
			return
		}
		if err := h.drafts.Refresh(*q); err != nil && !errors.Is(err, autosave.ErrNotTracked) {
			httpError.FromError(w, errs.Storage("refresh draft", err))
			return
		}
		httpError.JSON(w, http.StatusOK, q)

	case http.MethodDelete:
		if err := h.questionService.DeleteQuestion(ctx, actor, testID, questionID); err != nil {
			httpError.FromError(w, err)
			return
		}
		h.drafts.Untrack(questionID)
		w.WriteHeader(http.StatusNoContent)

	default:
		httpError.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
