package question_draft_handler

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

// RevertResponse структура для ответа на откат черновика
type RevertResponse struct {
	Before  autosave.Snapshot `json:"before"`
	Current autosave.Snapshot `json:"current"`
}

// QuestionDraftHandler структура для обработчика
type QuestionDraftHandler struct {
	questionService *questionsService.QuestionService
	pipeline        *autosave.Pipeline
}

// NewQuestionDraftHandler создает новый экземпляр обработчика
func NewQuestionDraftHandler(questionService *questionsService.QuestionService, pipeline *autosave.Pipeline) *QuestionDraftHandler {
	return &QuestionDraftHandler{questionService: questionService, pipeline: pipeline}
}

// ServeHTTP GET возвращает состояние черновика, PUT заменяет буфер
// (?flush=true сохраняет сразу), DELETE откатывает к сохраненной версии
func (h *QuestionDraftHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		httpError.FromError(w, err)
		return
	}
	ctx := r.Context()
	testID, questionID := httpError.Var(r, "id"), httpError.Var(r, "qid")

	// Права проверяет сервис вопросов
	q, err := h.questionService.GetQuestion(ctx, actor, testID, questionID)
	if err != nil {
		httpError.FromError(w, err)
		return
	}
	if err := h.track(q); err != nil {
		httpError.FromError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.writeSnapshot(w, http.StatusOK, questionID)

	case http.MethodPut:
		var draft model.QuestionDraft
		if err := httpError.DecodeJSON(w, r, &draft); err != nil {
			httpError.FromError(w, err)
			return
		}
		err := h.pipeline.Edit(questionID, func(d *model.QuestionDraft) error {
			// Клиент может не присылать id вариантов
			autosave.MatchOptionIDs(&draft, d.Options)
			*d = draft
			return nil
		})
		if err != nil {
			httpError.FromError(w, errs.Storage("edit draft", err))
			return
		}
		if r.URL.Query().Get("flush") == "true" {
			if err := h.pipeline.Flush(ctx); err != nil {
				// Состояние error видно в снимке
				h.writeSnapshot(w, http.StatusOK, questionID)
				return
			}
		}
		h.writeSnapshot(w, http.StatusAccepted, questionID)

	case http.MethodDelete:
		before, err := h.pipeline.Revert(questionID)
		if err != nil {
			httpError.FromError(w, errs.Storage("revert draft", err))
			return
		}
		current, _ := h.pipeline.Snapshot(questionID)
		httpError.JSON(w, http.StatusOK, RevertResponse{Before: before, Current: current})

	default:
		httpError.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// track начинает отслеживать вопрос, если он еще не в конвейере
func (h *QuestionDraftHandler) track(q *model.Question) error {
	if _, ok := h.pipeline.Snapshot(q.ID); ok {
		return nil
	}
	err := h.pipeline.Track(*q)
	if err != nil && !errors.Is(err, autosave.ErrAlreadyTracked) {
		return errs.Storage("track draft", err)
	}
	return nil
}

func (h *QuestionDraftHandler) writeSnapshot(w http.ResponseWriter, status int, questionID string) {
	snap, ok := h.pipeline.Snapshot(questionID)
	if !ok {
		httpError.FromError(w, errs.NotFound("Question"))
		return
	}
	httpError.JSON(w, status, snap)
}
