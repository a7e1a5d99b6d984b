package questions_handler

import (
	"net/http"

	"github.com/IT-Nick/testpoint/internal/auth"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	questionsService "github.com/IT-Nick/testpoint/internal/domain/questions/service"
	httpError "github.com/IT-Nick/testpoint/pkg/http"
)

// ListQuestionsResponse структура для ответа
type ListQuestionsResponse struct {
	Total     int              `json:"total"`
	Questions []model.Question `json:"questions"`
}

// QuestionsHandler структура для обработчика
type QuestionsHandler struct {
	questionService *questionsService.QuestionService
}

// NewQuestionsHandler создает новый экземпляр обработчика
func NewQuestionsHandler(questionService *questionsService.QuestionService) *QuestionsHandler {
	return &QuestionsHandler{questionService: questionService}
}

// ServeHTTP GET возвращает вопросы теста, POST добавляет вопрос
func (h *QuestionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		httpError.FromError(w, err)
		return
	}
	ctx := r.Context()
	testID := httpError.Var(r, "id")

	switch r.Method {
	case http.MethodGet:
		questions, err := h.questionService.ListQuestions(ctx, actor, testID)
		if err != nil {
			httpError.FromError(w, err)
			return
		}
		if questions == nil {
			questions = []model.Question{}
		}
		httpError.JSON(w, http.StatusOK, ListQuestionsResponse{Total: len(questions), Questions: questions})

	case http.MethodPost:
		var req CreateQuestionRequest
		if err := httpError.DecodeJSON(w, r, &req); err != nil {
			httpError.FromError(w, err)
			return
		}
		if err := req.Validate(); err != nil {
			httpError.FromError(w, err)
			return
		}
		q, err := h.questionService.CreateQuestion(ctx, actor, testID, req.toModel())
		if err != nil {
			httpError.FromError(w, err)
			return
		}
		httpError.JSON(w, http.StatusCreated, q)

	default:
		httpError.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
