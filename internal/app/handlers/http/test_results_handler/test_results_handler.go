package test_results_handler

import (
	"net/http"

	"github.com/IT-Nick/testpoint/internal/auth"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	testsService "github.com/IT-Nick/testpoint/internal/domain/tests/service"
	httpError "github.com/IT-Nick/testpoint/pkg/http"
)

// ResultsResponse структура для ответа
type ResultsResponse struct {
	Total    int                 `json:"total"`
	Sessions []model.TestSession `json:"sessions"`
}

// ResetRequest структура для запроса сброса попыток
type ResetRequest struct {
	SessionIDs []string `json:"session_ids"`
}

// ResetResponse структура для ответа на сброс
type ResetResponse struct {
	Deleted int `json:"deleted"`
}

// TestResultsHandler структура для обработчика
type TestResultsHandler struct {
	testService *testsService.TestService
}

// NewTestResultsHandler создает новый экземпляр обработчика
func NewTestResultsHandler(testService *testsService.TestService) *TestResultsHandler {
	return &TestResultsHandler{testService: testService}
}

// ServeHTTP GET возвращает попытки студентов, POST удаляет выбранные попытки
func (h *TestResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		httpError.FromError(w, err)
		return
	}
	ctx := r.Context()
	id := httpError.Var(r, "id")

	switch r.Method {
	case http.MethodGet:
		sessions, err := h.testService.ListResults(ctx, actor, id)
		if err != nil {
			httpError.FromError(w, err)
			return
		}
		if sessions == nil {
			sessions = []model.TestSession{}
		}
		httpError.JSON(w, http.StatusOK, ResultsResponse{Total: len(sessions), Sessions: sessions})

	case http.MethodPost:
		var req ResetRequest
		if err := httpError.DecodeJSON(w, r, &req); err != nil {
			httpError.FromError(w, err)
			return
		}
		deleted, err := h.testService.ResetSessions(ctx, actor, id, req.SessionIDs)
		if err != nil {
			httpError.FromError(w, err)
			return
		}
		httpError.JSON(w, http.StatusOK, ResetResponse{Deleted: deleted})

	default:
		httpError.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
