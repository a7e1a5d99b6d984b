package bulk_transition_handler

import (
	"net/http"

	"github.com/IT-Nick/testpoint/internal/auth"
	testsService "github.com/IT-Nick/testpoint/internal/domain/tests/service"
	httpError "github.com/IT-Nick/testpoint/pkg/http"
)

// BulkTransitionRequest структура для запроса
type BulkTransitionRequest struct {
	TestIDs []string `json:"test_ids"`
	Action  string   `json:"action"`
}

// BulkTransitionHandler структура для обработчика
type BulkTransitionHandler struct {
	testService *testsService.TestService
}

// NewBulkTransitionHandler создает новый экземпляр обработчика
func NewBulkTransitionHandler(testService *testsService.TestService) *BulkTransitionHandler {
	return &BulkTransitionHandler{testService: testService}
}

// ServeHTTP применяет действие к списку тестов. Отказы по отдельным тестам
// возвращаются в теле ответа с кодом 200.
func (h *BulkTransitionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		httpError.FromError(w, err)
		return
	}

	var req BulkTransitionRequest
	if err := httpError.DecodeJSON(w, r, &req); err != nil {
		httpError.FromError(w, err)
		return
	}

	result, err := h.testService.BulkTransition(r.Context(), actor, req.TestIDs, req.Action)
	if err != nil {
		httpError.FromError(w, err)
		return
	}

	httpError.JSON(w, http.StatusOK, result)
}
