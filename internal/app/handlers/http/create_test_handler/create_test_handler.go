package create_test_handler

import (
	"net/http"

	"github.com/IT-Nick/testpoint/internal/auth"
	testsService "github.com/IT-Nick/testpoint/internal/domain/tests/service"
	httpError "github.com/IT-Nick/testpoint/pkg/http"
)

// CreateTestHandler структура для обработчика
type CreateTestHandler struct {
	testService *testsService.TestService
}

// NewCreateTestHandler создает новый экземпляр обработчика
func NewCreateTestHandler(testService *testsService.TestService) *CreateTestHandler {
	return &CreateTestHandler{testService: testService}
}

// ServeHTTP создает тест в статусе draft
func (h *CreateTestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		httpError.FromError(w, err)
		return
	}

	var req CreateTestRequest
	if err := httpError.DecodeJSON(w, r, &req); err != nil {
		httpError.FromError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httpError.FromError(w, err)
		return
	}

	test, err := h.testService.CreateTest(r.Context(), actor, req.toModel())
	if err != nil {
		httpError.FromError(w, err)
		return
	}

	httpError.JSON(w, http.StatusCreated, test)
}
