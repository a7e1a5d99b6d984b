package test_details_handler

import (
	"net/http"

	"github.com/IT-Nick/testpoint/internal/auth"
	testsService "github.com/IT-Nick/testpoint/internal/domain/tests/service"
	httpError "github.com/IT-Nick/testpoint/pkg/http"
)

// TestDetailsHandler структура для обработчика
type TestDetailsHandler struct {
	testService *testsService.TestService
}

// NewTestDetailsHandler создает новый экземпляр обработчика
func NewTestDetailsHandler(testService *testsService.TestService) *TestDetailsHandler {
	return &TestDetailsHandler{testService: testService}
}

// ServeHTTP GET возвращает тест, PATCH меняет детали черновика, DELETE удаляет черновик
func (h *TestDetailsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		httpError.FromError(w, err)
		return
	}
	ctx := r.Context()
	id := httpError.Var(r, "id")

	switch r.Method {
	case http.MethodGet:
		test, err := h.testService.GetTest(ctx, actor, id)
		if err != nil {
			httpError.FromError(w, err)
			return
		}
		httpError.JSON(w, http.StatusOK, test)

	case http.MethodPatch:
		var req UpdateTestRequest
		if err := httpError.DecodeJSON(w, r, &req); err != nil {
			httpError.FromError(w, err)
			return
		}
		if err := req.Validate(); err != nil {
			httpError.FromError(w, err)
			return
		}
		test, err := h.testService.UpdateTestDetails(ctx, actor, id, req.toModel())
		if err != nil {
			httpError.FromError(w, err)
			return
		}
		httpError.JSON(w, http.StatusOK, test)

	case http.MethodDelete:
		if err := h.testService.DeleteTest(ctx, actor, id); err != nil {
			httpError.FromError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		httpError.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
