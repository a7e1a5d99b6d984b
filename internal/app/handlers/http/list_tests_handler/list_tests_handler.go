package list_tests_handler

import (
	"net/http"
	"strings"

	"github.com/IT-Nick/testpoint/internal/auth"
	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	testsService "github.com/IT-Nick/testpoint/internal/domain/tests/service"
	httpError "github.com/IT-Nick/testpoint/pkg/http"
)

// ListTestsResponse структура для ответа
type ListTestsResponse struct {
	Total int          `json:"total"`
	Tests []model.Test `json:"tests"`
}

// ListTestsHandler структура для обработчика
type ListTestsHandler struct {
	testService *testsService.TestService
}

// NewListTestsHandler создает новый экземпляр обработчика
func NewListTestsHandler(testService *testsService.TestService) *ListTestsHandler {
	return &ListTestsHandler{testService: testService}
}

// ServeHTTP возвращает видимые актору тесты, новые первыми.
// Фильтр: ?status=draft,published
func (h *ListTestsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		httpError.FromError(w, err)
		return
	}

	var statuses []model.TestStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st := model.TestStatus(strings.TrimSpace(part))
			if !st.Valid() {
				httpError.FromError(w, errs.Validation("status", "unknown status "+string(st)))
				return
			}
			statuses = append(statuses, st)
		}
	}

	tests, err := h.testService.ListTests(r.Context(), actor, statuses...)
	if err != nil {
		httpError.FromError(w, err)
		return
	}
	if tests == nil {
		tests = []model.Test{}
	}

	httpError.JSON(w, http.StatusOK, ListTestsResponse{Total: len(tests), Tests: tests})
}
