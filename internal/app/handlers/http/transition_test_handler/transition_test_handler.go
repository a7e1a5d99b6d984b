package transition_test_handler

import (
	"net/http"

	"github.com/IT-Nick/testpoint/internal/auth"
	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/lifecycle"
	testsService "github.com/IT-Nick/testpoint/internal/domain/tests/service"
	httpError "github.com/IT-Nick/testpoint/pkg/http"
)

// routeActions действия, доступные по отдельному маршруту
var routeActions = map[string]lifecycle.Action{
	"publish":  lifecycle.ActionPublish,
	"complete": lifecycle.ActionComplete,
	"revert":   lifecycle.ActionRevert,
}

// TransitionTestHandler структура для обработчика
type TransitionTestHandler struct {
	testService *testsService.TestService
}

// NewTransitionTestHandler создает новый экземпляр обработчика
func NewTransitionTestHandler(testService *testsService.TestService) *TransitionTestHandler {
	return &TransitionTestHandler{testService: testService}
}

// ServeHTTP переводит тест в новый статус: publish, complete или revert
func (h *TransitionTestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		httpError.FromError(w, err)
		return
	}

	action, ok := routeActions[httpError.Var(r, "action")]
	if !ok {
		httpError.FromError(w, errs.Validation("action", lifecycle.ReasonInvalidAction))
		return
	}

	test, err := h.testService.Transition(r.Context(), actor, httpError.Var(r, "id"), action)
	if err != nil {
		httpError.FromError(w, err)
		return
	}

	httpError.JSON(w, http.StatusOK, test)
}
