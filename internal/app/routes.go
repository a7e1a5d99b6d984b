package app

import (
	"net/http"

	"github.com/IT-Nick/testpoint/internal/app/handlers/http/bulk_questions_handler"
	"github.com/IT-Nick/testpoint/internal/app/handlers/http/bulk_transition_handler"
	"github.com/IT-Nick/testpoint/internal/app/handlers/http/create_test_handler"
	"github.com/IT-Nick/testpoint/internal/app/handlers/http/import_questions_handler"
	"github.com/IT-Nick/testpoint/internal/app/handlers/http/list_tests_handler"
	"github.com/IT-Nick/testpoint/internal/app/handlers/http/question_draft_handler"
	"github.com/IT-Nick/testpoint/internal/app/handlers/http/question_handler"
	"github.com/IT-Nick/testpoint/internal/app/handlers/http/questions_handler"
	"github.com/IT-Nick/testpoint/internal/app/handlers/http/reconcile_handler"
	"github.com/IT-Nick/testpoint/internal/app/handlers/http/results_report_handler"
	"github.com/IT-Nick/testpoint/internal/app/handlers/http/test_details_handler"
	"github.com/IT-Nick/testpoint/internal/app/handlers/http/test_results_handler"
	"github.com/IT-Nick/testpoint/internal/app/handlers/http/transition_test_handler"
	"github.com/IT-Nick/testpoint/middleware"
	httpError "github.com/IT-Nick/testpoint/pkg/http"
	"github.com/gorilla/mux"
)

// Router регистрирует HTTP-обработчики
func (app *App) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recover(app.log), middleware.Logger(app.log))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpError.ErrorResponse(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpError.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.HandleFunc("/health", app.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(app.auth.Middleware, middleware.DebugActions(app.config.Log.Level == "debug", app.log))

	// Тесты
	api.Handle("/tests", create_test_handler.NewCreateTestHandler(app.testService)).Methods(http.MethodPost)
	api.Handle("/tests", list_tests_handler.NewListTestsHandler(app.testService)).Methods(http.MethodGet)
	api.Handle("/tests/bulk", bulk_transition_handler.NewBulkTransitionHandler(app.testService)).Methods(http.MethodPost)
	api.Handle("/tests/{id}", test_details_handler.NewTestDetailsHandler(app.testService)).
		Methods(http.MethodGet, http.MethodPatch, http.MethodDelete)
	api.Handle("/tests/{id}/{action:publish|complete|revert}", transition_test_handler.NewTransitionTestHandler(app.testService)).
		Methods(http.MethodPost)
	api.Handle("/tests/{id}/results", test_results_handler.NewTestResultsHandler(app.testService)).
		Methods(http.MethodGet, http.MethodPost)
	api.Handle("/tests/{id}/results/report", results_report_handler.NewResultsReportHandler(app.testService, app.reports)).
		Methods(http.MethodGet)

	// Вопросы
	api.Handle("/tests/{id}/questions", questions_handler.NewQuestionsHandler(app.questionService)).
		Methods(http.MethodGet, http.MethodPost)
	api.Handle("/tests/{id}/questions/bulk", bulk_questions_handler.NewBulkQuestionsHandler(app.questionService)).
		Methods(http.MethodPost)
	api.Handle("/tests/{id}/questions/import", import_questions_handler.NewImportQuestionsHandler(
		app.questionService, app.config.Import.MaxRows, app.config.Import.Sheet)).Methods(http.MethodPost)
	api.Handle("/tests/{id}/questions/reconcile", reconcile_handler.NewReconcileHandler(app.questionService)).
		Methods(http.MethodPost)
	api.Handle("/tests/{id}/questions/{qid}", question_handler.NewQuestionHandler(app.questionService, app.pipeline)).
		Methods(http.MethodGet, http.MethodPatch, http.MethodDelete)
	api.Handle("/tests/{id}/questions/{qid}/draft", question_draft_handler.NewQuestionDraftHandler(app.questionService, app.pipeline)).
		Methods(http.MethodGet, http.MethodPut, http.MethodDelete)

	return r
}

func (app *App) health(w http.ResponseWriter, _ *http.Request) {
	httpError.JSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"autosave": string(app.pipeline.Aggregate()),
	})
}
