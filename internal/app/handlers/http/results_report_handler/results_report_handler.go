package results_report_handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/IT-Nick/testpoint/internal/auth"
	testsService "github.com/IT-Nick/testpoint/internal/domain/tests/service"
	"github.com/IT-Nick/testpoint/internal/report"
	httpError "github.com/IT-Nick/testpoint/pkg/http"
)

// ResultsReportHandler структура для обработчика
type ResultsReportHandler struct {
	testService *testsService.TestService
	generator   *report.Generator
}

// NewResultsReportHandler создает новый экземпляр обработчика
func NewResultsReportHandler(testService *testsService.TestService, generator *report.Generator) *ResultsReportHandler {
	return &ResultsReportHandler{testService: testService, generator: generator}
}

// ServeHTTP отдает PDF-отчет по попыткам теста
func (h *ResultsReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		httpError.FromError(w, err)
		return
	}
	id := httpError.Var(r, "id")

	test, sessions, err := h.testService.ResultsReport(r.Context(), actor, id)
	if err != nil {
		httpError.FromError(w, err)
		return
	}

	// Отчет собирается в памяти, чтобы ошибка не обрезала ответ
	var buf bytes.Buffer
	if err := h.generator.Write(&buf, report.Results{Test: *test, Sessions: sessions}); err != nil {
		httpError.FromError(w, fmt.Errorf("failed to generate report: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "results_"+id+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
