package import_questions_handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/IT-Nick/testpoint/internal/auth"
	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/questions/importer"
	questionsService "github.com/IT-Nick/testpoint/internal/domain/questions/service"
	httpError "github.com/IT-Nick/testpoint/pkg/http"
)

// maxUploadBytes предельный размер загружаемого файла
const maxUploadBytes = 10 << 20

// ImportQuestionsHandler структура для обработчика
type ImportQuestionsHandler struct {
	questionService *questionsService.QuestionService
	maxRows         int
	sheet           string
}

// NewImportQuestionsHandler создает новый экземпляр обработчика
func NewImportQuestionsHandler(questionService *questionsService.QuestionService, maxRows int, sheet string) *ImportQuestionsHandler {
	return &ImportQuestionsHandler{
		questionService: questionService,
		maxRows:         maxRows,
		sheet:           sheet,
	}
}

// ServeHTTP принимает CSV или XLSX в поле file формы multipart
func (h *ImportQuestionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		httpError.FromError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		httpError.FromError(w, errs.Validation("file", "multipart field file is required"))
		return
	}
	defer file.Close()

	format := r.URL.Query().Get("format")
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	}

	var rows []importer.Row
	switch format {
	case "csv":
		rows, err = importer.ReadCSV(file, h.maxRows)
	case "xlsx":
		sheet := r.URL.Query().Get("sheet")
		if sheet == "" {
			sheet = h.sheet
		}
		rows, err = importer.ReadXLSX(file, sheet, h.maxRows)
	default:
		httpError.FromError(w, errs.Validation("file", "only .csv and .xlsx files are supported"))
		return
	}
	if err != nil {
		httpError.FromError(w, errs.Validation("file", err.Error()))
		return
	}

	result, err := h.questionService.BulkImportQuestions(r.Context(), actor, httpError.Var(r, "id"), rows)
	if err != nil {
		httpError.FromError(w, err)
		return
	}

	httpError.JSON(w, http.StatusCreated, result)
}
