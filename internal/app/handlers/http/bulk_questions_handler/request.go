package bulk_questions_handler

import (
	"bytes"
	"encoding/json"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/IT-Nick/testpoint/internal/domain/questions/importer"
)

// RowRequest строка таблицы. Correct принимает число или строку ("2", "B").
type RowRequest struct {
	Line    int             `json:"line"`
	Text    string          `json:"text"`
	Options []string        `json:"options"`
	Correct json.RawMessage `json:"correct"`
}

// BulkQuestionsRequest структура для запроса: либо строки импорта, либо готовые вопросы
type BulkQuestionsRequest struct {
	Rows      []RowRequest          `json:"rows"`
	Questions []model.QuestionDraft `json:"questions"`
}

// Validate проверяет, что передан ровно один вид данных
func (r BulkQuestionsRequest) Validate() error {
	switch {
	case len(r.Rows) == 0 && len(r.Questions) == 0:
		return errs.Validation("body", "rows or questions are required")
	case len(r.Rows) > 0 && len(r.Questions) > 0:
		return errs.Validation("body", "rows and questions are mutually exclusive")
	}
	return nil
}

func (r BulkQuestionsRequest) toRows() []importer.Row {
	rows := make([]importer.Row, len(r.Rows))
	for i, row := range r.Rows {
		line := row.Line
		if line == 0 {
			line = i + 1
		}
		rows[i] = importer.Row{
			Line:    line,
			Text:    row.Text,
			Options: row.Options,
			Correct: correctString(row.Correct),
		}
	}
	return rows
}

// correctString приводит JSON-значение номера варианта к строке
func correctString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}
