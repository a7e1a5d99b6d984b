package question_handler

import (
	"strings"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/model"
)

// UpdateQuestionRequest структура для запроса. Отсутствующие поля не меняются.
type UpdateQuestionRequest struct {
	Text               *string        `json:"text"`
	Options            []model.Option `json:"options"`
	CorrectOptionIndex *int           `json:"correct_option_index"`
}

// Validate проверяет переданные поля
func (r UpdateQuestionRequest) Validate() error {
	fe := errs.FieldErrors{}
	if r.Text == nil && r.Options == nil && r.CorrectOptionIndex == nil {
		fe.Add("body", "at least one field is required")
	}
	if r.Text != nil && strings.TrimSpace(*r.Text) == "" {
		fe.Add("text", "must not be empty")
	}
	if r.Options != nil && len(r.Options) == 0 {
		fe.Add("options", "at least one option is required")
	}
	return fe.Err()
}

func (r UpdateQuestionRequest) toModel() model.QuestionPatch {
	return model.QuestionPatch{
		Text:               r.Text,
		Options:            r.Options,
		CorrectOptionIndex: r.CorrectOptionIndex,
	}
}
