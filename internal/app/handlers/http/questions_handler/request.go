package questions_handler

import (
	"strings"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/model"
)

// CreateQuestionRequest структура для запроса
type CreateQuestionRequest struct {
	Text               string         `json:"text"`
	Options            []model.Option `json:"options"`
	CorrectOptionIndex *int           `json:"correct_option_index"`
}

// Validate проверяет обязательные поля
func (r CreateQuestionRequest) Validate() error {
	fe := errs.FieldErrors{}
	if strings.TrimSpace(r.Text) == "" {
		fe.Add("text", "is required")
	}
	if len(r.Options) == 0 {
		fe.Add("options", "at least one option is required")
	}
	if r.CorrectOptionIndex == nil {
		fe.Add("correct_option_index", "is required")
	}
	return fe.Err()
}

func (r CreateQuestionRequest) toModel() model.QuestionDraft {
	return model.QuestionDraft{
		Text:               r.Text,
		Options:            r.Options,
		CorrectOptionIndex: *r.CorrectOptionIndex,
	}
}
