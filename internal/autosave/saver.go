package autosave

import (
	"context"

	"github.com/IT-Nick/testpoint/internal/domain/model"
)

// QuestionUpdater часть сервиса вопросов, нужная для сохранения
type QuestionUpdater interface {
	UpdateQuestion(ctx context.Context, actor model.Actor, testID, questionID string, patch model.QuestionPatch) (*model.Question, error)
}

// ServiceSaver сохраняет буфер через сервис вопросов от имени Actor
type ServiceSaver struct {
	Service QuestionUpdater
	Actor   model.Actor
}

// Save отправляет буфер целиком как патч
func (s ServiceSaver) Save(ctx context.Context, testID, questionID string, draft model.QuestionDraft) (*model.Question, error) {
	return s.Service.UpdateQuestion(ctx, s.Actor, testID, questionID, model.PatchFrom(draft))
}
