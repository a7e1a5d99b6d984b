// Package storage описывает транзакционный доступ к тестам, вопросам и сессиям.
package storage

import (
	"context"
	"errors"

	"github.com/IT-Nick/testpoint/internal/domain/model"
)

var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")
	// ErrConflict запись изменена параллельной транзакцией
	ErrConflict = errors.New("concurrent modification")
)

// TestFilter условия выборки тестов
type TestFilter struct {
	Statuses []model.TestStatus
}

// Tx операции, доступные внутри одной транзакции.
// UpdateTest сверяет Version теста с сохраненным значением и увеличивает его,
// при расхождении возвращает ErrConflict.
type Tx interface {
	GetTest(ctx context.Context, id string) (*model.Test, error)
	ListTests(ctx context.Context, filter TestFilter) ([]model.Test, error)
	InsertTest(ctx context.Context, test *model.Test) error
	UpdateTest(ctx context.Context, test *model.Test) error
	// DeleteTest удаляет тест той версии, которую прочитала транзакция
	DeleteTest(ctx context.Context, id string, version int64) error

	GetQuestion(ctx context.Context, testID, questionID string) (*model.Question, error)
	ListQuestions(ctx context.Context, testID string) ([]model.Question, error)
	CountQuestions(ctx context.Context, testID string) (int, error)
	InsertQuestion(ctx context.Context, question *model.Question) error
	UpdateQuestion(ctx context.Context, question *model.Question) error
	// DeleteQuestion сообщает, была ли запись действительно удалена
	DeleteQuestion(ctx context.Context, testID, questionID string) (bool, error)
	DeleteQuestionsByTest(ctx context.Context, testID string) (int, error)

	ListSessions(ctx context.Context, testID string) ([]model.TestSession, error)
	// DeleteSessions удаляет указанные сессии теста, а при пустом списке все сессии теста
	DeleteSessions(ctx context.Context, testID string, ids []string) (int, error)

	GetGroup(ctx context.Context, id string) (*model.Group, error)
}

// TxFunc тело транзакции
type TxFunc func(ctx context.Context, tx Tx) error

// Store хранилище с транзакциями
type Store interface {
	// RunInTx выполняет fn в транзакции. Ошибка fn откатывает транзакцию,
	// конфликт при фиксации возвращается как ErrConflict.
	RunInTx(ctx context.Context, fn TxFunc) error
	Close() error
}

// Seeder принимает данные, которыми владеют внешние системы: группы и попытки студентов
type Seeder interface {
	AddGroup(ctx context.Context, g model.Group) error
	AddSession(ctx context.Context, s model.TestSession) error
}

// Backend хранилище вместе с Seeder
type Backend interface {
	Store
	Seeder
}
