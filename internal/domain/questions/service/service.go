package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/lifecycle"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/IT-Nick/testpoint/internal/domain/questions/importer"
	"github.com/IT-Nick/testpoint/internal/storage"
	"github.com/google/uuid"
)

// Options настройки QuestionService
type Options struct {
	MaxAttempts int
	Import      importer.Options
	Logger      *slog.Logger
	Now         func() time.Time
}

// QuestionService управляет вопросами и поддерживает question_count теста
// в одной транзакции с каждым изменением набора вопросов
type QuestionService struct {
	store    storage.Store
	attempts int
	imports  importer.Options
	log      *slog.Logger
	now      func() time.Time
}

// NewQuestionService создает новый экземпляр QuestionService
func NewQuestionService(store storage.Store, opts Options) *QuestionService {
	s := &QuestionService{
		store:    store,
		attempts: opts.MaxAttempts,
		imports:  opts.Import,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ItemError причина отказа для одного элемента пакета
type ItemError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BulkCreateResult итог пакетного создания
type BulkCreateResult struct {
	SuccessCount int              `json:"successCount"`
	Created      []model.Question `json:"created"`
	Errors       []ItemError      `json:"errors"`
}

// ImportResult итог импорта строк
type ImportResult struct {
	TotalRows    int                `json:"totalRows"`
	SuccessCount int                `json:"successCount"`
	Skipped      []importer.Skipped `json:"skipped"`
}

// ReconcileResult значения счетчика до и после пересчета
type ReconcileResult struct {
	Before int `json:"before"`
	After  int `json:"after"`
}

func wrapErr(op string, err error) error {
	var de *errs.Error
	if errors.As(err, &de) {
		return err
	}
	return errs.Storage(op, err)
}

// loadTest читает тест и проверяет права актора на изменение его вопросов
func loadTest(ctx context.Context, tx storage.Tx, actor model.Actor, testID string) (*model.Test, error) {
	test, err := tx.GetTest(ctx, testID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errs.NotFound("Test")
	}
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(actor, test); err != nil {
		return nil, err
	}
	return test, nil
}

// ValidateDraft проверяет содержимое вопроса
func ValidateDraft(d model.QuestionDraft) error {
	fe := errs.FieldErrors{}
	if strings.TrimSpace(d.Text) == "" {
		fe.Add("text", "must not be empty")
	}
	if len(d.Options) == 0 {
		fe.Add("options", "must contain at least one option")
	} else if d.CorrectOptionIndex < 0 || d.CorrectOptionIndex >= len(d.Options) {
		fe.Add("correct_option_index", fmt.Sprintf("must be between 0 and %d", len(d.Options)-1))
	}
	return fe.Err()
}

// withOptionIDs назначает идентификаторы новым вариантам
func withOptionIDs(options []model.Option) []model.Option {
	out := make([]model.Option, len(options))
	for i, o := range options {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		out[i] = o
	}
	return out
}

func (s *QuestionService) newQuestion(testID string, d model.QuestionDraft) *model.Question {
	now := s.now()
	return &model.Question{
		ID:                 uuid.NewString(),
		TestID:             testID,
		Text:               strings.TrimSpace(d.Text),
		Options:            withOptionIDs(d.Options),
		CorrectOptionIndex: d.CorrectOptionIndex,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// ListQuestions возвращает вопросы теста в порядке создания
func (s *QuestionService) ListQuestions(ctx context.Context, actor model.Actor, testID string) ([]model.Question, error) {
	var questions []model.Question
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := loadTest(ctx, tx, actor, testID); err != nil {
			return err
		}
		var err error
		questions, err = tx.ListQuestions(ctx, testID)
		return err
	})
	if err != nil {
		return nil, wrapErr("list questions", err)
	}
	return questions, nil
}

// GetQuestion возвращает вопрос теста
func (s *QuestionService) GetQuestion(ctx context.Context, actor model.Actor, testID, questionID string) (*model.Question, error) {
	var q *model.Question
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := loadTest(ctx, tx, actor, testID); err != nil {
			return err
		}
		var err error
		q, err = tx.GetQuestion(ctx, testID, questionID)
		if errors.Is(err, storage.ErrNotFound) {
			return errs.NotFound("Question")
		}
		return err
	})
	if err != nil {
		return nil, wrapErr("get question", err)
	}
	return q, nil
}

// CreateQuestion сохраняет вопрос и увеличивает question_count в той же транзакции
func (s *QuestionService) CreateQuestion(ctx context.Context, actor model.Actor, testID string, draft model.QuestionDraft) (*model.Question, error) {
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}

	var created *model.Question
	err := storage.Transact(ctx, s.store, s.attempts, func(ctx context.Context, tx storage.Tx) error {
		test, err := loadTest(ctx, tx, actor, testID)
		if err != nil {
			return err
		}

		q := s.newQuestion(testID, draft)
		if err := tx.InsertQuestion(ctx, q); err != nil {
			return err
		}
		test.QuestionCount++
		if err := tx.UpdateTest(ctx, test); err != nil {
			return err
		}
		created = q
		return nil
	})
	if err != nil {
		return nil, wrapErr("create question", err)
	}

	s.log.Debug("question created", "test_id", testID, "question_id", created.ID)
	return created, nil
}

// UpdateQuestion применяет частичное изменение и проверяет вопрос целиком
func (s *QuestionService) UpdateQuestion(ctx context.Context, actor model.Actor, testID, questionID string, patch model.QuestionPatch) (*model.Question, error) {
	var updated *model.Question
	err := storage.Transact(ctx, s.store, s.attempts, func(ctx context.Context, tx storage.Tx) error {
		if _, err := loadTest(ctx, tx, actor, testID); err != nil {
			return err
		}
		q, err := tx.GetQuestion(ctx, testID, questionID)
		if errors.Is(err, storage.ErrNotFound) {
			return errs.NotFound("Question")
		}
		if err != nil {
			return err
		}

		if patch.Text != nil {
			q.Text = strings.TrimSpace(*patch.Text)
		}
		if patch.Options != nil {
			q.Options = withOptionIDs(patch.Options)
		}
		if patch.CorrectOptionIndex != nil {
			q.CorrectOptionIndex = *patch.CorrectOptionIndex
		}
		if err := ValidateDraft(q.Draft()); err != nil {
			return err
		}

		q.UpdatedAt = s.now()
		if err := tx.UpdateQuestion(ctx, q); err != nil {
			return err
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, wrapErr("update question", err)
	}
	return updated, nil
}

// DeleteQuestion удаляет вопрос. Повторное удаление ничего не меняет,
// счетчик уменьшается только если запись действительно была удалена.
func (s *QuestionService) DeleteQuestion(ctx context.Context, actor model.Actor, testID, questionID string) error {
	err := storage.Transact(ctx, s.store, s.attempts, func(ctx context.Context, tx storage.Tx) error {
		test, err := loadTest(ctx, tx, actor, testID)
		if errs.Is(err, errs.KindNotFound) {
			// Тест уже удален вместе с вопросами
			return nil
		}
		if err != nil {
			return err
		}

		deleted, err := tx.DeleteQuestion(ctx, testID, questionID)
		if err != nil || !deleted {
			return err
		}
		test.QuestionCount = max(0, test.QuestionCount-1)
		return tx.UpdateTest(ctx, test)
	})
	if err != nil {
		return wrapErr("delete question", err)
	}
	return nil
}

// BulkCreateQuestions пропускает некорректные черновики и сохраняет остальные
// вместе с увеличением question_count одной транзакцией
func (s *QuestionService) BulkCreateQuestions(ctx context.Context, actor model.Actor, testID string, drafts []model.QuestionDraft) (*BulkCreateResult, error) {
	result := &BulkCreateResult{Created: []model.Question{}, Errors: []ItemError{}}

	var valid []model.QuestionDraft
	for i, d := range drafts {
		if err := ValidateDraft(d); err != nil {
			result.Errors = append(result.Errors, ItemError{Index: i, Reason: err.Error()})
			continue
		}
		valid = append(valid, d)
	}

	err := storage.Transact(ctx, s.store, s.attempts, func(ctx context.Context, tx storage.Tx) error {
		test, err := loadTest(ctx, tx, actor, testID)
		if err != nil {
			return err
		}

		created := make([]model.Question, 0, len(valid))
		for _, d := range valid {
			q := s.newQuestion(testID, d)
			if err := tx.InsertQuestion(ctx, q); err != nil {
				return err
			}
			created = append(created, *q)
		}
		if len(created) == 0 {
			result.Created = created
			return nil
		}

		test.QuestionCount += len(created)
		if err := tx.UpdateTest(ctx, test); err != nil {
			return err
		}
		result.Created = created
		return nil
	})
	if err != nil {
		return nil, wrapErr("bulk create questions", err)
	}

	result.SuccessCount = len(result.Created)
	s.log.Info("questions created in bulk", "test_id", testID, "created", result.SuccessCount, "skipped", len(result.Errors))
	return result, nil
}

// BulkImportQuestions проверяет строки импорта и создает вопросы из корректных
func (s *QuestionService) BulkImportQuestions(ctx context.Context, actor model.Actor, testID string, rows []importer.Row) (*ImportResult, error) {
	candidates, skipped := importer.Validate(rows, s.imports)

	drafts := make([]model.QuestionDraft, len(candidates))
	for i, c := range candidates {
		drafts[i] = c.Draft
	}

	res, err := s.BulkCreateQuestions(ctx, actor, testID, drafts)
	if err != nil {
		return nil, err
	}
	for _, e := range res.Errors {
		skipped = append(skipped, importer.Skipped{Line: candidates[e.Index].Line, Reason: e.Reason})
	}
	if skipped == nil {
		skipped = []importer.Skipped{}
	}

	return &ImportResult{
		TotalRows:    len(rows),
		SuccessCount: res.SuccessCount,
		Skipped:      skipped,
	}, nil
}

// Reconcile пересчитывает question_count по фактическому числу вопросов.
// Доступно администратору и системе.
func (s *QuestionService) Reconcile(ctx context.Context, actor model.Actor, testID string) (*ReconcileResult, error) {
	if !actor.IsAdmin() && actor.Role != model.RoleSystem {
		return nil, errs.Forbidden()
	}

	var res ReconcileResult
	err := storage.Transact(ctx, s.store, s.attempts, func(ctx context.Context, tx storage.Tx) error {
		test, err := loadTest(ctx, tx, actor, testID)
		if err != nil {
			return err
		}
		n, err := tx.CountQuestions(ctx, testID)
		if err != nil {
			return err
		}

		res = ReconcileResult{Before: test.QuestionCount, After: n}
		if n == test.QuestionCount {
			return nil
		}
		test.QuestionCount = n
		return tx.UpdateTest(ctx, test)
	})
	if err != nil {
		return nil, wrapErr("reconcile question count", err)
	}

	if res.Before != res.After {
		s.log.Warn("question count repaired", "test_id", testID, "before", res.Before, "after", res.After)
	}
	return &res, nil
}
