package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/lifecycle"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/IT-Nick/testpoint/internal/infra/notify"
	"github.com/IT-Nick/testpoint/internal/storage"
	"github.com/google/uuid"
)

// Options настройки TestService
type Options struct {
	Policy          lifecycle.Policy
	MaxAttempts     int
	BulkConcurrency int
	Notifier        notify.Notifier
	Logger          *slog.Logger
	Now             func() time.Time
}

// TestService управляет тестами и их жизненным циклом
type TestService struct {
	store       storage.Store
	policy      lifecycle.Policy
	attempts    int
	concurrency int
	notifier    notify.Notifier
	log         *slog.Logger
	now         func() time.Time
}

// NewTestService создает новый экземпляр TestService
func NewTestService(store storage.Store, opts Options) *TestService {
	s := &TestService{
		store:       store,
		policy:      opts.Policy,
		attempts:    opts.MaxAttempts,
		concurrency: opts.BulkConcurrency,
		notifier:    opts.Notifier,
		log:         opts.Logger,
		now:         opts.Now,
	}
	if s.concurrency <= 0 {
		s.concurrency = 4
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// wrapErr оставляет доменные ошибки как есть, остальные переводит в NotFound или StorageError
func wrapErr(op string, err error) error {
	var de *errs.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, storage.ErrNotFound):
		return errs.NotFound("Test")
	default:
		return errs.Storage(op, err)
	}
}

func validateNewTest(in model.NewTest) error {
	fe := errs.FieldErrors{}
	if strings.TrimSpace(in.Name) == "" {
		fe.Add("name", "must not be empty")
	}
	if strings.TrimSpace(in.GroupID) == "" {
		fe.Add("group_id", "must not be empty")
	}
	if in.TimeLimit < 1 {
		fe.Add("time_limit", "must be at least 1 minute")
	}
	if in.DateTime.IsZero() {
		fe.Add("date_time", "must be set")
	}
	if len(in.AntiCheatConfig) > 0 && !json.Valid(in.AntiCheatConfig) {
		fe.Add("anti_cheat_config", "must be valid JSON")
	}
	return fe.Err()
}

func validatePatch(p model.TestPatch) error {
	fe := errs.FieldErrors{}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		fe.Add("name", "must not be empty")
	}
	if p.GroupID != nil && strings.TrimSpace(*p.GroupID) == "" {
		fe.Add("group_id", "must not be empty")
	}
	if p.TimeLimit != nil && *p.TimeLimit < 1 {
		fe.Add("time_limit", "must be at least 1 minute")
	}
	if p.DateTime != nil && p.DateTime.IsZero() {
		fe.Add("date_time", "must be set")
	}
	if len(p.AntiCheatConfig) > 0 && !json.Valid(p.AntiCheatConfig) {
		fe.Add("anti_cheat_config", "must be valid JSON")
	}
	return fe.Err()
}

// checkGroup проверяет, что группа существует
func checkGroup(ctx context.Context, tx storage.Tx, groupID string) error {
	_, err := tx.GetGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return errs.Validation("group_id", "unknown group")
	}
	return err
}

// CreateTest создает тест в статусе черновика с нулевым числом вопросов
func (s *TestService) CreateTest(ctx context.Context, actor model.Actor, in model.NewTest) (*model.Test, error) {
	if err := lifecycle.CanCreate(actor); err != nil {
		return nil, err
	}
	if err := validateNewTest(in); err != nil {
		return nil, err
	}

	var test *model.Test
	err := storage.Transact(ctx, s.store, s.attempts, func(ctx context.Context, tx storage.Tx) error {
		if err := checkGroup(ctx, tx, in.GroupID); err != nil {
			return err
		}
		test = &model.Test{
			ID:              uuid.NewString(),
			Name:            strings.TrimSpace(in.Name),
			GroupID:         in.GroupID,
			TimeLimit:       in.TimeLimit,
			QuestionCount:   0,
			DateTime:        in.DateTime,
			TestMaker:       actor.ID,
			Status:          model.StatusDraft,
			AntiCheatConfig: in.AntiCheatConfig,
			CreatedAt:       s.now(),
		}
		return tx.InsertTest(ctx, test)
	})
	if err != nil {
		return nil, wrapErr("create test", err)
	}

	s.log.Info("test created", "test_id", test.ID, "actor", actor.ID)
	return test, nil
}

// GetTest возвращает тест, видимый актору
func (s *TestService) GetTest(ctx context.Context, actor model.Actor, id string) (*model.Test, error) {
	var test *model.Test
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		test, err = tx.GetTest(ctx, id)
		return err
	})
	if err != nil {
		return nil, wrapErr("get test", err)
	}
	if !visible(actor, test) {
		return nil, errs.Forbidden()
	}
	return test, nil
}

// visible студенты не видят черновики
func visible(actor model.Actor, test *model.Test) bool {
	if !lifecycle.CanView(actor, test) {
		return false
	}
	return actor.Role != model.RoleStudent || test.Status != model.StatusDraft
}

// ListTests возвращает тесты, видимые актору, от новых к старым
func (s *TestService) ListTests(ctx context.Context, actor model.Actor, statuses ...model.TestStatus) ([]model.Test, error) {
	var tests []model.Test
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		tests, err = tx.ListTests(ctx, storage.TestFilter{Statuses: statuses})
		return err
	})
	if err != nil {
		return nil, wrapErr("list tests", err)
	}

	return slices.DeleteFunc(tests, func(t model.Test) bool {
		return !visible(actor, &t)
	}), nil
}

// UpdateTestDetails меняет детали черновика. Число вопросов этим методом не меняется.
func (s *TestService) UpdateTestDetails(ctx context.Context, actor model.Actor, id string, patch model.TestPatch) (*model.Test, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var test *model.Test
	err := storage.Transact(ctx, s.store, s.attempts, func(ctx context.Context, tx storage.Tx) error {
		t, err := tx.GetTest(ctx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.Authorize(actor, t); err != nil {
			return err
		}
		if err := lifecycle.CanEdit(t); err != nil {
			return err
		}

		if patch.Name != nil {
			t.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.GroupID != nil && *patch.GroupID != t.GroupID {
			if err := checkGroup(ctx, tx, *patch.GroupID); err != nil {
				return err
			}
			t.GroupID = *patch.GroupID
		}
		if patch.TimeLimit != nil {
			t.TimeLimit = *patch.TimeLimit
		}
		if patch.DateTime != nil {
			t.DateTime = *patch.DateTime
		}
		if patch.AntiCheatConfig != nil {
			t.AntiCheatConfig = patch.AntiCheatConfig
		}

		if err := tx.UpdateTest(ctx, t); err != nil {
			return err
		}
		test = t
		return nil
	})
	if err != nil {
		return nil, wrapErr("update test", err)
	}
	return test, nil
}

// DeleteTest удаляет черновик. При каскадной политике вместе с ним удаляются вопросы и сессии.
func (s *TestService) DeleteTest(ctx context.Context, actor model.Actor, id string) error {
	var questions int
	err := storage.Transact(ctx, s.store, s.attempts, func(ctx context.Context, tx storage.Tx) error {
		t, err := tx.GetTest(ctx, id)
		if err != nil {
			return err
		}
		if _, err := lifecycle.Check(t, lifecycle.ActionDelete, actor, s.now(), s.policy); err != nil {
			return err
		}

		questions = 0
		if s.policy.CascadeDelete {
			if questions, err = tx.DeleteQuestionsByTest(ctx, id); err != nil {
				return err
			}
			if _, err := tx.DeleteSessions(ctx, id, nil); err != nil {
				return err
			}
		}
		return tx.DeleteTest(ctx, id, t.Version)
	})
	if err != nil {
		return wrapErr("delete test", err)
	}

	s.log.Info("test deleted", "test_id", id, "actor", actor.ID, "questions_removed", questions)
	return nil
}

// Transition выполняет переход теста по действию
func (s *TestService) Transition(ctx context.Context, actor model.Actor, id string, action lifecycle.Action) (*model.Test, error) {
	if action == lifecycle.ActionDelete {
		return nil, s.DeleteTest(ctx, actor, id)
	}
	return s.transition(ctx, actor, id, action, s.now())
}

// Publish публикует черновик
func (s *TestService) Publish(ctx context.Context, actor model.Actor, id string) (*model.Test, error) {
	return s.Transition(ctx, actor, id, lifecycle.ActionPublish)
}

// Complete досрочно завершает опубликованный или идущий тест
func (s *TestService) Complete(ctx context.Context, actor model.Actor, id string) (*model.Test, error) {
	return s.Transition(ctx, actor, id, lifecycle.ActionComplete)
}

// RevertToDraft возвращает тест в черновик и удаляет все его сессии
func (s *TestService) RevertToDraft(ctx context.Context, actor model.Actor, id string) (*model.Test, error) {
	return s.Transition(ctx, actor, id, lifecycle.ActionRevert)
}

func (s *TestService) transition(ctx context.Context, actor model.Actor, id string, action lifecycle.Action, now time.Time) (*model.Test, error) {
	var (
		test    *model.Test
		from    model.TestStatus
		removed int
	)
	err := storage.Transact(ctx, s.store, s.attempts, func(ctx context.Context, tx storage.Tx) error {
		t, err := tx.GetTest(ctx, id)
		if err != nil {
			return err
		}
		to, err := lifecycle.Check(t, action, actor, now, s.policy)
		if err != nil {
			return err
		}

		from = t.Status
		removed = 0
		if to == model.StatusDraft {
			if removed, err = tx.DeleteSessions(ctx, id, nil); err != nil {
				return err
			}
		}

		lifecycle.Apply(t, to, now)
		if err := tx.UpdateTest(ctx, t); err != nil {
			return err
		}
		test = t
		return nil
	})
	if err != nil {
		return nil, wrapErr(string(action)+" test", err)
	}

	s.log.Info("test transitioned", "test_id", id, "from", from, "to", test.Status, "actor", actor.ID, "sessions_removed", removed)
	s.notifier.Notify(ctx, notify.Event{
		Test:            *test,
		From:            from,
		To:              test.Status,
		Actor:           actor,
		At:              now,
		SessionsRemoved: removed,
	})
	return test, nil
}

// ListResults возвращает сессии теста владельцу или администратору
func (s *TestService) ListResults(ctx context.Context, actor model.Actor, testID string) ([]model.TestSession, error) {
	var sessions []model.TestSession
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		t, err := tx.GetTest(ctx, testID)
		if err != nil {
			return err
		}
		if err := lifecycle.Authorize(actor, t); err != nil {
			return err
		}
		sessions, err = tx.ListSessions(ctx, testID)
		return err
	})
	if err != nil {
		return nil, wrapErr("list results", err)
	}
	return sessions, nil
}

// ResultsReport собирает тест и его сессии для отчета
func (s *TestService) ResultsReport(ctx context.Context, actor model.Actor, testID string) (*model.Test, []model.TestSession, error) {
	var (
		test     *model.Test
		sessions []model.TestSession
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		test, err = tx.GetTest(ctx, testID)
		if err != nil {
			return err
		}
		if err := lifecycle.Authorize(actor, test); err != nil {
			return err
		}
		sessions, err = tx.ListSessions(ctx, testID)
		return err
	})
	if err != nil {
		return nil, nil, wrapErr("results report", err)
	}
	return test, sessions, nil
}

// ResetSessions удаляет выбранные сессии, позволяя студентам пройти тест заново
func (s *TestService) ResetSessions(ctx context.Context, actor model.Actor, testID string, sessionIDs []string) (int, error) {
	if len(sessionIDs) == 0 {
		return 0, errs.Validation("session_ids", "must contain at least one id")
	}

	var removed int
	err := storage.Transact(ctx, s.store, s.attempts, func(ctx context.Context, tx storage.Tx) error {
		t, err := tx.GetTest(ctx, testID)
		if err != nil {
			return err
		}
		if err := lifecycle.Authorize(actor, t); err != nil {
			return err
		}
		removed, err = tx.DeleteSessions(ctx, testID, sessionIDs)
		return err
	})
	if err != nil {
		return 0, wrapErr("reset sessions", err)
	}

	s.log.Info("sessions reset", "test_id", testID, "actor", actor.ID, "removed", removed)
	return removed, nil
}

// AdvanceSchedule переводит опубликованные тесты в идущие и завершает тесты с истекшим лимитом
func (s *TestService) AdvanceSchedule(ctx context.Context, now time.Time) (int, error) {
	tests, err := s.ListTests(ctx, model.SystemActor, model.StatusPublished, model.StatusOngoing)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, t := range tests {
		action, due := lifecycle.Due(&t, now)
		if !due {
			continue
		}
		if _, err := s.transition(ctx, model.SystemActor, t.ID, action, now); err != nil {
			// Тест мог измениться между выборкой и переходом
			s.log.Warn("scheduled transition skipped", "test_id", t.ID, "action", action, "error", err)
			continue
		}
		moved++
	}
	return moved, nil
}
