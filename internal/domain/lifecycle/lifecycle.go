// Package lifecycle реализует машину состояний теста и проверку прав на переходы.
package lifecycle

import (
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/model"
)

// Action переход, запрошенный для теста
type Action string

const (
	ActionPublish  Action = "publish"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionRevert   Action = "revert_to_draft"
	ActionDelete   Action = "delete"
)

// Причины отказа, возвращаемые клиенту без изменений
const (
	ReasonPublishNotDraft  = "Only draft tests can be published."
	ReasonNoQuestions      = "Test must have at least one question to be published."
	ReasonDeleteNotDraft   = "Only draft tests can be deleted."
	ReasonRevertDraft      = "Only published, ongoing or completed tests can be reverted to draft."
	ReasonCompleteInactive = "Only published or ongoing tests can be ended."
	ReasonStartNotPublish  = "Only published tests can be started."
	ReasonStartTooEarly    = "Scheduled start time has not been reached."
	ReasonCompleteTooEarly = "Time limit has not elapsed yet."
	ReasonInvalidAction    = "Invalid action specified."
)

// ParseAction разбирает имя действия
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionPublish, ActionStart, ActionComplete, ActionRevert, ActionDelete:
		return a, true
	}
	return "", false
}

// Policy настраиваемые правила переходов
type Policy struct {
	// OwnerCanRevert разрешает владельцу возвращать тест в черновик
	OwnerCanRevert bool
	// CascadeDelete удаляет вопросы и сессии вместе с тестом
	CascadeDelete bool
}

// DefaultPolicy правила по умолчанию
func DefaultPolicy() Policy {
	return Policy{OwnerCanRevert: true, CascadeDelete: true}
}

// Authorize проверяет, что актор владеет тестом или является администратором
func Authorize(actor model.Actor, test *model.Test) error {
	if actor.IsAdmin() || actor.Role == model.RoleSystem {
		return nil
	}
	if actor.ID != "" && actor.ID == test.TestMaker {
		return nil
	}
	return errs.Forbidden()
}

// CanView сообщает, видит ли актор тест в списках
func CanView(actor model.Actor, test *model.Test) bool {
	if actor.IsAdmin() || actor.Role == model.RoleSystem {
		return true
	}
	return test.TestMaker == actor.ID || actor.InGroup(test.GroupID)
}

// CanCreate проверяет, может ли актор создавать тесты
func CanCreate(actor model.Actor) error {
	switch actor.Role {
	case model.RoleAdmin, model.RoleTeacher:
		return nil
	}
	return errs.Forbidden()
}

// CanEdit проверяет, что детали теста можно менять
func CanEdit(test *model.Test) error {
	if test.Status != model.StatusDraft {
		return errs.EditNotAllowed(string(test.Status))
	}
	return nil
}

// Check проверяет переход и возвращает целевой статус.
// Для ActionDelete целевой статус пустой: тест перестает существовать.
func Check(test *model.Test, action Action, actor model.Actor, now time.Time, policy Policy) (model.TestStatus, error) {
	from := string(test.Status)

	switch action {
	case ActionPublish:
		if err := Authorize(actor, test); err != nil {
			return "", err
		}
		if test.Status != model.StatusDraft {
			return "", errs.Transition(from, string(model.StatusPublished), ReasonPublishNotDraft)
		}
		if test.QuestionCount <= 0 {
			return "", errs.Transition(from, string(model.StatusPublished), ReasonNoQuestions)
		}
		return model.StatusPublished, nil

	case ActionStart:
		if actor.Role != model.RoleSystem {
			if err := Authorize(actor, test); err != nil {
				return "", err
			}
		}
		if test.Status != model.StatusPublished {
			return "", errs.Transition(from, string(model.StatusOngoing), ReasonStartNotPublish)
		}
		if now.Before(test.DateTime) {
			return "", errs.Transition(from, string(model.StatusOngoing), ReasonStartTooEarly)
		}
		return model.StatusOngoing, nil

	case ActionComplete:
		if err := Authorize(actor, test); err != nil {
			return "", err
		}
		if test.Status != model.StatusPublished && test.Status != model.StatusOngoing {
			return "", errs.Transition(from, string(model.StatusCompleted), ReasonCompleteInactive)
		}
		// Система завершает тест только по истечении лимита времени
		if actor.Role == model.RoleSystem && now.Before(test.EndsAt()) {
			return "", errs.Transition(from, string(model.StatusCompleted), ReasonCompleteTooEarly)
		}
		return model.StatusCompleted, nil

	case ActionRevert:
		if !actor.IsAdmin() {
			if !policy.OwnerCanRevert || actor.ID == "" || actor.ID != test.TestMaker {
				return "", errs.Forbidden()
			}
		}
		if test.Status == model.StatusDraft {
			return "", errs.Transition(from, string(model.StatusDraft), ReasonRevertDraft)
		}
		return model.StatusDraft, nil

	case ActionDelete:
		if err := Authorize(actor, test); err != nil {
			return "", err
		}
		if test.Status != model.StatusDraft {
			return "", errs.NotDraft(from, ReasonDeleteNotDraft)
		}
		return "", nil
	}

	return "", errs.Transition(from, string(action), ReasonInvalidAction)
}

// Apply переводит тест в целевой статус и выставляет сопутствующие поля
func Apply(test *model.Test, to model.TestStatus, now time.Time) {
	test.Status = to
	switch to {
	case model.StatusCompleted:
		at := now
		test.CompletedAt = &at
	case model.StatusDraft:
		test.CompletedAt = nil
	}
}

// Due возвращает действие, которое расписание требует выполнить над тестом к моменту now
func Due(test *model.Test, now time.Time) (Action, bool) {
	switch test.Status {
	case model.StatusPublished:
		if !now.Before(test.EndsAt()) {
			return ActionComplete, true
		}
		if !now.Before(test.DateTime) {
			return ActionStart, true
		}
	case model.StatusOngoing:
		if !now.Before(test.EndsAt()) {
			return ActionComplete, true
		}
	}
	return "", false
}
