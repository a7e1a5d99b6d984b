package lifecycle

import (
	"testing"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner   = model.Actor{ID: "t-1", Role: model.RoleTeacher}
	other   = model.Actor{ID: "t-2", Role: model.RoleTeacher}
	admin   = model.Actor{ID: "a-1", Role: model.RoleAdmin}
	student = model.Actor{ID: "s-1", Role: model.RoleStudent, GroupIDs: []string{"g-1"}}
	start   = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
)

func newTest(status model.TestStatus, questions int) *model.Test {
	return &model.Test{
		ID:            "test-1",
		GroupID:       "g-1",
		TestMaker:     owner.ID,
		Status:        status,
		QuestionCount: questions,
		DateTime:      start,
		TimeLimit:     30,
	}
}

// TestCheck проверяет таблицу переходов целиком.
func TestCheck(t *testing.T) {
	cases := []struct {
		name   string
		test   *model.Test
		action Action
		actor  model.Actor
		now    time.Time
		policy Policy
		want   model.TestStatus
		kind   errs.Kind
		reason string
	}{
		{name: "publish draft", test: newTest(model.StatusDraft, 1), action: ActionPublish, actor: owner, want: model.StatusPublished},
		{name: "publish by admin", test: newTest(model.StatusDraft, 3), action: ActionPublish, actor: admin, want: model.StatusPublished},
		{name: "publish without questions", test: newTest(model.StatusDraft, 0), action: ActionPublish, actor: owner, kind: errs.KindInvalidTransition, reason: ReasonNoQuestions},
		{name: "publish published", test: newTest(model.StatusPublished, 2), action: ActionPublish, actor: owner, kind: errs.KindInvalidTransition, reason: ReasonPublishNotDraft},
		{name: "publish foreign", test: newTest(model.StatusDraft, 2), action: ActionPublish, actor: other, kind: errs.KindForbidden, reason: "Forbidden"},
		{name: "start on time", test: newTest(model.StatusPublished, 2), action: ActionStart, actor: model.SystemActor, now: start, want: model.StatusOngoing},
		{name: "start too early", test: newTest(model.StatusPublished, 2), action: ActionStart, actor: model.SystemActor, now: start.Add(-time.Minute), kind: errs.KindInvalidTransition, reason: ReasonStartTooEarly},
		{name: "start draft", test: newTest(model.StatusDraft, 2), action: ActionStart, actor: model.SystemActor, now: start, kind: errs.KindInvalidTransition, reason: ReasonStartNotPublish},
		{name: "complete ongoing", test: newTest(model.StatusOngoing, 2), action: ActionComplete, actor: owner, want: model.StatusCompleted},
		{name: "complete published", test: newTest(model.StatusPublished, 2), action: ActionComplete, actor: admin, want: model.StatusCompleted},
		{name: "complete by system after limit", test: newTest(model.StatusOngoing, 2), action: ActionComplete, actor: model.SystemActor, now: start.Add(30 * time.Minute), want: model.StatusCompleted},
		{name: "complete by system too early", test: newTest(model.StatusOngoing, 2), action: ActionComplete, actor: model.SystemActor, now: start.Add(29 * time.Minute), kind: errs.KindInvalidTransition, reason: ReasonCompleteTooEarly},
		{name: "complete by owner before limit", test: newTest(model.StatusOngoing, 2), action: ActionComplete, actor: owner, now: start, want: model.StatusCompleted},
		{name: "complete draft", test: newTest(model.StatusDraft, 2), action: ActionComplete, actor: owner, kind: errs.KindInvalidTransition, reason: ReasonCompleteInactive},
		{name: "revert by admin", test: newTest(model.StatusCompleted, 2), action: ActionRevert, actor: admin, want: model.StatusDraft},
		{name: "revert by owner allowed", test: newTest(model.StatusOngoing, 2), action: ActionRevert, actor: owner, policy: Policy{OwnerCanRevert: true}, want: model.StatusDraft},
		{name: "revert by owner denied", test: newTest(model.StatusOngoing, 2), action: ActionRevert, actor: owner, kind: errs.KindForbidden, reason: "Forbidden"},
		{name: "revert draft", test: newTest(model.StatusDraft, 2), action: ActionRevert, actor: admin, kind: errs.KindInvalidTransition, reason: ReasonRevertDraft},
		{name: "delete draft", test: newTest(model.StatusDraft, 0), action: ActionDelete, actor: owner},
		{name: "delete published", test: newTest(model.StatusPublished, 1), action: ActionDelete, actor: owner, kind: errs.KindNotDraft, reason: ReasonDeleteNotDraft},
		{name: "delete by student", test: newTest(model.StatusDraft, 1), action: ActionDelete, actor: student, kind: errs.KindForbidden, reason: "Forbidden"},
		{name: "unknown action", test: newTest(model.StatusDraft, 1), action: Action("archive"), actor: admin, kind: errs.KindInvalidTransition, reason: ReasonInvalidAction},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Check(tc.test, tc.action, tc.actor, tc.now, tc.policy)
			if tc.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tc.kind, errs.KindOf(err))
				assert.Equal(t, tc.reason, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestInvalidTransitionNamesStatuses проверяет, что ошибка перехода называет исходное и целевое состояние.
func TestInvalidTransitionNamesStatuses(t *testing.T) {
	_, err := Check(newTest(model.StatusOngoing, 1), ActionPublish, owner, start, DefaultPolicy())
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "ongoing", e.From)
	assert.Equal(t, "published", e.To)
}

func TestApply(t *testing.T) {
	test := newTest(model.StatusOngoing, 1)
	Apply(test, model.StatusCompleted, start)
	require.NotNil(t, test.CompletedAt)
	assert.Equal(t, start, *test.CompletedAt)

	Apply(test, model.StatusDraft, start)
	assert.Equal(t, model.StatusDraft, test.Status)
	assert.Nil(t, test.CompletedAt)
}

func TestDue(t *testing.T) {
	published := newTest(model.StatusPublished, 1)
	_, due := Due(published, start.Add(-time.Second))
	assert.False(t, due)

	action, due := Due(published, start)
	assert.True(t, due)
	assert.Equal(t, ActionStart, action)

	action, due = Due(published, start.Add(31*time.Minute))
	assert.True(t, due)
	assert.Equal(t, ActionComplete, action)

	ongoing := newTest(model.StatusOngoing, 1)
	_, due = Due(ongoing, start.Add(10*time.Minute))
	assert.False(t, due)

	_, due = Due(newTest(model.StatusDraft, 1), start.Add(time.Hour))
	assert.False(t, due)
}

func TestCanView(t *testing.T) {
	test := newTest(model.StatusPublished, 1)
	assert.True(t, CanView(owner, test))
	assert.True(t, CanView(admin, test))
	assert.True(t, CanView(student, test))
	assert.False(t, CanView(other, test))
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("revert_to_draft")
	assert.True(t, ok)
	assert.Equal(t, ActionRevert, a)

	_, ok = ParseAction("")
	assert.False(t, ok)
}
