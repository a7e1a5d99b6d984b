// Package storagetest общий набор проверок для реализаций storage.Store.
package storagetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/IT-Nick/testpoint/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Backend проверяемое хранилище
type Backend = storage.Backend

var base = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

// Run прогоняет проверки на хранилище, которое возвращает open
func Run(t *testing.T, open func(t *testing.T) Backend) {
	t.Run("TestRoundTrip", func(t *testing.T) { testRoundTrip(t, open(t)) })
	t.Run("OptimisticVersion", func(t *testing.T) { testOptimisticVersion(t, open(t)) })
	t.Run("ListTests", func(t *testing.T) { testListTests(t, open(t)) })
	t.Run("Questions", func(t *testing.T) { testQuestions(t, open(t)) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, open(t)) })
	t.Run("Groups", func(t *testing.T) { testGroups(t, open(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, open(t)) })
}

func inTx(t *testing.T, s storage.Store, fn storage.TxFunc) {
	t.Helper()
	require.NoError(t, s.RunInTx(context.Background(), fn))
}

func sampleTest(id string, at time.Time, status model.TestStatus) *model.Test {
	return &model.Test{
		ID:        id,
		Name:      "Quiz " + id,
		GroupID:   "g-1",
		TimeLimit: 45,
		DateTime:  at,
		TestMaker: "teacher-1",
		Status:    status,
		CreatedAt: base,
	}
}

func testRoundTrip(t *testing.T, s storage.Store) {
	in := sampleTest("t-1", base, model.StatusDraft)
	in.AntiCheatConfig = json.RawMessage(`{"fullscreen":true}`)

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertTest(ctx, in)
	})
	assert.Equal(t, int64(1), in.Version)

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.GetTest(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, in.Name, got.Name)
		assert.Equal(t, in.GroupID, got.GroupID)
		assert.Equal(t, 45, got.TimeLimit)
		assert.True(t, in.DateTime.Equal(got.DateTime))
		assert.Equal(t, model.StatusDraft, got.Status)
		assert.JSONEq(t, `{"fullscreen":true}`, string(got.AntiCheatConfig))
		assert.Nil(t, got.CompletedAt)

		_, err = tx.GetTest(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	})
}

func testOptimisticVersion(t *testing.T, s storage.Store) {
	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertTest(ctx, sampleTest("t-1", base, model.StatusDraft))
	})

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.GetTest(ctx, "t-1")
		require.NoError(t, err)
		got.Status = model.StatusCompleted
		done := base.Add(time.Hour)
		got.CompletedAt = &done
		require.NoError(t, tx.UpdateTest(ctx, got))
		assert.Equal(t, int64(2), got.Version)
		return nil
	})

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		stale := sampleTest("t-1", base, model.StatusDraft)
		stale.Version = 1
		return tx.UpdateTest(ctx, stale)
	})
	assert.ErrorIs(t, err, storage.ErrConflict)

	err = s.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.UpdateTest(ctx, sampleTest("missing", base, model.StatusDraft))
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.GetTest(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, got.Status)
		require.NotNil(t, got.CompletedAt)
		assert.True(t, base.Add(time.Hour).Equal(*got.CompletedAt))
		return nil
	})

	err = s.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.DeleteTest(ctx, "t-1", 1)
	})
	assert.ErrorIs(t, err, storage.ErrConflict)

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		return tx.DeleteTest(ctx, "t-1", 2)
	})

	err = s.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.DeleteTest(ctx, "t-1", 2)
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testListTests(t *testing.T, s storage.Store) {
	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		require.NoError(t, tx.InsertTest(ctx, sampleTest("old", base, model.StatusPublished)))
		require.NoError(t, tx.InsertTest(ctx, sampleTest("new", base.Add(24*time.Hour), model.StatusDraft)))
		require.NoError(t, tx.InsertTest(ctx, sampleTest("mid", base.Add(time.Hour), model.StatusOngoing)))
		return nil
	})

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		all, err := tx.ListTests(ctx, storage.TestFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"new", "mid", "old"}, []string{all[0].ID, all[1].ID, all[2].ID})

		active, err := tx.ListTests(ctx, storage.TestFilter{Statuses: []model.TestStatus{model.StatusPublished, model.StatusOngoing}})
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, "mid", active[0].ID)
		assert.Equal(t, "old", active[1].ID)
		return nil
	})
}

func testQuestions(t *testing.T, s storage.Store) {
	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		require.NoError(t, tx.InsertTest(ctx, sampleTest("t-1", base, model.StatusDraft)))
		for i, id := range []string{"q-1", "q-2", "q-3"} {
			require.NoError(t, tx.InsertQuestion(ctx, &model.Question{
				ID:                 id,
				TestID:             "t-1",
				Text:               "Question " + id,
				Options:            []model.Option{{ID: id + "-a", Text: "A"}, {ID: id + "-b", Text: "B"}},
				CorrectOptionIndex: i % 2,
				CreatedAt:          base,
				UpdatedAt:          base,
			}))
		}
		return nil
	})

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		list, err := tx.ListQuestions(ctx, "t-1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "q-1", list[0].ID)
		assert.Equal(t, "q-3", list[2].ID)
		assert.Equal(t, []model.Option{{ID: "q-2-a", Text: "A"}, {ID: "q-2-b", Text: "B"}}, list[1].Options)

		q, err := tx.GetQuestion(ctx, "t-1", "q-2")
		require.NoError(t, err)
		q.Text = "Edited"
		q.CorrectOptionIndex = 0
		require.NoError(t, tx.UpdateQuestion(ctx, q))

		_, err = tx.GetQuestion(ctx, "other-test", "q-2")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		err = tx.UpdateQuestion(ctx, &model.Question{ID: "nope", TestID: "t-1"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	})

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		q, err := tx.GetQuestion(ctx, "t-1", "q-2")
		require.NoError(t, err)
		assert.Equal(t, "Edited", q.Text)

		deleted, err := tx.DeleteQuestion(ctx, "t-1", "q-1")
		require.NoError(t, err)
		assert.True(t, deleted)
		deleted, err = tx.DeleteQuestion(ctx, "t-1", "q-1")
		require.NoError(t, err)
		assert.False(t, deleted)

		n, err := tx.CountQuestions(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		removed, err := tx.DeleteQuestionsByTest(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, 2, removed)
		return nil
	})
}

func testSessions(t *testing.T, s Backend) {
	ctx := context.Background()
	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertTest(ctx, sampleTest("t-1", base, model.StatusCompleted))
	})

	score := 80.0
	end := base.Add(30 * time.Minute)
	require.NoError(t, s.AddSession(ctx, model.TestSession{
		ID: "s-1", TestID: "t-1", StudentID: "st-1", Status: "completed", FinalScore: &score,
		Answers:   map[string]model.SessionAnswer{"q-1": {SelectedAnswerIndex: 1, IsCorrect: true}},
		StartTime: base, EndTime: &end,
	}))
	require.NoError(t, s.AddSession(ctx, model.TestSession{ID: "s-2", TestID: "t-1", StudentID: "st-2", Status: "in_progress", StartTime: base.Add(time.Minute)}))
	require.NoError(t, s.AddSession(ctx, model.TestSession{ID: "s-3", TestID: "t-1", StudentID: "st-3", Status: "in_progress", StartTime: base.Add(2 * time.Minute)}))

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		sessions, err := tx.ListSessions(ctx, "t-1")
		require.NoError(t, err)
		require.Len(t, sessions, 3)
		assert.Equal(t, "s-1", sessions[0].ID)
		require.NotNil(t, sessions[0].FinalScore)
		assert.Equal(t, 80.0, *sessions[0].FinalScore)
		assert.True(t, sessions[0].Answers["q-1"].IsCorrect)
		assert.Nil(t, sessions[1].EndTime)

		n, err := tx.DeleteSessions(ctx, "t-1", []string{"s-2", "unknown"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return nil
	})

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		n, err := tx.DeleteSessions(ctx, "t-1", nil)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		sessions, err := tx.ListSessions(ctx, "t-1")
		require.NoError(t, err)
		assert.Empty(t, sessions)
		return nil
	})
}

func testGroups(t *testing.T, s Backend) {
	require.NoError(t, s.AddGroup(context.Background(), model.Group{ID: "g-1", Name: "Group A"}))

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		g, err := tx.GetGroup(ctx, "g-1")
		require.NoError(t, err)
		assert.Equal(t, "Group A", g.Name)

		_, err = tx.GetGroup(ctx, "g-2")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	})

	require.NoError(t, s.AddGroup(context.Background(), model.Group{ID: "g-1", Name: "Group A1"}))
	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		g, err := tx.GetGroup(ctx, "g-1")
		require.NoError(t, err)
		assert.Equal(t, "Group A1", g.Name)
		return nil
	})
}

func testRollback(t *testing.T, s storage.Store) {
	boom := errors.New("boom")
	err := s.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertTest(ctx, sampleTest("t-1", base, model.StatusDraft)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.GetTest(ctx, "t-1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	})
}
