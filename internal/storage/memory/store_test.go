package memory_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/IT-Nick/testpoint/internal/storage"
	"github.com/IT-Nick/testpoint/internal/storage/memory"
	"github.com/IT-Nick/testpoint/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTest(t *testing.T, s storage.Store, id string) {
	t.Helper()
	err := s.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertTest(ctx, &model.Test{ID: id, Name: "Quiz", GroupID: "g-1", TimeLimit: 10, Status: model.StatusDraft})
	})
	require.NoError(t, err)
}

func TestRunInTxRollbackOnError(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertTest(ctx, &model.Test{ID: "t-1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.GetTest(ctx, "t-1")
		return err
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReadYourWrites(t *testing.T) {
	s := memory.New()
	seedTest(t, s, "t-1")

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		require.NoError(t, tx.InsertQuestion(ctx, &model.Question{ID: "q-1", TestID: "t-1", Text: "A"}))
		require.NoError(t, tx.InsertQuestion(ctx, &model.Question{ID: "q-2", TestID: "t-1", Text: "B"}))

		n, err := tx.CountQuestions(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		list, err := tx.ListQuestions(ctx, "t-1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "q-1", list[0].ID)
		assert.Equal(t, "q-2", list[1].ID)
		return nil
	})
	require.NoError(t, err)
}

// TestConflictingCommit две транзакции читают одну версию теста, вторая фиксация получает конфликт.
func TestConflictingCommit(t *testing.T) {
	s := memory.New()
	seedTest(t, s, "t-1")
	ctx := context.Background()

	inside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			test, err := tx.GetTest(ctx, "t-1")
			if err != nil {
				return err
			}
			close(inside)
			<-release
			test.QuestionCount++
			return tx.UpdateTest(ctx, test)
		})
	}()

	<-inside
	err := s.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		test, err := tx.GetTest(ctx, "t-1")
		if err != nil {
			return err
		}
		test.QuestionCount++
		return tx.UpdateTest(ctx, test)
	})
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-done, storage.ErrConflict)

	err = s.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		test, err := tx.GetTest(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, 1, test.QuestionCount)
		assert.Equal(t, int64(2), test.Version)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateTestStaleVersion(t *testing.T) {
	s := memory.New()
	seedTest(t, s, "t-1")

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.UpdateTest(ctx, &model.Test{ID: "t-1", Version: 7})
	})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestDeleteQuestionIdempotent(t *testing.T) {
	s := memory.New()
	seedTest(t, s, "t-1")
	ctx := context.Background()

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertQuestion(ctx, &model.Question{ID: "q-1", TestID: "t-1"})
	}))

	for _, want := range []bool{true, false} {
		require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			deleted, err := tx.DeleteQuestion(ctx, "t-1", "q-1")
			assert.Equal(t, want, deleted)
			return err
		}))
	}
}

func TestSessions(t *testing.T) {
	s := memory.New()
	seedTest(t, s, "t-1")
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.AddSession(ctx, model.TestSession{ID: "s-1", TestID: "t-1", StartTime: now}))
	require.NoError(t, s.AddSession(ctx, model.TestSession{ID: "s-2", TestID: "t-1", StartTime: now.Add(time.Minute)}))
	require.ErrorIs(t, s.AddSession(ctx, model.TestSession{ID: "s-3", TestID: "missing"}), storage.ErrNotFound)

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		n, err := tx.DeleteSessions(ctx, "t-1", []string{"s-2"})
		assert.Equal(t, 1, n)
		return err
	}))

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		sessions, err := tx.ListSessions(ctx, "t-1")
		require.Len(t, sessions, 1)
		assert.Equal(t, "s-1", sessions[0].ID)
		return err
	}))
}

func TestJSONPersistence(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "store.json")

	s, err := memory.NewJSON(filename)
	require.NoError(t, err)
	require.NoError(t, s.AddGroup(context.Background(), model.Group{ID: "g-1", Name: "10A"}))
	seedTest(t, s, "t-1")

	reopened, err := memory.NewJSON(filename)
	require.NoError(t, err)

	err = reopened.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		test, err := tx.GetTest(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, "Quiz", test.Name)
		assert.Equal(t, int64(1), test.Version)

		g, err := tx.GetGroup(ctx, "g-1")
		require.NoError(t, err)
		assert.Equal(t, "10A", g.Name)
		return nil
	})
	require.NoError(t, err)
}

func TestJSONPersistenceKeepsVersionAcrossUpdates(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	s, err := memory.NewJSON(filename)
	require.NoError(t, err)
	seedTest(t, s, "t-1")

	reopened, err := memory.NewJSON(filename)
	require.NoError(t, err)
	require.NoError(t, reopened.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		test, err := tx.GetTest(ctx, "t-1")
		require.NoError(t, err)
		test.Name = "Renamed"
		return tx.UpdateTest(ctx, test)
	}))

	again, err := memory.NewJSON(filename)
	require.NoError(t, err)
	err = again.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		test, err := tx.GetTest(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", test.Name)
		assert.Equal(t, int64(2), test.Version)

		stale := *test
		stale.Version = 1
		assert.ErrorIs(t, tx.UpdateTest(ctx, &stale), storage.ErrConflict)
		return nil
	})
	require.NoError(t, err)
}

func TestContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagetest.Backend {
		return memory.New()
	})
}
