package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/IT-Nick/testpoint/internal/storage"
)

type tx struct {
	view *data
	seen map[string]uint64
	ops  []func(d *data)
}

// touch запоминает версию теста при первом обращении
func (t *tx) touch(testID string) {
	if _, ok := t.seen[testID]; !ok {
		t.seen[testID] = t.view.revs[testID]
	}
}

// apply выполняет изменение над копией и откладывает его для фиксации
func (t *tx) apply(op func(d *data)) {
	op(t.view)
	t.ops = append(t.ops, op)
}

func (t *tx) GetTest(_ context.Context, id string) (*model.Test, error) {
	t.touch(id)
	test, ok := t.view.Tests[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := test.Clone()
	return &c, nil
}

func (t *tx) ListTests(_ context.Context, filter storage.TestFilter) ([]model.Test, error) {
	tests := make([]model.Test, 0, len(t.view.Tests))
	for _, test := range t.view.Tests {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, test.Status) {
			continue
		}
		tests = append(tests, test.Clone())
	}
	slices.SortFunc(tests, func(a, b model.Test) int {
		if c := b.DateTime.Compare(a.DateTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return tests, nil
}

func (t *tx) InsertTest(_ context.Context, test *model.Test) error {
	t.touch(test.ID)
	if _, ok := t.view.Tests[test.ID]; ok {
		return fmt.Errorf("failed to insert test %s: already exists", test.ID)
	}
	test.Version = 1
	stored := test.Clone()
	t.apply(func(d *data) {
		d.Tests[stored.ID] = stored.Clone()
		d.bump(stored.ID)
	})
	return nil
}

func (t *tx) UpdateTest(_ context.Context, test *model.Test) error {
	t.touch(test.ID)
	cur, ok := t.view.Tests[test.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if cur.Version != test.Version {
		return storage.ErrConflict
	}
	test.Version++
	stored := test.Clone()
	t.apply(func(d *data) {
		d.Tests[stored.ID] = stored.Clone()
		d.bump(stored.ID)
	})
	return nil
}

func (t *tx) DeleteTest(_ context.Context, id string, version int64) error {
	t.touch(id)
	cur, ok := t.view.Tests[id]
	if !ok {
		return storage.ErrNotFound
	}
	if cur.Version != version {
		return storage.ErrConflict
	}
	t.apply(func(d *data) {
		delete(d.Tests, id)
		d.bump(id)
	})
	return nil
}

func (t *tx) GetQuestion(_ context.Context, testID, questionID string) (*model.Question, error) {
	t.touch(testID)
	q, ok := t.view.Questions[questionID]
	if !ok || q.TestID != testID {
		return nil, storage.ErrNotFound
	}
	c := q.Clone()
	return &c, nil
}

func (t *tx) ListQuestions(_ context.Context, testID string) ([]model.Question, error) {
	t.touch(testID)
	var questions []model.Question
	for _, q := range t.view.Questions {
		if q.TestID == testID {
			questions = append(questions, q.Clone())
		}
	}
	slices.SortFunc(questions, func(a, b model.Question) int {
		return cmp.Compare(t.view.Order[a.ID], t.view.Order[b.ID])
	})
	return questions, nil
}

func (t *tx) CountQuestions(_ context.Context, testID string) (int, error) {
	t.touch(testID)
	n := 0
	for _, q := range t.view.Questions {
		if q.TestID == testID {
			n++
		}
	}
	return n, nil
}

func (t *tx) InsertQuestion(_ context.Context, question *model.Question) error {
	t.touch(question.TestID)
	if _, ok := t.view.Questions[question.ID]; ok {
		return fmt.Errorf("failed to insert question %s: already exists", question.ID)
	}
	stored := question.Clone()
	t.apply(func(d *data) {
		d.Questions[stored.ID] = stored.Clone()
		d.Order[stored.ID] = d.NextSeq
		d.NextSeq++
		d.bump(stored.TestID)
	})
	return nil
}

func (t *tx) UpdateQuestion(_ context.Context, question *model.Question) error {
	t.touch(question.TestID)
	cur, ok := t.view.Questions[question.ID]
	if !ok || cur.TestID != question.TestID {
		return storage.ErrNotFound
	}
	stored := question.Clone()
	t.apply(func(d *data) {
		d.Questions[stored.ID] = stored.Clone()
		d.bump(stored.TestID)
	})
	return nil
}

func (t *tx) DeleteQuestion(_ context.Context, testID, questionID string) (bool, error) {
	t.touch(testID)
	q, ok := t.view.Questions[questionID]
	if !ok || q.TestID != testID {
		return false, nil
	}
	t.apply(func(d *data) {
		delete(d.Questions, questionID)
		delete(d.Order, questionID)
		d.bump(testID)
	})
	return true, nil
}

func (t *tx) DeleteQuestionsByTest(_ context.Context, testID string) (int, error) {
	t.touch(testID)
	var ids []string
	for id, q := range t.view.Questions {
		if q.TestID == testID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	t.apply(func(d *data) {
		for _, id := range ids {
			delete(d.Questions, id)
			delete(d.Order, id)
		}
		d.bump(testID)
	})
	return len(ids), nil
}

func (t *tx) ListSessions(_ context.Context, testID string) ([]model.TestSession, error) {
	t.touch(testID)
	var sessions []model.TestSession
	for _, s := range t.view.Sessions {
		if s.TestID == testID {
			sessions = append(sessions, s.Clone())
		}
	}
	slices.SortFunc(sessions, func(a, b model.TestSession) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return sessions, nil
}

func (t *tx) DeleteSessions(_ context.Context, testID string, ids []string) (int, error) {
	t.touch(testID)
	var victims []string
	for id, s := range t.view.Sessions {
		if s.TestID != testID {
			continue
		}
		if len(ids) > 0 && !slices.Contains(ids, id) {
			continue
		}
		victims = append(victims, id)
	}
	if len(victims) == 0 {
		return 0, nil
	}
	t.apply(func(d *data) {
		for _, id := range victims {
			delete(d.Sessions, id)
		}
		d.bump(testID)
	})
	return len(victims), nil
}

func (t *tx) GetGroup(_ context.Context, id string) (*model.Group, error) {
	g, ok := t.view.Groups[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &g, nil
}
