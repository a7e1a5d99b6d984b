package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/IT-Nick/testpoint/internal/storage"
	"github.com/jmoiron/sqlx"
)

type sqliteTx struct {
	tx *sqlx.Tx
}

const selectTest = `SELECT id, name, group_id, time_limit, question_count, date_time, test_maker, status,
	anti_cheat_config, created_at, completed_at, version FROM tests`

func (t *sqliteTx) GetTest(ctx context.Context, id string) (*model.Test, error) {
	var row testRow
	err := t.tx.GetContext(ctx, &row, selectTest+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return row.toModel()
}

func (t *sqliteTx) ListTests(ctx context.Context, filter storage.TestFilter) ([]model.Test, error) {
	query := selectTest
	var args []any
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		in, inArgs, err := sqlx.In(" WHERE status IN (?)", statuses)
		if err != nil {
			return nil, fmt.Errorf("failed to build query: %w", err)
		}
		query += in
		args = inArgs
	}
	query += " ORDER BY date_time DESC, id"

	var rows []testRow
	if err := t.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query tests: %w", err)
	}

	tests := make([]model.Test, 0, len(rows))
	for _, row := range rows {
		test, err := row.toModel()
		if err != nil {
			return nil, err
		}
		tests = append(tests, *test)
	}
	return tests, nil
}

func (t *sqliteTx) InsertTest(ctx context.Context, test *model.Test) error {
	test.Version = 1
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO tests (id, name, group_id, time_limit, question_count, date_time, test_maker, status,
			anti_cheat_config, created_at, completed_at, version)
		VALUES (:id, :name, :group_id, :time_limit, :question_count, :date_time, :test_maker, :status,
			:anti_cheat_config, :created_at, :completed_at, :version)`, newTestRow(test))
	if err != nil {
		return fmt.Errorf("failed to insert test: %w", err)
	}
	return nil
}

func (t *sqliteTx) UpdateTest(ctx context.Context, test *model.Test) error {
	res, err := t.tx.NamedExecContext(ctx, `
		UPDATE tests SET name = :name, group_id = :group_id, time_limit = :time_limit,
			question_count = :question_count, date_time = :date_time, status = :status,
			anti_cheat_config = :anti_cheat_config, completed_at = :completed_at, version = version + 1
		WHERE id = :id AND version = :version`, newTestRow(test))
	if err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}
	if n == 0 {
		return t.missingOrConflict(ctx, test.ID)
	}
	test.Version++
	return nil
}

func (t *sqliteTx) DeleteTest(ctx context.Context, id string, version int64) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM tests WHERE id = ? AND version = ?", id, version)
	if err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return t.missingOrConflict(ctx, id)
	}
	return nil
}

// missingOrConflict различает удаленный тест и тест с другой версией
func (t *sqliteTx) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := t.tx.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM tests WHERE id = ?)", id); err != nil {
		return fmt.Errorf("failed to check test: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

const selectQuestion = `SELECT id, test_id, text, options, correct_option_index, created_at, updated_at FROM questions`

func (t *sqliteTx) GetQuestion(ctx context.Context, testID, questionID string) (*model.Question, error) {
	var row questionRow
	err := t.tx.GetContext(ctx, &row, selectQuestion+" WHERE id = ? AND test_id = ?", questionID, testID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return row.toModel()
}

func (t *sqliteTx) ListQuestions(ctx context.Context, testID string) ([]model.Question, error) {
	var rows []questionRow
	if err := t.tx.SelectContext(ctx, &rows, selectQuestion+" WHERE test_id = ? ORDER BY seq", testID); err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}

	questions := make([]model.Question, 0, len(rows))
	for _, row := range rows {
		q, err := row.toModel()
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, nil
}

func (t *sqliteTx) CountQuestions(ctx context.Context, testID string) (int, error) {
	var n int
	if err := t.tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM questions WHERE test_id = ?", testID); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return n, nil
}

func (t *sqliteTx) InsertQuestion(ctx context.Context, q *model.Question) error {
	row, err := newQuestionRow(q)
	if err != nil {
		return err
	}
	_, err = t.tx.NamedExecContext(ctx, `
		INSERT INTO questions (id, test_id, text, options, correct_option_index, created_at, updated_at)
		VALUES (:id, :test_id, :text, :options, :correct_option_index, :created_at, :updated_at)`, row)
	if err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}
	return nil
}

func (t *sqliteTx) UpdateQuestion(ctx context.Context, q *model.Question) error {
	row, err := newQuestionRow(q)
	if err != nil {
		return err
	}
	res, err := t.tx.NamedExecContext(ctx, `
		UPDATE questions SET text = :text, options = :options, correct_option_index = :correct_option_index,
			updated_at = :updated_at
		WHERE id = :id AND test_id = :test_id`, row)
	if err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *sqliteTx) DeleteQuestion(ctx context.Context, testID, questionID string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM questions WHERE id = ? AND test_id = ?", questionID, testID)
	if err != nil {
		return false, fmt.Errorf("failed to delete question: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete question: %w", err)
	}
	return n > 0, nil
}

func (t *sqliteTx) DeleteQuestionsByTest(ctx context.Context, testID string) (int, error) {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM questions WHERE test_id = ?", testID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete questions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (t *sqliteTx) ListSessions(ctx context.Context, testID string) ([]model.TestSession, error) {
	var rows []sessionRow
	err := t.tx.SelectContext(ctx, &rows, `
		SELECT id, test_id, student_id, status, final_score, answers, start_time, end_time
		FROM test_sessions WHERE test_id = ? ORDER BY start_time, id`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	sessions := make([]model.TestSession, 0, len(rows))
	for _, row := range rows {
		s, err := row.toModel()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, nil
}

func (t *sqliteTx) DeleteSessions(ctx context.Context, testID string, ids []string) (int, error) {
	query := "DELETE FROM test_sessions WHERE test_id = ?"
	args := []any{testID}
	if len(ids) > 0 {
		query += " AND id IN (?" + strings.Repeat(", ?", len(ids)-1) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}

	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (t *sqliteTx) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	var g model.Group
	err := t.tx.GetContext(ctx, &g, "SELECT id, name FROM groups WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &g, nil
}

// AddGroup регистрирует группу
func (s *Store) AddGroup(ctx context.Context, g model.Group) error {
	_, err := s.db.NamedExecContext(ctx, "INSERT INTO groups (id, name) VALUES (:id, :name) ON CONFLICT (id) DO UPDATE SET name = excluded.name", g)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

// AddSession сохраняет сессию студента
func (s *Store) AddSession(ctx context.Context, session model.TestSession) error {
	var answers sql.NullString
	if len(session.Answers) > 0 {
		raw, err := json.Marshal(session.Answers)
		if err != nil {
			return fmt.Errorf("failed to encode answers: %w", err)
		}
		answers = sql.NullString{String: string(raw), Valid: true}
	}
	var score sql.NullFloat64
	if session.FinalScore != nil {
		score = sql.NullFloat64{Float64: *session.FinalScore, Valid: true}
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO test_sessions (id, test_id, student_id, status, final_score, answers, start_time, end_time)
		VALUES (:id, :test_id, :student_id, :status, :final_score, :answers, :start_time, :end_time)`,
		sessionRow{
			ID:         session.ID,
			TestID:     session.TestID,
			StudentID:  session.StudentID,
			Status:     session.Status,
			FinalScore: score,
			Answers:    answers,
			StartTime:  formatTime(session.StartTime),
			EndTime:    nullTime(session.EndTime),
		})
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}
