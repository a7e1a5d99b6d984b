package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/IT-Nick/testpoint/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgTx struct {
	tx pgx.Tx
}

const testColumns = `id, name, group_id, time_limit, question_count, date_time, test_maker, status,
	anti_cheat_config, created_at, completed_at, version`

func scanTest(row pgx.Row) (*model.Test, error) {
	var (
		test      model.Test
		status    string
		antiCheat []byte
	)
	err := row.Scan(&test.ID, &test.Name, &test.GroupID, &test.TimeLimit, &test.QuestionCount,
		&test.DateTime, &test.TestMaker, &status, &antiCheat, &test.CreatedAt, &test.CompletedAt, &test.Version)
	if err != nil {
		return nil, err
	}
	test.Status = model.TestStatus(status)
	if len(antiCheat) > 0 {
		test.AntiCheatConfig = json.RawMessage(antiCheat)
	}
	return &test, nil
}

func nullableJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func (t *pgTx) GetTest(ctx context.Context, id string) (*model.Test, error) {
	test, err := scanTest(t.tx.QueryRow(ctx, "SELECT "+testColumns+" FROM tests WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

func (t *pgTx) ListTests(ctx context.Context, filter storage.TestFilter) ([]model.Test, error) {
	query := "SELECT " + testColumns + " FROM tests"
	var args []any
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query += " WHERE status = ANY($1)"
		args = append(args, statuses)
	}
	query += " ORDER BY date_time DESC, id"

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tests: %w", err)
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		test, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		tests = append(tests, *test)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return tests, nil
}

func (t *pgTx) InsertTest(ctx context.Context, test *model.Test) error {
	test.Version = 1
	_, err := t.tx.Exec(ctx, `
		INSERT INTO tests (id, name, group_id, time_limit, question_count, date_time, test_maker, status,
			anti_cheat_config, created_at, completed_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		test.ID, test.Name, test.GroupID, test.TimeLimit, test.QuestionCount, test.DateTime, test.TestMaker,
		string(test.Status), nullableJSON(test.AntiCheatConfig), test.CreatedAt, test.CompletedAt, test.Version)
	if err != nil {
		return fmt.Errorf("failed to insert test: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateTest(ctx context.Context, test *model.Test) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE tests SET name = $2, group_id = $3, time_limit = $4, question_count = $5, date_time = $6,
			status = $7, anti_cheat_config = $8, completed_at = $9, version = version + 1
		WHERE id = $1 AND version = $10`,
		test.ID, test.Name, test.GroupID, test.TimeLimit, test.QuestionCount, test.DateTime,
		string(test.Status), nullableJSON(test.AntiCheatConfig), test.CompletedAt, test.Version)
	if err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return t.missingOrConflict(ctx, test.ID)
	}
	test.Version++
	return nil
}

func (t *pgTx) DeleteTest(ctx context.Context, id string, version int64) error {
	tag, err := t.tx.Exec(ctx, "DELETE FROM tests WHERE id = $1 AND version = $2", id, version)
	if err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return t.missingOrConflict(ctx, id)
	}
	return nil
}

// missingOrConflict различает удаленный тест и тест с другой версией
func (t *pgTx) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := t.tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM tests WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check test: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

const questionColumns = "id, test_id, text, options, correct_option_index, created_at, updated_at"

func scanQuestion(row pgx.Row) (*model.Question, error) {
	var (
		q       model.Question
		options []byte
	)
	if err := row.Scan(&q.ID, &q.TestID, &q.Text, &options, &q.CorrectOptionIndex, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(options, &q.Options); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}
	return &q, nil
}

func (t *pgTx) GetQuestion(ctx context.Context, testID, questionID string) (*model.Question, error) {
	q, err := scanQuestion(t.tx.QueryRow(ctx,
		"SELECT "+questionColumns+" FROM questions WHERE id = $1 AND test_id = $2", questionID, testID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return q, nil
}

func (t *pgTx) ListQuestions(ctx context.Context, testID string) ([]model.Question, error) {
	rows, err := t.tx.Query(ctx, "SELECT "+questionColumns+" FROM questions WHERE test_id = $1 ORDER BY seq", testID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return questions, nil
}

func (t *pgTx) CountQuestions(ctx context.Context, testID string) (int, error) {
	var n int
	if err := t.tx.QueryRow(ctx, "SELECT COUNT(*) FROM questions WHERE test_id = $1", testID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return n, nil
}

func (t *pgTx) InsertQuestion(ctx context.Context, q *model.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO questions (id, test_id, text, options, correct_option_index, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		q.ID, q.TestID, q.Text, options, q.CorrectOptionIndex, q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateQuestion(ctx context.Context, q *model.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE questions SET text = $3, options = $4, correct_option_index = $5, updated_at = $6
		WHERE id = $1 AND test_id = $2`,
		q.ID, q.TestID, q.Text, options, q.CorrectOptionIndex, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteQuestion(ctx context.Context, testID, questionID string) (bool, error) {
	tag, err := t.tx.Exec(ctx, "DELETE FROM questions WHERE id = $1 AND test_id = $2", questionID, testID)
	if err != nil {
		return false, fmt.Errorf("failed to delete question: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) DeleteQuestionsByTest(ctx context.Context, testID string) (int, error) {
	tag, err := t.tx.Exec(ctx, "DELETE FROM questions WHERE test_id = $1", testID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete questions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (t *pgTx) ListSessions(ctx context.Context, testID string) ([]model.TestSession, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, test_id, student_id, status, final_score, answers, start_time, end_time
		FROM test_sessions WHERE test_id = $1 ORDER BY start_time, id`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.TestSession
	for rows.Next() {
		var (
			s       model.TestSession
			answers []byte
			endTime *time.Time
		)
		if err := rows.Scan(&s.ID, &s.TestID, &s.StudentID, &s.Status, &s.FinalScore, &answers, &s.StartTime, &endTime); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.EndTime = endTime
		if len(answers) > 0 {
			if err := json.Unmarshal(answers, &s.Answers); err != nil {
				return nil, fmt.Errorf("failed to decode answers: %w", err)
			}
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return sessions, nil
}

func (t *pgTx) DeleteSessions(ctx context.Context, testID string, ids []string) (int, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if len(ids) == 0 {
		tag, err = t.tx.Exec(ctx, "DELETE FROM test_sessions WHERE test_id = $1", testID)
	} else {
		tag, err = t.tx.Exec(ctx, "DELETE FROM test_sessions WHERE test_id = $1 AND id = ANY($2)", testID, ids)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (t *pgTx) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	var g model.Group
	err := t.tx.QueryRow(ctx, "SELECT id, name FROM groups WHERE id = $1", id).Scan(&g.ID, &g.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &g, nil
}

// AddGroup регистрирует группу
func (s *Store) AddGroup(ctx context.Context, g model.Group) error {
	if _, err := s.db.Exec(ctx, "INSERT INTO groups (id, name) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name", g.ID, g.Name); err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

// AddSession сохраняет сессию студента
func (s *Store) AddSession(ctx context.Context, session model.TestSession) error {
	var answers []byte
	if len(session.Answers) > 0 {
		raw, err := json.Marshal(session.Answers)
		if err != nil {
			return fmt.Errorf("failed to encode answers: %w", err)
		}
		answers = raw
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO test_sessions (id, test_id, student_id, status, final_score, answers, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, session.TestID, session.StudentID, session.Status, session.FinalScore, answers,
		session.StartTime, session.EndTime)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}
