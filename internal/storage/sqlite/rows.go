package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/model"
)

type testRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	GroupID         string         `db:"group_id"`
	TimeLimit       int            `db:"time_limit"`
	QuestionCount   int            `db:"question_count"`
	DateTime        string         `db:"date_time"`
	TestMaker       string         `db:"test_maker"`
	Status          string         `db:"status"`
	AntiCheatConfig sql.NullString `db:"anti_cheat_config"`
	CreatedAt       string         `db:"created_at"`
	CompletedAt     sql.NullString `db:"completed_at"`
	Version         int64          `db:"version"`
}

type questionRow struct {
	ID                 string `db:"id"`
	TestID             string `db:"test_id"`
	Text               string `db:"text"`
	Options            string `db:"options"`
	CorrectOptionIndex int    `db:"correct_option_index"`
	CreatedAt          string `db:"created_at"`
	UpdatedAt          string `db:"updated_at"`
}

type sessionRow struct {
	ID         string          `db:"id"`
	TestID     string          `db:"test_id"`
	StudentID  string          `db:"student_id"`
	Status     string          `db:"status"`
	FinalScore sql.NullFloat64 `db:"final_score"`
	Answers    sql.NullString  `db:"answers"`
	StartTime  string          `db:"start_time"`
	EndTime    sql.NullString  `db:"end_time"`
}

// timeLayout фиксированной ширины, чтобы строки сортировались как время
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func newTestRow(t *model.Test) testRow {
	return testRow{
		ID:              t.ID,
		Name:            t.Name,
		GroupID:         t.GroupID,
		TimeLimit:       t.TimeLimit,
		QuestionCount:   t.QuestionCount,
		DateTime:        formatTime(t.DateTime),
		TestMaker:       t.TestMaker,
		Status:          string(t.Status),
		AntiCheatConfig: nullJSON(t.AntiCheatConfig),
		CreatedAt:       formatTime(t.CreatedAt),
		CompletedAt:     nullTime(t.CompletedAt),
		Version:         t.Version,
	}
}

func (r testRow) toModel() (*model.Test, error) {
	dateTime, err := parseTime(r.DateTime)
	if err != nil {
		return nil, err
	}
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	completedAt, err := parseNullTime(r.CompletedAt)
	if err != nil {
		return nil, err
	}

	t := &model.Test{
		ID:            r.ID,
		Name:          r.Name,
		GroupID:       r.GroupID,
		TimeLimit:     r.TimeLimit,
		QuestionCount: r.QuestionCount,
		DateTime:      dateTime,
		TestMaker:     r.TestMaker,
		Status:        model.TestStatus(r.Status),
		CreatedAt:     createdAt,
		CompletedAt:   completedAt,
		Version:       r.Version,
	}
	if r.AntiCheatConfig.Valid {
		t.AntiCheatConfig = json.RawMessage(r.AntiCheatConfig.String)
	}
	return t, nil
}

func newQuestionRow(q *model.Question) (questionRow, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return questionRow{}, fmt.Errorf("failed to encode options: %w", err)
	}
	return questionRow{
		ID:                 q.ID,
		TestID:             q.TestID,
		Text:               q.Text,
		Options:            string(options),
		CorrectOptionIndex: q.CorrectOptionIndex,
		CreatedAt:          formatTime(q.CreatedAt),
		UpdatedAt:          formatTime(q.UpdatedAt),
	}, nil
}

func (r questionRow) toModel() (*model.Question, error) {
	q := &model.Question{
		ID:                 r.ID,
		TestID:             r.TestID,
		Text:               r.Text,
		CorrectOptionIndex: r.CorrectOptionIndex,
	}
	if err := json.Unmarshal([]byte(r.Options), &q.Options); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}
	var err error
	if q.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, err
	}
	if q.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return nil, err
	}
	return q, nil
}

func (r sessionRow) toModel() (*model.TestSession, error) {
	start, err := parseTime(r.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := parseNullTime(r.EndTime)
	if err != nil {
		return nil, err
	}

	s := &model.TestSession{
		ID:        r.ID,
		TestID:    r.TestID,
		StudentID: r.StudentID,
		Status:    r.Status,
		StartTime: start,
		EndTime:   end,
	}
	if r.FinalScore.Valid {
		score := r.FinalScore.Float64
		s.FinalScore = &score
	}
	if r.Answers.Valid && r.Answers.String != "" {
		if err := json.Unmarshal([]byte(r.Answers.String), &s.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode answers: %w", err)
		}
	}
	return s, nil
}
