package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func TestWriteWithSessions(t *testing.T) {
	score := 75.0
	end := fixedNow().Add(20 * time.Minute)
	r := Results{
		Test: model.Test{ID: "t-1", Name: "Quiz", Status: model.StatusCompleted, QuestionCount: 2, TimeLimit: 30, DateTime: fixedNow()},
		Sessions: []model.TestSession{
			{
				ID: "s-1", TestID: "t-1", StudentID: "student-1", Status: "completed",
				FinalScore: &score, StartTime: fixedNow(), EndTime: &end,
				Answers: map[string]model.SessionAnswer{
					"q-1": {SelectedAnswerIndex: 0, IsCorrect: true},
					"q-2": {SelectedAnswerIndex: 1, IsCorrect: false},
				},
			},
			{ID: "s-2", TestID: "t-1", StudentID: "student-2", Status: "in_progress", StartTime: fixedNow()},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewGenerator(Options{Now: fixedNow}).Write(&buf, r))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := NewGenerator(Options{Now: fixedNow}).Write(&buf, Results{Test: model.Test{Name: "Empty"}})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestCorrectAnswers(t *testing.T) {
	s := model.TestSession{Answers: map[string]model.SessionAnswer{
		"a": {IsCorrect: true}, "b": {IsCorrect: true}, "c": {},
	}}
	assert.Equal(t, 2, correctAnswers(s))
	assert.Equal(t, "-", score(nil))
	assert.Equal(t, "-", finished(nil))
}
