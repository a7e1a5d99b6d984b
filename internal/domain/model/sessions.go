package model

import "time"

// SessionAnswer ответ студента на один вопрос
type SessionAnswer struct {
	SelectedAnswerIndex int  `json:"selected_answer_index"`
	IsCorrect           bool `json:"is_correct"`
}

// TestSession попытка прохождения теста студентом
type TestSession struct {
	ID         string                   `json:"id"`
	TestID     string                   `json:"test_id"`
	StudentID  string                   `json:"student_id"`
	Status     string                   `json:"status"`
	FinalScore *float64                 `json:"final_score,omitempty"`
	Answers    map[string]SessionAnswer `json:"answers,omitempty"`
	StartTime  time.Time                `json:"start_time"`
	EndTime    *time.Time               `json:"end_time,omitempty"`
}

// Clone возвращает копию сессии
func (s TestSession) Clone() TestSession {
	if s.Answers != nil {
		answers := make(map[string]SessionAnswer, len(s.Answers))
		for k, v := range s.Answers {
			answers[k] = v
		}
		s.Answers = answers
	}
	if s.FinalScore != nil {
		score := *s.FinalScore
		s.FinalScore = &score
	}
	if s.EndTime != nil {
		end := *s.EndTime
		s.EndTime = &end
	}
	return s
}
