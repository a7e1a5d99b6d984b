package model

import "time"

// Option вариант ответа
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question представляет вопрос теста
type Question struct {
	ID                 string    `json:"id"`
	TestID             string    `json:"test_id"`
	Text               string    `json:"text"`
	Options            []Option  `json:"options"`
	CorrectOptionIndex int       `json:"correct_option_index"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Clone возвращает копию вопроса со своим слайсом вариантов
func (q Question) Clone() Question {
	q.Options = append([]Option(nil), q.Options...)
	return q
}

// Draft возвращает редактируемое представление вопроса
func (q Question) Draft() QuestionDraft {
	return QuestionDraft{
		Text:               q.Text,
		Options:            append([]Option(nil), q.Options...),
		CorrectOptionIndex: q.CorrectOptionIndex,
	}
}

// QuestionDraft содержимое вопроса без идентификаторов хранилища
type QuestionDraft struct {
	Text               string   `json:"text"`
	Options            []Option `json:"options"`
	CorrectOptionIndex int      `json:"correct_option_index"`
}

// Clone возвращает копию черновика
func (d QuestionDraft) Clone() QuestionDraft {
	d.Options = append([]Option(nil), d.Options...)
	return d
}

// QuestionPatch частичное изменение вопроса
type QuestionPatch struct {
	Text               *string
	Options            []Option
	CorrectOptionIndex *int
}

// PatchFrom строит полный патч из черновика
func PatchFrom(d QuestionDraft) QuestionPatch {
	text := d.Text
	idx := d.CorrectOptionIndex
	return QuestionPatch{
		Text:               &text,
		Options:            append([]Option(nil), d.Options...),
		CorrectOptionIndex: &idx,
	}
}
