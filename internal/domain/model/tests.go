package model

import (
	"encoding/json"
	"time"
)

// TestStatus состояние теста в жизненном цикле
type TestStatus string

const (
	StatusDraft     TestStatus = "draft"
	StatusPublished TestStatus = "published"
	StatusOngoing   TestStatus = "ongoing"
	StatusCompleted TestStatus = "completed"
)

// Valid сообщает, является ли статус одним из известных
func (s TestStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusOngoing, StatusCompleted:
		return true
	}
	return false
}

// Test представляет запланированный тест
type Test struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	GroupID         string          `json:"group_id"`
	TimeLimit       int             `json:"time_limit"`
	QuestionCount   int             `json:"question_count"`
	DateTime        time.Time       `json:"date_time"`
	TestMaker       string          `json:"test_maker"`
	Status          TestStatus      `json:"status"`
	AntiCheatConfig json.RawMessage `json:"anti_cheat_config,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`

	// Version счетчик оптимистической блокировки, растет при каждой записи
	Version int64 `json:"-"`
}

// EndsAt время, когда истекает лимит теста
func (t *Test) EndsAt() time.Time {
	return t.DateTime.Add(time.Duration(t.TimeLimit) * time.Minute)
}

// Clone возвращает копию теста, не разделяющую память с оригиналом
func (t Test) Clone() Test {
	if t.AntiCheatConfig != nil {
		t.AntiCheatConfig = append(json.RawMessage(nil), t.AntiCheatConfig...)
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		t.CompletedAt = &at
	}
	return t
}

// NewTest входные данные для создания теста
type NewTest struct {
	Name            string
	GroupID         string
	TimeLimit       int
	DateTime        time.Time
	AntiCheatConfig json.RawMessage
}

// TestPatch изменяемые поля теста. Пустые указатели не меняют значение.
type TestPatch struct {
	Name            *string
	GroupID         *string
	TimeLimit       *int
	DateTime        *time.Time
	AntiCheatConfig json.RawMessage
}

// Group учебная группа, к которой привязан тест
type Group struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
