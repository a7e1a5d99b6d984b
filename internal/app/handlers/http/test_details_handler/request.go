package test_details_handler

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/model"
)

// UpdateTestRequest структура для запроса. Отсутствующие поля не меняются.
type UpdateTestRequest struct {
	Name            *string         `json:"name"`
	GroupID         *string         `json:"group_id"`
	TimeLimit       *int            `json:"time_limit"`
	DateTime        *time.Time      `json:"date_time"`
	AntiCheatConfig json.RawMessage `json:"anti_cheat_config"`
}

// Validate проверяет переданные поля
func (r UpdateTestRequest) Validate() error {
	fe := errs.FieldErrors{}
	if r.Name == nil && r.GroupID == nil && r.TimeLimit == nil && r.DateTime == nil && r.AntiCheatConfig == nil {
		fe.Add("body", "at least one field is required")
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		fe.Add("name", "must not be empty")
	}
	if r.GroupID != nil && strings.TrimSpace(*r.GroupID) == "" {
		fe.Add("group_id", "must not be empty")
	}
	if r.TimeLimit != nil && *r.TimeLimit < 1 {
		fe.Add("time_limit", "must be at least 1 minute")
	}
	return fe.Err()
}

func (r UpdateTestRequest) toModel() model.TestPatch {
	return model.TestPatch{
		Name:            r.Name,
		GroupID:         r.GroupID,
		TimeLimit:       r.TimeLimit,
		DateTime:        r.DateTime,
		AntiCheatConfig: r.AntiCheatConfig,
	}
}
