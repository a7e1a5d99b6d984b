package create_test_handler

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/model"
)

// CreateTestRequest структура для запроса
type CreateTestRequest struct {
	Name            string          `json:"name"`
	GroupID         string          `json:"group_id"`
	TimeLimit       int             `json:"time_limit"`
	DateTime        *time.Time      `json:"date_time"`
	AntiCheatConfig json.RawMessage `json:"anti_cheat_config"`
}

// Validate проверяет обязательные поля
func (r CreateTestRequest) Validate() error {
	fe := errs.FieldErrors{}
	if strings.TrimSpace(r.Name) == "" {
		fe.Add("name", "is required")
	}
	if strings.TrimSpace(r.GroupID) == "" {
		fe.Add("group_id", "is required")
	}
	if r.TimeLimit < 1 {
		fe.Add("time_limit", "must be at least 1 minute")
	}
	if r.DateTime == nil {
		fe.Add("date_time", "is required")
	}
	return fe.Err()
}

func (r CreateTestRequest) toModel() model.NewTest {
	return model.NewTest{
		Name:            r.Name,
		GroupID:         r.GroupID,
		TimeLimit:       r.TimeLimit,
		DateTime:        *r.DateTime,
		AntiCheatConfig: r.AntiCheatConfig,
	}
}
