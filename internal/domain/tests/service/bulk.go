package service

import (
	"context"
	"strings"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/lifecycle"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

// BulkError причина отказа для одного теста
type BulkError struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkResult итог массовой операции
type BulkResult struct {
	SuccessCount int         `json:"successCount"`
	ErrorCount   int         `json:"errorCount"`
	Errors       []BulkError `json:"errors"`
}

// bulkActions действия, доступные в массовом режиме
var bulkActions = map[lifecycle.Action]bool{
	lifecycle.ActionPublish: true,
	lifecycle.ActionRevert:  true,
	lifecycle.ActionDelete:  true,
}

// BulkTransition применяет действие к каждому тесту в отдельной транзакции.
// Ошибка возвращается только для некорректного запроса, отказы по отдельным тестам попадают в результат.
func (s *TestService) BulkTransition(ctx context.Context, actor model.Actor, ids []string, action string) (*BulkResult, error) {
	fe := errs.FieldErrors{}
	act, ok := lifecycle.ParseAction(strings.TrimSpace(action))
	switch {
	case strings.TrimSpace(action) == "":
		fe.Add("action", "must not be empty")
	case !ok || !bulkActions[act]:
		fe.Add("action", lifecycle.ReasonInvalidAction)
	}

	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		fe.Add("test_ids", "must contain at least one id")
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	outcomes := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			_, outcomes[i] = s.Transition(ctx, actor, id, act)
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkResult{Errors: []BulkError{}}
	for i, err := range outcomes {
		if err == nil {
			result.SuccessCount++
			continue
		}
		result.ErrorCount++
		result.Errors = append(result.Errors, BulkError{ID: ids[i], Reason: err.Error()})
	}

	s.log.Info("bulk transition finished", "action", act, "actor", actor.ID,
		"success", result.SuccessCount, "errors", result.ErrorCount)
	return result, nil
}

// uniqueIDs убирает пустые и повторяющиеся идентификаторы, сохраняя порядок
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
