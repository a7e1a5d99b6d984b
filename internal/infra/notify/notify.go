// Package notify рассылает уведомления о переходах тестов между состояниями.
package notify

import (
	"context"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/model"
)

// Event переход теста
type Event struct {
	Test  model.Test
	From  model.TestStatus
	To    model.TestStatus
	Actor model.Actor
	At    time.Time
	// SessionsRemoved число сессий, удаленных при возврате в черновик
	SessionsRemoved int
}

// Notifier получатель событий
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Nop не отправляет уведомлений
type Nop struct{}

// Notify ничего не делает
func (Nop) Notify(context.Context, Event) {}
