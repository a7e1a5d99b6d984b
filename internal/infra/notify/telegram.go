package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/IT-Nick/testpoint/internal/domain/model"
	"gopkg.in/telebot.v4"
)

// Sender отправляет сообщение в чат. *telebot.Bot удовлетворяет интерфейсу.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Telegram отправляет события в чат Telegram из фоновой горутины
type Telegram struct {
	sender Sender
	chat   *telebot.Chat
	log    *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

// NewTelegram создает бота без опроса обновлений: он только отправляет сообщения
func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("telebot.NewBot: %w", err)
	}
	return NewTelegramWithSender(bot, chatID, log), nil
}

// NewTelegramWithSender создает уведомитель поверх произвольного отправителя
func NewTelegramWithSender(sender Sender, chatID int64, log *slog.Logger) *Telegram {
	t := &Telegram{
		sender: sender,
		chat:   &telebot.Chat{ID: chatID},
		log:    log,
		queue:  make(chan Event, 64),
	}
	t.wg.Add(1)
	go t.loop()
	return t
}

// Notify ставит событие в очередь. Если очередь заполнена, событие отбрасывается.
func (t *Telegram) Notify(_ context.Context, e Event) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}

	select {
	case t.queue <- e:
	default:
		t.log.Warn("notification queue is full, event dropped", "test_id", e.Test.ID, "to", e.To)
	}
}

// Close дожидается отправки уже поставленных в очередь событий
func (t *Telegram) Close() {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.queue)
	}
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Telegram) loop() {
	defer t.wg.Done()
	for e := range t.queue {
		_, err := t.sender.Send(t.chat, FormatEvent(e), &telebot.SendOptions{
			ParseMode: telebot.ModeMarkdownV2,
		})
		if err != nil {
			t.log.Error("failed to send telegram notification", "test_id", e.Test.ID, "error", err)
		}
	}
}

// markdownEscaper экранирует спецсимволы MarkdownV2
var markdownEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
)

// EscapeMarkdown делает строку безопасной для вставки в сообщение MarkdownV2
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// FormatEvent текст уведомления в разметке MarkdownV2
func FormatEvent(e Event) string {
	name := EscapeMarkdown(e.Test.Name)
	switch e.To {
	case model.StatusPublished:
		return fmt.Sprintf("📢 Тест *%s* опубликован\\. Начало: %s\\.", name, EscapeMarkdown(e.Test.DateTime.Format("02.01.2006 15:04")))
	case model.StatusOngoing:
		return fmt.Sprintf("⏰ Тест *%s* начался\\. Лимит времени: %d мин\\.", name, e.Test.TimeLimit)
	case model.StatusCompleted:
		return fmt.Sprintf("✅ Тест *%s* завершен\\.", name)
	case model.StatusDraft:
		return fmt.Sprintf("↩️ Тест *%s* возвращен в черновики\\. Удалено попыток: %d\\.", name, e.SessionsRemoved)
	}
	return fmt.Sprintf("Тест *%s*: %s → %s", name, EscapeMarkdown(string(e.From)), EscapeMarkdown(string(e.To)))
}
