// Package cron периодически переводит тесты по расписанию:
// published в ongoing при наступлении date_time и в completed по истечении лимита.
package cron

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Advancer применяет переходы, наступившие к моменту now
type Advancer interface {
	AdvanceSchedule(ctx context.Context, now time.Time) (int, error)
}

// Sweeper запускает Advancer по расписанию
type Sweeper struct {
	scheduler *gocron.Scheduler
	advancer  Advancer
	interval  time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// New создает новый экземпляр Sweeper
func New(advancer Advancer, interval time.Duration, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := gocron.NewScheduler(time.UTC)
	// Следующий проход не стартует, пока не закончился предыдущий
	s.SingletonModeAll()

	return &Sweeper{
		scheduler: s,
		advancer:  advancer,
		interval:  interval,
		log:       log,
		now:       time.Now,
	}
}

// Start регистрирует задачу и запускает планировщик в фоне
func (s *Sweeper) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.RunOnce); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}
	s.scheduler.StartAsync()
	s.log.Info("schedule sweeper started", "interval", s.interval)
	return nil
}

// Stop останавливает планировщик
func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}

// RunOnce выполняет один проход
func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	n, err := s.advancer.AdvanceSchedule(ctx, s.now())
	if err != nil {
		s.log.Error("schedule sweep failed", "error", err, "advanced", n)
		return
	}
	if n > 0 {
		s.log.Info("schedule sweep advanced tests", "advanced", n)
	}
}
