// Package timer дает отменяемые отложенные задачи поверх time.AfterFunc
// и ручной планировщик для тестов.
package timer

import (
	"sort"
	"sync"
	"time"
)

// Timer запланированная задача, которую можно отменить
type Timer interface {
	// Stop отменяет задачу. Возвращает false, если задача уже выполнилась или отменена.
	Stop() bool
}

// Scheduler планирует вызов fn через d
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Real планировщик на системных таймерах
type Real struct{}

// AfterFunc запускает fn в отдельной горутине через d
func (Real) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Manual планировщик с ручным управлением временем
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	m       *Manual
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// NewManual создает ручной планировщик с начальным временем start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now текущее время планировщика
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc регистрирует fn на момент Now()+d
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{m: m, at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance сдвигает время на d и синхронно выполняет наступившие задачи
// в порядке их срока
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.next(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.at
		next.fired = true
		m.mu.Unlock()

		next.fn()
	}
}

// Pending число задач, ожидающих выполнения
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// next возвращает ближайшую задачу со сроком не позже target. Вызывается под m.mu.
func (m *Manual) next(target time.Time) *manualTimer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.fired && !t.stopped {
			live = append(live, t)
		}
	}
	m.timers = live

	sort.Slice(m.timers, func(i, j int) bool {
		if m.timers[i].at.Equal(m.timers[j].at) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at.Before(m.timers[j].at)
	})
	if len(m.timers) == 0 || m.timers[0].at.After(target) {
		return nil
	}
	return m.timers[0]
}
