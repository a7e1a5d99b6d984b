package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualFiresInOrder(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)

	var order []string
	m.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	m.AfterFunc(time.Second, func() { order = append(order, "a") })
	m.AfterFunc(2*time.Second, func() { order = append(order, "c") })
	m.AfterFunc(5*time.Second, func() { order = append(order, "late") })

	m.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, start.Add(2*time.Second), m.Now())
	assert.Equal(t, 1, m.Pending())
}

func TestManualStop(t *testing.T) {
	m := NewManual(time.Time{})
	fired := false
	tm := m.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	m.Advance(time.Minute)
	assert.False(t, fired)

	tm = m.AfterFunc(time.Second, func() {})
	m.Advance(time.Second)
	assert.False(t, tm.Stop())
}

func TestManualSchedulesFromCallback(t *testing.T) {
	m := NewManual(time.Time{})
	var calls []time.Duration
	m.AfterFunc(time.Second, func() {
		calls = append(calls, time.Second)
		m.AfterFunc(time.Second, func() { calls = append(calls, 2*time.Second) })
	})

	m.Advance(3 * time.Second)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, calls)
}

func TestRealAfterFunc(t *testing.T) {
	var fired atomic.Bool
	Real{}.AfterFunc(time.Millisecond, func() { fired.Store(true) })
	require.Eventually(t, fired.Load, time.Second, time.Millisecond)

	var stopped atomic.Bool
	tm := Real{}.AfterFunc(time.Hour, func() { stopped.Store(true) })
	assert.True(t, tm.Stop())
	assert.False(t, stopped.Load())
}
