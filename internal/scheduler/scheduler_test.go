package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_RunsOnInterval(t *testing.T) {
	m := NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	calls := 0
	m.Every(15*time.Second, func() { calls++ })

	m.Advance(14 * time.Second)
	assert.Equal(t, 0, calls)

	m.Advance(1 * time.Second)
	assert.Equal(t, 1, calls)

	m.Advance(45 * time.Second)
	assert.Equal(t, 4, calls)
}

func TestManual_CancelStopsTask(t *testing.T) {
	m := NewManual(time.Now())
	calls := 0
	cancel := m.Every(time.Second, func() { calls++ })

	m.Advance(2 * time.Second)
	cancel()
	cancel()
	m.Advance(10 * time.Second)

	assert.Equal(t, 2, calls)
	assert.Zero(t, m.Pending())
}

func TestManual_TaskCanCancelItself(t *testing.T) {
	m := NewManual(time.Now())
	calls := 0
	var cancel CancelFunc
	cancel = m.Every(time.Second, func() {
		calls++
		cancel()
	})

	m.Advance(5 * time.Second)
	assert.Equal(t, 1, calls)
}

func TestManual_ClockFollowsTasks(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := NewManual(start)
	var seen []time.Time
	m.Every(time.Minute, func() { seen = append(seen, m.Now()) })

	m.Advance(3 * time.Minute)

	require.Len(t, seen, 3)
	assert.Equal(t, start.Add(time.Minute), seen[0])
	assert.Equal(t, start.Add(3*time.Minute), m.Now())
}

func TestTickerScheduler_StopsAfterCancel(t *testing.T) {
	var calls atomic.Int32
	cancel := TickerScheduler{}.Every(5*time.Millisecond, func() { calls.Add(1) })

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, after, calls.Load())
}
