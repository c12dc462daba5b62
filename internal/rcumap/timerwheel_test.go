// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package rcumap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimerWheelFiresAfterDelay(t *testing.T) {
	w := NewTimerWheel(8)
	fired := false
	w.Schedule(1, 2, func() { fired = true })

	w.Tick()
	assert.False(t, fired, "must not fire before the scheduled delay elapses")
	w.Tick()
	assert.True(t, fired)
}

func TestTimerWheelCancel(t *testing.T) {
	w := NewTimerWheel(8)
	fired := false
	w.Schedule(1, 1, func() { fired = true })
	w.Cancel(1)

	w.Tick()
	assert.False(t, fired)
}

func TestTimerWheelLen(t *testing.T) {
	w := NewTimerWheel(8)
	w.Schedule(1, 1, func() {})
	w.Schedule(2, 5, func() {})
	assert.Equal(t, 2, w.Len())

	w.Tick()
	assert.Equal(t, 1, w.Len())
}

func TestTimerWheelWraps(t *testing.T) {
	w := NewTimerWheel(3)
	calls := 0
	w.Schedule(1, 2, func() { calls++ })

	for i := 0; i < 10; i++ {
		w.Tick()
	}
	assert.Equal(t, 1, calls, "callback must fire exactly once even across multiple wheel wraps")
}
