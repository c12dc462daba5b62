// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package rcumap

import "sync"

// TimerWheel is a single-level timing wheel: a ring of slots holding
// callbacks keyed by id, run without a per-entry time.Timer. A delay longer
// than slotCount ticks wraps around the ring and fires early. The session table,
// endpoint registry and FQDN resolver schedule nothing on it; the worker
// pool only ticks it. Modeled on the scan-and-evict shape of the teacher's
// cleanupExpiredFlows batch loop, with O(1) schedule and a per-tick drain
// of one slot instead of a full-table scan.
type TimerWheel struct {
	mu       sync.Mutex
	slots    []map[uint64]func()
	cursor   int
	tickSize int
}

// NewTimerWheel creates a wheel with the given slot count; each call to Tick
// advances the cursor by one slot. slotCount should be chosen so
// slotCount*tick-interval comfortably exceeds the longest timeout the caller
// schedules (e.g. 3600 one-second slots for up to an hour out).
func NewTimerWheel(slotCount int) *TimerWheel {
	if slotCount < 1 {
		slotCount = 1
	}
	w := &TimerWheel{slots: make([]map[uint64]func(), slotCount)}
	for i := range w.slots {
		w.slots[i] = make(map[uint64]func())
	}
	return w
}

// Schedule arranges for fn to run after delayTicks ticks of Tick, under the
// caller-chosen id that can be passed to Cancel. delayTicks of 0 fires on
// the next Tick.
func (w *TimerWheel) Schedule(id uint64, delayTicks int, fn func()) {
	if delayTicks < 1 {
		delayTicks = 1
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	slot := (w.cursor + delayTicks) % len(w.slots)
	w.slots[slot][id] = fn
}

// Cancel removes a previously scheduled timer by id, searching all slots.
// The search costs one map delete per slot.
func (w *TimerWheel) Cancel(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, slot := range w.slots {
		delete(slot, id)
	}
}

// Tick advances the wheel by one slot and runs every callback due in the
// slot just reached, outside the lock so scheduled callbacks may
// themselves call Schedule/Cancel without deadlocking.
func (w *TimerWheel) Tick() {
	w.mu.Lock()
	w.cursor = (w.cursor + 1) % len(w.slots)
	due := w.slots[w.cursor]
	w.slots[w.cursor] = make(map[uint64]func())
	w.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

// Len reports how many timers are currently pending across all slots.
func (w *TimerWheel) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, slot := range w.slots {
		n += len(slot)
	}
	return n
}
