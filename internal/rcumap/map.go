// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package rcumap provides the read-mostly concurrent map used by the
// endpoint registry and session table, and a single-level timer wheel.
// Readers take a snapshot token, look up or iterate, and release
// the token; a writer's retired data is not actually freed until every token
// taken before the retirement has been released, giving the RCU-style
// "read-snapshot / grace-reclaim" idiom described in spec.md §9 without
// requiring a garbage-collected language to fake manual memory management.
package rcumap

import "sync"

// Map is a single-writer, many-reader map guarded by a light mutex, matching
// the read-mostly style of the teacher's internal/ebpf/flow.Manager (RWMutex
// plus a plain Go map), generalized with epoch-based grace-period retirement
// so long-lived readers never observe a bucket being reused mid-lookup.
type Map[K comparable, V any] struct {
	mu      sync.RWMutex
	data    map[K]V
	epoch   uint64
	readers map[uint64]int // epoch -> count of live snapshots pinning it
	retired []retirement[V]
}

type retirement[V any] struct {
	epoch   uint64
	cleanup func(V)
}

// New creates an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		data:    make(map[K]V),
		readers: make(map[uint64]int),
	}
}

// Token is the epoch that Acquire pinned for the duration of one packet's
// processing. Lookups through a Token read the live map, so a key removed
// after the Token was acquired is no longer found.
type Token struct {
	epoch uint64
}

// Acquire pins the map's current epoch and returns a Token plus its release
// function. The release function must run before the caller yields the
// worker (one packet's RCU read section, per spec.md §4.10 step 1).
func (m *Map[K, V]) Acquire() (Token, func()) {
	m.mu.Lock()
	e := m.epoch
	m.readers[e]++
	m.mu.Unlock()

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		m.mu.Lock()
		m.readers[e]--
		if m.readers[e] <= 0 {
			delete(m.readers, e)
			m.reclaimLocked()
		}
		m.mu.Unlock()
	}
	return Token{epoch: e}, release
}

// reclaimLocked runs cleanup for retired entries whose epoch predates every
// currently pinned reader. Caller must hold mu.
func (m *Map[K, V]) reclaimLocked() {
	if len(m.retired) == 0 {
		return
	}
	minPinned := m.epoch + 1
	for e := range m.readers {
		if e < minPinned {
			minPinned = e
		}
	}
	kept := m.retired[:0]
	for _, r := range m.retired {
		if r.epoch < minPinned {
			if r.cleanup != nil {
				r.cleanup(zero[V]())
			}
			continue
		}
		kept = append(kept, r)
	}
	m.retired = kept
}

func zero[V any]() (v V) { return }

// Lookup reads a value under the given token. Safe to call concurrently with
// writers; never blocks on a writer holding the mutation lock for long.
func (m *Map[K, V]) Lookup(_ Token, key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// Add inserts or overwrites key with value, bumping the epoch so readers
// that snapshotted before this call keep observing the pre-write state for
// any value they already hold a copy of (values are read by copy from Go
// maps, so no explicit grace period is needed for simple overwrite — Remove
// is where reclamation matters, see below).
func (m *Map[K, V]) Add(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.epoch++
}

// Replace is an alias for Add matching spec.md's add/remove/replace
// operation triad for C1.
func (m *Map[K, V]) Replace(key K, value V) { m.Add(key, value) }

// Remove deletes key from the map. If cleanup is non-nil, it runs once no
// reader that snapshotted before this call can still be inspecting the
// retired value — i.e. not until Remove's epoch predates every live
// snapshot's pinned epoch.
func (m *Map[K, V]) Remove(key K, cleanup func(V)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	e := m.epoch
	m.epoch++

	if cleanup == nil {
		return
	}
	if len(m.readers) == 0 {
		cleanup(zero[V]())
		return
	}
	m.retired = append(m.retired, retirement[V]{epoch: e, cleanup: cleanup})
}

// Len returns the current number of entries.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Range calls fn for every entry under the given token. fn must not mutate
// the map.
func (m *Map[K, V]) Range(_ Token, fn func(K, V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.data {
		if !fn(k, v) {
			return
		}
	}
}
