// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package rcumap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAddLookupRemove(t *testing.T) {
	m := New[string, int]()
	m.Add("a", 1)

	tok, release := m.Acquire()
	v, ok := m.Lookup(tok, "a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	release()

	m.Remove("a", nil)
	tok2, release2 := m.Acquire()
	defer release2()
	_, ok = m.Lookup(tok2, "a")
	assert.False(t, ok)
}

func TestMapRemoveDefersCleanupUntilReaderReleases(t *testing.T) {
	m := New[string, int]()
	m.Add("a", 1)

	tok, release := m.Acquire()

	cleaned := false
	m.Remove("a", func(int) { cleaned = true })
	assert.False(t, cleaned, "cleanup must not run while a snapshot from before the remove is still live")

	release()
	assert.True(t, cleaned, "cleanup must run once the pinning reader releases")
	_ = tok
}

func TestMapRemoveWithNoReadersCleansUpImmediately(t *testing.T) {
	m := New[string, int]()
	m.Add("a", 1)

	cleaned := false
	m.Remove("a", func(int) { cleaned = true })
	assert.True(t, cleaned)
}

func TestMapRange(t *testing.T) {
	m := New[string, int]()
	m.Add("a", 1)
	m.Add("b", 2)

	tok, release := m.Acquire()
	defer release()

	seen := map[string]int{}
	m.Range(tok, func(k string, v int) bool {
		seen[k] = v
		return true
	})
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, seen)
}

func TestMapLen(t *testing.T) {
	m := New[string, int]()
	assert.Equal(t, 0, m.Len())
	m.Add("a", 1)
	assert.Equal(t, 1, m.Len())
	m.Remove("a", nil)
	assert.Equal(t, 0, m.Len())
}
