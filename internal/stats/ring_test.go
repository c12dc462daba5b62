// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingAddAndCurrent(t *testing.T) {
	var r Ring
	r.Add(5)
	r.Add(3)
	assert.Equal(t, uint32(8), r.Current())
	assert.Equal(t, uint64(8), r.Total)
}

func TestRingAdvanceClearsSlot(t *testing.T) {
	var r Ring
	r.Add(10)
	r.Advance()
	assert.Equal(t, uint32(0), r.Current())
	assert.Equal(t, uint64(10), r.Total)
}

func TestRingSumAcrossSlots(t *testing.T) {
	var r Ring
	r.Add(1)
	r.Advance()
	r.Add(2)
	r.Advance()
	r.Add(3)
	assert.Equal(t, uint32(6), r.Sum(3))
	assert.Equal(t, uint32(5), r.Sum(2))
}

func TestRingSumCapsAtSlots(t *testing.T) {
	var r Ring
	r.Add(1)
	assert.Equal(t, uint32(1), r.Sum(Slots+10))
}

func TestStatsAdvanceRollsBothDirections(t *testing.T) {
	var s Stats
	s.In.Packet.Add(4)
	s.Out.Packet.Add(7)
	s.Advance()
	assert.Equal(t, uint32(0), s.In.Packet.Current())
	assert.Equal(t, uint32(0), s.Out.Packet.Current())
	assert.Equal(t, uint64(4), s.In.Packet.Total)
	assert.Equal(t, uint64(7), s.Out.Packet.Total)
	assert.Equal(t, uint32(1), s.CurSlot)
}
