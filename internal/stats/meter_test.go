// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeterDefaultWatermarksFromCapacity(t *testing.T) {
	m := NewMeter(1, SpanMinute, 1000)
	assert.Equal(t, uint32(900), m.UpperLimit)
	assert.Equal(t, uint32(500), m.LowerLimit)
}

func TestMeterArmsOnUpperBreach(t *testing.T) {
	m := NewMeter(1, SpanMinute, 100)
	breached, cleared := m.Observe(95)
	assert.True(t, breached)
	assert.False(t, cleared)
	assert.True(t, m.Breached())
	assert.Equal(t, MeterFlagUpperBreached, m.Flags())
}

func TestMeterStaysArmedInHysteresisBand(t *testing.T) {
	m := NewMeter(1, SpanMinute, 100)
	m.Observe(95)
	breached, cleared := m.Observe(0)
	assert.False(t, breached)
	assert.False(t, cleared)
	assert.True(t, m.Breached())
}

func TestMeterClearsBelowLowerLimit(t *testing.T) {
	m := NewMeter(1, SpanMinute, 100)
	m.Observe(95)
	for i := 0; i < int(SpanMinute); i++ {
		m.Advance()
	}
	breached, cleared := m.Observe(10)
	assert.False(t, breached)
	assert.True(t, cleared)
	assert.False(t, m.Breached())
}
