// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package session

import (
	"testing"

	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
)

func TestTransitionThreeWayHandshake(t *testing.T) {
	state := StateNone
	state = transition(state, &layers.TCP{SYN: true}, roleClient)
	assert.Equal(t, StateSynSent, state)

	state = transition(state, &layers.TCP{SYN: true, ACK: true}, roleServer)
	assert.Equal(t, StateSynRecv, state)

	state = transition(state, &layers.TCP{ACK: true}, roleClient)
	assert.Equal(t, StateEstablished, state)
}

func TestTransitionFinTeardown(t *testing.T) {
	state := StateEstablished
	state = transition(state, &layers.TCP{FIN: true, ACK: true}, roleClient)
	assert.Equal(t, StateFinWait1, state)

	state = transition(state, &layers.TCP{ACK: true}, roleServer)
	assert.Equal(t, StateFinWait2, state)

	state = transition(state, &layers.TCP{ACK: true}, roleClient)
	assert.Equal(t, StateTimeWait, state)
	assert.True(t, state.IsTerminal())
}

func TestTransitionRSTAlwaysCloses(t *testing.T) {
	state := transition(StateEstablished, &layers.TCP{RST: true}, roleClient)
	assert.Equal(t, StateClose, state)
	assert.True(t, state.IsTerminal())
}
