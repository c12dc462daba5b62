// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package session

import "github.com/gopacket/gopacket/layers"

// TCPState mirrors the Linux tcp_state enum the session table's states are
// aliased to (SESS_STATE_* / TCP_*).
type TCPState uint8

// TCP states.
const (
	StateNone TCPState = iota
	StateEstablished
	StateSynSent
	StateSynRecv
	StateFinWait1
	StateFinWait2
	StateTimeWait
	StateClose
	StateCloseWait
	StateLastAck
	StateListen
	StateClosing
)

// wingRole distinguishes which side of the session sent the segment being
// applied to the state machine.
type wingRole uint8

const (
	roleClient wingRole = iota
	roleServer
)

// transition advances a session's TCP state given one observed segment and
// which wing sent it. This is a simplified single-state machine: the
// session keeps one State that segments from either wing advance, and the
// sending wing does not change the transition taken.
func transition(current TCPState, tcp *layers.TCP, from wingRole) TCPState {
	switch {
	case tcp.RST:
		return StateClose
	case tcp.SYN && !tcp.ACK:
		if current == StateNone {
			return StateSynSent
		}
		return current
	case tcp.SYN && tcp.ACK:
		if current == StateSynSent || current == StateNone {
			return StateSynRecv
		}
		return current
	case tcp.FIN:
		switch current {
		case StateEstablished, StateSynRecv:
			return StateFinWait1
		case StateFinWait1:
			return StateFinWait2
		case StateCloseWait:
			return StateLastAck
		default:
			return current
		}
	case tcp.ACK:
		switch current {
		case StateSynSent, StateSynRecv:
			return StateEstablished
		case StateFinWait1:
			return StateFinWait2
		case StateFinWait2:
			return StateTimeWait
		case StateLastAck:
			return StateClose
		default:
			return current
		}
	default:
		return current
	}
}

// IsTerminal reports whether a state represents a fully closed connection
// eligible for grace-tick removal.
func (s TCPState) IsTerminal() bool {
	return s == StateClose || s == StateTimeWait
}
