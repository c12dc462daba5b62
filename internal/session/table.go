// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package session implements the session table (C4): 5-tuple keyed flow
// state, the TCP state machine, per-wing reassembly and counters, and
// idle/FIN/RST/policy/capacity eviction.
package session

import (
	"net"
	"time"

	"github.com/gopacket/gopacket/layers"

	"github.com/segmentic/dpengine/internal/decode"
	"github.com/segmentic/dpengine/internal/rcumap"
)

// EvictCause records why a session left the table, reported to the control
// plane and used to pick the session's final wire state.
type EvictCause uint8

// Eviction causes.
const (
	EvictIdle EvictCause = iota
	EvictFIN
	EvictRST
	EvictPolicy
	EvictCapacity
)

// Key is the session's 5-tuple plus owning endpoint MAC, matching the
// source's description of the session key.
type Key struct {
	ClientIP   string
	ServerIP   string
	ClientPort uint16
	ServerPort uint16
	IPProto    uint8
	EPMAC      string
}

func keyOf(d *decode.Decoded, epMAC net.HardwareAddr) Key {
	return Key{
		ClientIP:   d.SrcIP.String(),
		ServerIP:   d.DstIP.String(),
		ClientPort: d.SrcPort,
		ServerPort: d.DstPort,
		IPProto:    d.IPProto,
		EPMAC:      string(epMAC),
	}
}

// Wing is one direction's accounting: identity, next-expected sequence,
// reassembly state, and counters, matching the source's per-wing struct.
type Wing struct {
	IP          net.IP
	MAC         net.HardwareAddr
	Port        uint16
	NextSeq     uint32
	Reassembler *decode.StreamReassembler
	Packets     uint32
	Bytes       uint32
	AsmPackets  uint32
	AsmBytes    uint32
}

// PolicyCache holds the last policy decision applied to this session, so
// the hot path can skip re-evaluation until the policy version changes or
// an app/FQDN update invalidates it (DP_POLICY_ACTION_CHECK_APP semantics).
type PolicyCache struct {
	RuleID    uint32
	Version   uint16
	Action    uint8
	Evaluated bool
}

// Flag bits, matching DPSESS_FLAG_*.
const (
	FlagIngress = 1 << iota
	FlagTap
	FlagMid
	FlagExternal
	FlagXFF
	FlagSvcExtIP
	FlagMeshToSvr
	FlagLinkLocal
	FlagTmpOpen
	FlagUWLIP
	FlagCheckNBE
	FlagNBESameNS
)

// Session is one live flow.
type Session struct {
	ID          uint32
	Key         Key
	Client      Wing
	Server      Wing
	Flags       uint16
	State       TCPState
	EtherType   uint16
	Application uint16
	ThreatID    uint32
	Policy      PolicyCache
	CreatedAt   time.Time
	LastActive  time.Time
	TimerHandle uint64
	terminal    bool
}

// Touch updates the session's last-activity time and returns it. No idle
// timer is scheduled or rescheduled for the session.
func (s *Session) Touch(now time.Time) time.Time {
	s.LastActive = now
	return now
}

// ApplyTCP advances the session's TCP state machine for a segment observed
// from the given wing and marks the session terminal once it reaches a
// closed state. It returns nothing and leaves the wings' NextSeq unchanged.
func (s *Session) ApplyTCP(tcp *layers.TCP, fromClient bool) {
	role := roleServer
	if fromClient {
		role = roleClient
	}
	s.State = transition(s.State, tcp, role)
	if s.State.IsTerminal() {
		s.terminal = true
	}
}

// IsTerminal reports whether the session has reached a closed TCP state
// and is eligible for grace-tick removal.
func (s *Session) IsTerminal() bool { return s.terminal }

// Table is a session table shard: one per worker, keyed by 5-tuple. A
// worker never touches another worker's shard, per the engine's
// one-goroutine-per-shard concurrency model; Table itself adds no locking
// beyond what rcumap.Map already provides for the (rare) cross-worker
// inspection path (Range).
type Table struct {
	sessions *rcumap.Map[Key, *Session]
	nextID   uint32
	capacity int
}

// NewTable creates a session table shard with the given maximum live
// session capacity (0 means unbounded).
func NewTable(capacity int) *Table {
	return &Table{sessions: rcumap.New[Key, *Session](), capacity: capacity}
}

// Lookup finds the session for a decoded packet's 5-tuple and endpoint, if
// one already exists.
func (t *Table) Lookup(tok rcumap.Token, d *decode.Decoded, epMAC net.HardwareAddr) (*Session, bool) {
	return t.sessions.Lookup(tok, keyOf(d, epMAC))
}

// Acquire pins a read snapshot of the table.
func (t *Table) Acquire() (rcumap.Token, func()) { return t.sessions.Acquire() }

// CreateResult reports whether Create admitted a new session or rejected it
// for capacity.
type CreateResult uint8

// Create outcomes.
const (
	CreateOK CreateResult = iota
	CreateCapacityExceeded
)

// Create inserts a new session for a decoded packet's 5-tuple, or reports
// CreateCapacityExceeded if the shard is at capacity (the caller should
// then evict an LRU session or drop the new one, per spec.md's resource
// exhaustion policy).
func (t *Table) Create(d *decode.Decoded, epMAC net.HardwareAddr, now time.Time, ingress bool) (*Session, CreateResult) {
	if t.capacity > 0 && t.sessions.Len() >= t.capacity {
		return nil, CreateCapacityExceeded
	}

	t.nextID++
	flags := uint16(0)
	if ingress {
		flags |= FlagIngress
	}
	sess := &Session{
		ID:         t.nextID,
		Key:        keyOf(d, epMAC),
		EtherType:  uint16(d.EthernetType),
		Flags:      flags,
		CreatedAt:  now,
		LastActive: now,
		Client: Wing{
			IP:          d.SrcIP,
			MAC:         d.SrcMAC,
			Port:        d.SrcPort,
			Reassembler: decode.NewStreamReassembler(),
		},
		Server: Wing{
			IP:          d.DstIP,
			MAC:         d.DstMAC,
			Port:        d.DstPort,
			Reassembler: decode.NewStreamReassembler(),
		},
	}
	t.sessions.Add(sess.Key, sess)
	return sess, CreateOK
}

// Evict removes a session, recording why it was removed. The cleanup
// callback (if any) runs once no in-flight reader still holds a snapshot
// from before the evict, per the RCU grace-period discipline.
func (t *Table) Evict(key Key, cause EvictCause, onReclaim func(*Session, EvictCause)) {
	t.sessions.Remove(key, func(s *Session) {
		if onReclaim != nil {
			onReclaim(s, cause)
		}
	})
}

// Len reports the number of live sessions in this shard.
func (t *Table) Len() int { return t.sessions.Len() }

// Range iterates every live session under the given token (control-plane
// dump path).
func (t *Table) Range(tok rcumap.Token, fn func(*Session) bool) {
	t.sessions.Range(tok, func(_ Key, s *Session) bool { return fn(s) })
}
