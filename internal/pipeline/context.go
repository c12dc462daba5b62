// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package pipeline implements the per-packet orchestrator (C10): the
// eleven-step contract that takes a raw frame from the IO layer to a
// forward/drop/reset verdict.
package pipeline

import (
	"net"
	"time"

	"github.com/segmentic/dpengine/internal/decode"
	"github.com/segmentic/dpengine/internal/dpconfig"
	"github.com/segmentic/dpengine/internal/endpoint"
	"github.com/segmentic/dpengine/internal/session"
)

// Mode is the capture mode a packet arrived under, selecting which
// DirectionResolver strategy applies.
type Mode uint8

const (
	ModeNonTC Mode = iota
	ModeTC
	ModeTAP
	ModeProxyMesh
	ModeNFQ
)

// Direction is the resolved flow direction relative to the endpoint.
type Direction uint8

const (
	DirectionUnknown Direction = iota
	DirectionIngress
	DirectionEgress
)

// ConfigSnapshot is the read-mostly control-plane state a packet is
// evaluated against, captured once per packet at step 2 of the contract so
// the rest of the pipeline sees a consistent view even if the control
// plane publishes an update mid-packet.
type ConfigSnapshot struct {
	InternalSubnets   []dpconfig.Subnet4
	SpecialSubnets    []dpconfig.SpecialSubnet
	PolicyAddrs       []net.IP
	XFFEnabled        bool
	NetPolicyDisabled bool
	DetectUnmanaged   bool
}

// PacketCtx carries one packet's state through the pipeline's steps. Each
// step mutates the fields it owns and leaves the rest untouched.
type PacketCtx struct {
	Raw    []byte
	Now    time.Time
	Mode   Mode
	Decoded *decode.Decoded
	EP        *endpoint.Endpoint
	EPAcquired bool
	Direction Direction
	Config    ConfigSnapshot
	Session   *session.Session
	SessionCreated bool
	InspectionDisabled bool
	ThreatActive bool
	Exit      ExitReason
}

// ExitReason records why the pipeline stopped early, for logging and
// metrics; ExitNone means the packet ran the full eleven steps.
type ExitReason uint8

const (
	ExitNone ExitReason = iota
	ExitBroadcastForwarded
	ExitNoEndpoint
	ExitDecodeDrop
	ExitFragmentHeld
)
