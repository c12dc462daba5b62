// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package pipeline

import (
	"bytes"
	"net"

	"github.com/segmentic/dpengine/internal/decode"
	"github.com/segmentic/dpengine/internal/endpoint"
)

// DirectionResolver computes a packet's direction relative to its
// endpoint. One strategy is selected per Mode at EP-lookup time so the hot
// path never branches on mode per packet, per the direction-resolution
// design note.
type DirectionResolver interface {
	Resolve(d *decode.Decoded, ep *endpoint.Endpoint) Direction
}

// Resolvers maps each capture mode to its resolver.
var Resolvers = map[Mode]DirectionResolver{
	ModeNonTC:     nonTCResolver{},
	ModeTC:        tcResolver{},
	ModeTAP:       tapResolver{},
	ModeProxyMesh: proxyMeshResolver{},
	ModeNFQ:       nfqResolver{},
}

func macEqual(a, b net.HardwareAddr) bool { return bytes.Equal(a, b) }

// nonTCResolver: source MAC matches the endpoint's own MAC -> egress
// (traffic leaving the workload); destination match -> ingress.
type nonTCResolver struct{}

func (nonTCResolver) Resolve(d *decode.Decoded, ep *endpoint.Endpoint) Direction {
	switch {
	case macEqual(d.SrcMAC, ep.MAC):
		return DirectionEgress
	case macEqual(d.DstMAC, ep.MAC):
		return DirectionIngress
	default:
		return DirectionUnknown
	}
}

// neuVPrefix is the locally-administered MAC prefix TC-mode veth pairs use
// for their host-side half, matching the source's "NeuV prefix" marker.
var neuVPrefix = []byte{0x02, 0x4e, 0x65, 0x75}

func hasNeuVPrefix(mac net.HardwareAddr) bool {
	return len(mac) >= len(neuVPrefix) && bytes.Equal(mac[:len(neuVPrefix)], neuVPrefix)
}

// tcResolver: source MAC carrying the NeuV prefix -> egress; destination
// carrying it -> ingress.
type tcResolver struct{}

func (tcResolver) Resolve(d *decode.Decoded, ep *endpoint.Endpoint) Direction {
	switch {
	case hasNeuVPrefix(d.SrcMAC):
		return DirectionEgress
	case hasNeuVPrefix(d.DstMAC):
		return DirectionIngress
	default:
		return DirectionUnknown
	}
}

// tapResolver: TAP mirrors both directions, so destination is checked
// first (matching the endpoint means traffic arriving at the workload).
type tapResolver struct{}

func (tapResolver) Resolve(d *decode.Decoded, ep *endpoint.Endpoint) Direction {
	switch {
	case macEqual(d.DstMAC, ep.MAC):
		return DirectionIngress
	case macEqual(d.SrcMAC, ep.MAC):
		return DirectionEgress
	default:
		return DirectionUnknown
	}
}

// AppMapHint looks up whether a port is a known listening port on the
// endpoint, used by the PROXYMESH and NFQ resolvers as their port
// heuristic.
func AppMapHint(ep *endpoint.Endpoint, port uint16, ipProto uint8) (listening bool) {
	entry, ok := ep.LookupApp(port, ipProto)
	return ok && entry.Listen
}

// proxyMeshResolver: loopback traffic where saddr==daddr is disambiguated
// by the app-map listening-port hint, falling back to a loopback
// destination implying ingress-to-lo.
type proxyMeshResolver struct{}

func (proxyMeshResolver) Resolve(d *decode.Decoded, ep *endpoint.Endpoint) Direction {
	if d.SrcIP.Equal(d.DstIP) {
		if AppMapHint(ep, d.DstPort, d.IPProto) {
			return DirectionIngress
		}
		if AppMapHint(ep, d.SrcPort, d.IPProto) {
			return DirectionEgress
		}
	}
	if d.DstIP.IsLoopback() {
		return DirectionIngress
	}
	return DirectionUnknown
}

// nfqResolver: if the endpoint's parent IPs (pips) match either side, use
// that match for direction; else fall back to the app-map listening-port
// hint; else dport<sport implies ingress (a client ephemeral port talking
// down to a well-known server port).
type nfqResolver struct{}

func (nfqResolver) Resolve(d *decode.Decoded, ep *endpoint.Endpoint) Direction {
	for _, pip := range ep.ParentIPs {
		switch {
		case pip.Equal(d.SrcIP):
			return DirectionEgress
		case pip.Equal(d.DstIP):
			return DirectionIngress
		}
	}
	if AppMapHint(ep, d.DstPort, d.IPProto) {
		return DirectionIngress
	}
	if AppMapHint(ep, d.SrcPort, d.IPProto) {
		return DirectionEgress
	}
	if d.DstPort < d.SrcPort {
		return DirectionIngress
	}
	return DirectionUnknown
}
