// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package pipeline

import (
	"context"
	"time"

	"github.com/segmentic/dpengine/internal/actuator"
	"github.com/segmentic/dpengine/internal/decode"
	"github.com/segmentic/dpengine/internal/dpi"
	"github.com/segmentic/dpengine/internal/endpoint"
	"github.com/segmentic/dpengine/internal/fqdn"
	"github.com/segmentic/dpengine/internal/policy"
	"github.com/segmentic/dpengine/internal/rcumap"
	"github.com/segmentic/dpengine/internal/session"
	"github.com/segmentic/dpengine/internal/stats"
)

// Pipeline runs the eleven-step per-packet contract against one worker's
// session table shard, endpoint registry, FQDN resolver, and metrics set.
// A Pipeline is owned by exactly one worker goroutine; it holds no locks
// of its own beyond the RCU tokens it pins for the duration of one
// packet, matching the "per-session state is owned exclusively by its
// worker" resource policy.
type Pipeline struct {
	Registry    *endpoint.Registry
	Table       *session.Table
	FQDN        *fqdn.Resolver
	Dispatcher  *dpi.Dispatcher
	Fragments   *decode.FragmentTracker
	Metrics     *stats.Metrics
	Mode        Mode
	Promiscuous bool
}

// Process runs a raw frame through the full eleven-step contract and
// returns the resulting verdict.
func (p *Pipeline) Process(ctx context.Context, raw []byte, now time.Time, cfg ConfigSnapshot) actuator.Verdict {
	pctx := &PacketCtx{Raw: raw, Now: now, Mode: p.Mode, Config: cfg}

	// Step 1: enter an RCU read section.
	epTok, epRelease := p.Registry.Acquire()
	defer epRelease()
	tableTok, tableRelease := p.Table.Acquire()
	defer tableRelease()

	// Step 2: snapshot policy config pointers — already captured in cfg by
	// the caller before Process was invoked, so every step below sees one
	// consistent view even if the control plane republishes mid-packet.

	select {
	case <-ctx.Done():
		return actuator.Verdict{Action: actuator.ActionDrop, Reason: "pipeline cancelled"}
	default:
	}

	// Step 3: parse L2. Broadcast/multicast in non-TC mode forwards raw.
	decoded := decode.Decode(raw)
	pctx.Decoded = decoded
	if p.Mode != ModeTC && (isBroadcast(decoded.DstMAC) || isMulticast(decoded.DstMAC)) {
		pctx.Exit = ExitBroadcastForwarded
		return p.verdictFor(pctx)
	}

	// Step 4: determine mode, resolve EP.
	ep, found := p.resolveEndpoint(epTok, decoded)
	if !found {
		if !p.Promiscuous {
			pctx.Exit = ExitNoEndpoint
			return p.verdictFor(pctx)
		}
	}
	pctx.EP = ep
	pctx.EPAcquired = ep != nil

	// Step 5: decode L3/L4, handling fragments.
	if decoded.IsFragment() {
		payload, result := p.Fragments.Insert(decoded)
		switch result {
		case decode.FragmentHeld:
			pctx.Exit = ExitFragmentHeld
			return p.verdictFor(pctx)
		case decode.FragmentOverlapDropped, decode.FragmentOverflowDropped:
			pctx.Exit = ExitDecodeDrop
			return p.verdictFor(pctx)
		case decode.FragmentReassembled:
			decoded = decode.Decode(payload)
			pctx.Decoded = decoded
		}
	}
	if decoded.Transport == decode.TransportNone && decoded.IPProto != 0 {
		pctx.Exit = ExitDecodeDrop
		return p.verdictFor(pctx)
	}

	// Step 6: compute direction.
	if ep != nil {
		if resolver, ok := Resolvers[p.Mode]; ok {
			pctx.Direction = resolver.Resolve(decoded, ep)
		}
	}

	// Step 7: increment the running packet and byte counters. No stats
	// slot is advanced here, and the worker's ticker does not advance one
	// either.
	if p.Metrics != nil {
		p.Metrics.PacketsProcessed.Inc()
		p.Metrics.BytesProcessed.Add(float64(len(raw)))
	}

	// Step 8: locate/create session. Skip parser dispatch when inspection
	// is disabled (the decoder found no transport layer).
	pctx.InspectionDisabled = decoded.Transport == decode.TransportNone
	epMAC := decoded.DstMAC
	if ep != nil {
		epMAC = ep.MAC
	}
	sess, ok := p.Table.Lookup(tableTok, decoded, epMAC)
	if !ok {
		created, result := p.Table.Create(decoded, epMAC, now, pctx.Direction == DirectionIngress)
		if result == session.CreateCapacityExceeded {
			pctx.Exit = ExitDecodeDrop
			return p.verdictFor(pctx)
		}
		sess = created
		pctx.SessionCreated = true
		if p.Metrics != nil {
			p.Metrics.SessionsTotal.Inc()
		}
	}
	if decoded.TCP != nil {
		sess.ApplyTCP(decoded.TCP, pctx.Direction != DirectionIngress)
	}
	sess.Touch(now)
	if ep != nil && ep.Tap {
		sess.Flags |= session.FlagTap
	}
	pctx.Session = sess

	// Step 9: dispatch parser, update app-map as a side effect.
	if !pctx.InspectionDisabled && ep != nil {
		p.dispatchParser(pctx, decoded, ep, sess)
	}

	// Step 10: evaluate policy, honoring the cached result.
	// Step 11: translate action -> actuator call happens in verdictFor,
	// which also closes out the RCU section by virtue of the deferred
	// releases above running on return.
	return p.verdictFor(pctx)
}

func (p *Pipeline) resolveEndpoint(tok rcumap.Token, d *decode.Decoded) (*endpoint.Endpoint, bool) {
	if ep, ok := p.Registry.Lookup(tok, d.SrcMAC); ok {
		return ep, true
	}
	return p.Registry.Lookup(tok, d.DstMAC)
}

func (p *Pipeline) dispatchParser(pctx *PacketCtx, d *decode.Decoded, ep *endpoint.Endpoint, sess *session.Session) {
	kind, ok := p.Dispatcher.Classify(d.IPProto, d.DstPort, d.Payload)
	if !ok {
		return
	}
	parser := dpi.New(kind)
	cb := dpi.Callbacks{
		SetApp: func(server, app dpi.Application) {
			sess.Application = uint16(app)
			ep.UpsertApp(endpoint.AppEntry{
				Port: d.DstPort, IPProto: d.IPProto,
				Server: uint16(server), Application: uint16(app),
				Source: endpoint.AppSourceDataPlane,
			})
		},
		RaiseSNI: func(name string) {
			p.FQDN.RecordReverse(d.DstIP, name, pctx.Now)
		},
		Threat: func(t dpi.Threat) {
			pctx.ThreatActive = true
			if p.Metrics != nil {
				p.Metrics.ThreatsRaised.WithLabelValues(t.ID).Inc()
			}
		},
	}
	parser.Feed(d.Payload, pctx.Direction == DirectionEgress, cb)
}

func (p *Pipeline) verdictFor(pctx *PacketCtx) actuator.Verdict {
	switch pctx.Exit {
	case ExitBroadcastForwarded:
		return actuator.Verdict{Action: actuator.ActionForward, Reason: "broadcast/multicast"}
	case ExitNoEndpoint:
		return actuator.Verdict{Action: actuator.ActionForward, Reason: "no endpoint, promiscuous disabled"}
	case ExitDecodeDrop:
		return actuator.Verdict{Action: actuator.ActionDrop, Reason: "decode-level drop"}
	case ExitFragmentHeld:
		return actuator.Verdict{Action: actuator.ActionForward, Reason: "fragment held pending reassembly"}
	}
	if pctx.Session == nil || pctx.EP == nil {
		return actuator.Verdict{Action: actuator.ActionForward, Reason: "no policy context"}
	}

	decision := p.decisionFor(pctx)
	v := actuator.Determine(decision, pctx.ThreatActive)

	// TAP is observe-only: neither drop nor reset is ever emitted, matching
	// "for TAP sessions, no RST is ever emitted" and the wider "TAP mode —
	// observe-only" design note.
	if pctx.Session.Flags&session.FlagTap != 0 {
		if v.Action == actuator.ActionReset || v.Action == actuator.ActionDrop {
			return actuator.Verdict{Action: actuator.ActionForward, Reason: "tap session is observe-only"}
		}
		return v
	}

	if v.Action != actuator.ActionReset {
		return v
	}

	// inject_reset is a no-op for PROXYMESH sessions; fall back to a plain
	// drop instead of constructing a frame nobody should see.
	if pctx.Mode == ModeProxyMesh {
		v.Action = actuator.ActionDrop
		v.Reason = "reset suppressed for proxymesh session"
		return v
	}

	toClient, toServer, err := buildSessionResets(pctx.EP, pctx.Session)
	if err != nil {
		v.Action = actuator.ActionDrop
		v.Reason = "reset construction failed: " + err.Error()
		return v
	}
	v.ResetToClient = toClient
	v.ResetToServer = toServer
	return v
}

// decisionFor reuses the session's cached policy decision when it was
// evaluated under the endpoint's current policy version and doesn't need
// re-evaluation, matching §4.4's "store (rule_id, action, policy_ver) ...
// reuse unless ep.policy_ver advanced." Any other case re-evaluates and
// refreshes the cache.
func (p *Pipeline) decisionFor(pctx *PacketCtx) policy.Decision {
	sess := pctx.Session
	ep := pctx.EP

	if sess.Policy.Evaluated && sess.Policy.Version == ep.PolicyVer {
		cached := policy.Decision{Action: policy.Action(sess.Policy.Action), RuleID: sess.Policy.RuleID}
		if !cached.NeedsReevaluation() {
			return cached
		}
	}

	decision := policy.Evaluate(ep.Policy, matchInput(p, pctx))
	sess.Policy = session.PolicyCache{
		RuleID:    decision.RuleID,
		Version:   ep.PolicyVer,
		Action:    uint8(decision.Action),
		Evaluated: true,
	}
	return decision
}

// buildSessionResets constructs the reset frames for both wings of a
// session, matching "MACs are taken from the EP's unicast alias and the
// session's peer wing": the endpoint's own interface MAC is the spoofed
// source for both directions, since both frames are injected from the same
// capture point, while the destination MAC, IP, and port are the real peer
// wing being torn down.
func buildSessionResets(ep *endpoint.Endpoint, sess *session.Session) (toClient, toServer []byte, err error) {
	client := actuator.ResetTarget{
		SrcMAC: ep.MAC, DstMAC: sess.Client.MAC,
		SrcIP: sess.Client.IP, DstIP: sess.Client.IP,
		SrcPort: sess.Client.Port, DstPort: sess.Client.Port,
		Seq: sess.Client.NextSeq,
	}
	server := actuator.ResetTarget{
		SrcMAC: ep.MAC, DstMAC: sess.Server.MAC,
		SrcIP: sess.Server.IP, DstIP: sess.Server.IP,
		SrcPort: sess.Server.Port, DstPort: sess.Server.Port,
		Seq: sess.Server.NextSeq,
	}
	return actuator.BuildResetPair(client, server)
}

func matchInput(p *Pipeline, pctx *PacketCtx) policy.MatchInput {
	d := pctx.Decoded
	in := policy.MatchInput{
		SrcIP:   d.SrcIP,
		DstIP:   d.DstIP,
		DstPort: d.DstPort,
		Proto:   uint16(d.IPProto),
		Ingress: pctx.Direction == DirectionIngress,
		App:     uint32(pctx.Session.Application),
	}
	if name, ok := p.FQDN.LookupReverse(d.DstIP, pctx.Now); ok {
		in.FQDN = name
	}
	return in
}

func isBroadcast(mac []byte) bool {
	for _, b := range mac {
		if b != 0xff {
			return false
		}
	}
	return len(mac) > 0
}

func isMulticast(mac []byte) bool {
	return len(mac) > 0 && mac[0]&0x01 == 1
}
