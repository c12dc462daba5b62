// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package policy implements the policy evaluator (C6): per-endpoint
// first-match rule scanning over 5-tuple, identified application, and
// FQDN, producing the action enum the actuator enforces.
package policy

import (
	"net"

	"github.com/segmentic/dpengine/internal/dpconfig"
)

// Action mirrors DP_POLICY_ACTION_*.
type Action uint8

// Policy actions.
const (
	ActionOpen Action = iota
	_                 // ActionLearn removed upstream; kept as a gap so the remaining values stay numerically aligned
	ActionAllow
	ActionCheckVH
	ActionCheckNBE
	ActionCheckApp
	ActionViolate
	ActionDeny
)

// AnyApp and UnknownApp mirror DP_POLICY_APP_ANY / DP_POLICY_APP_UNKNOWN.
const (
	AnyApp     uint32 = 0
	UnknownApp uint32 = 0xffffffff
)

// MatchInput is the 5-tuple plus identified-application context a rule is
// matched against.
type MatchInput struct {
	SrcIP   net.IP
	DstIP   net.IP
	DstPort uint16
	Proto   uint16
	Ingress bool
	App     uint32
	FQDN    string // resolved name for the destination IP, if any
}

// matchIP reports whether ip falls within [lo, hi] when hi is set, or
// equals lo exactly when hi is unset (zero-length).
func matchIP(lo, hi, ip net.IP) bool {
	if len(lo) == 0 {
		return true
	}
	if len(hi) == 0 {
		return lo.Equal(ip)
	}
	return ipInRange(ip, lo, hi)
}

func ipInRange(ip, lo, hi net.IP) bool {
	a, b, c := ip.To4(), lo.To4(), hi.To4()
	if a == nil || b == nil || c == nil {
		return false
	}
	return bytesCompare(a, b) >= 0 && bytesCompare(a, c) <= 0
}

func bytesCompare(a, b []byte) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func matchPort(lo, hi, port uint16) bool {
	if lo == 0 && hi == 0 {
		return true
	}
	if hi == 0 || hi == lo {
		return lo == port
	}
	return port >= lo && port <= hi
}

func matchProto(ruleProto uint16, proto uint16) bool {
	return ruleProto == 0 || ruleProto == proto
}

// Match reports whether rule applies to in, and if so which action (after
// resolving any per-application sub-rules).
func Match(rule dpconfig.PolicyRule, in MatchInput) (matched bool, action Action) {
	if rule.Ingress != in.Ingress {
		return false, 0
	}
	if !matchProto(rule.Proto, in.Proto) {
		return false, 0
	}
	if !matchIP(rule.SrcIP, rule.SrcRange, in.SrcIP) {
		return false, 0
	}
	if rule.VH {
		if rule.FQDN == "" || !matchFQDN(rule.FQDN, in.FQDN) {
			return false, 0
		}
	} else if !matchIP(rule.DstIP, rule.DstRange, in.DstIP) {
		return false, 0
	}
	if !matchPort(rule.DstPort, rule.PortHigh, in.DstPort) {
		return false, 0
	}

	action = Action(rule.Action)
	for _, ar := range rule.AppRules {
		if ar.App == AnyApp || ar.App == in.App {
			action = Action(ar.Action)
			break
		}
	}
	return true, action
}

// matchFQDN supports a single leading-wildcard label ("*.example.com"),
// matching the resolver's wildcard-suffix convention.
func matchFQDN(rulePattern, name string) bool {
	if rulePattern == name {
		return true
	}
	if len(rulePattern) > 2 && rulePattern[:2] == "*." {
		suffix := rulePattern[1:] // ".example.com"
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}
