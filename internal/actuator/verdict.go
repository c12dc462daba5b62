// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package actuator implements the actuator (C9): translating a policy
// decision into a verdict the IO layer applies to the packet, and building
// the TCP reset frames used to tear down a violating session.
package actuator

import (
	"fmt"
	"time"

	"github.com/segmentic/dpengine/internal/policy"
)

// Action is the verdict applied to a packet, matching the source's
// verdict/action surface generalized from the kernel-offload vocabulary to
// the data plane's forward/drop/reset set.
type Action int

const (
	ActionForward Action = iota
	ActionDrop
	ActionReset
	ActionNFQueue
)

func (a Action) String() string {
	switch a {
	case ActionForward:
		return "forward"
	case ActionDrop:
		return "drop"
	case ActionReset:
		return "reset"
	case ActionNFQueue:
		return "nfqueue"
	default:
		return "unknown"
	}
}

// Verdict is the result of applying a policy decision to one packet.
// ResetToClient/ResetToServer are populated only for ActionReset: the two
// wire-ready RST frames the IO layer should inject, one spoofed toward
// each wing.
type Verdict struct {
	Action        Action
	Reason        string
	ProcessTime   time.Duration
	ResetToClient []byte
	ResetToServer []byte
}

// Determine turns a policy decision plus the parser's threat state into a
// verdict. Priority mirrors determineAction: an active threat (pattern
// match, in the source's vocabulary) outranks the plain policy action,
// which outranks the endpoint's default action.
func Determine(decision policy.Decision, threatActive bool) Verdict {
	start := time.Now()
	v := Verdict{ProcessTime: time.Since(start)}

	if threatActive {
		v.Action = ActionReset
		v.Reason = "threat raised by parser"
		return v
	}

	switch decision.Action {
	case policy.ActionDeny, policy.ActionViolate:
		v.Action = ActionReset
		v.Reason = fmt.Sprintf("policy rule %d: action %d", decision.RuleID, decision.Action)
	case policy.ActionOpen, policy.ActionAllow:
		v.Action = ActionForward
		v.Reason = fmt.Sprintf("policy rule %d: action %d", decision.RuleID, decision.Action)
	case policy.ActionCheckVH, policy.ActionCheckApp, policy.ActionCheckNBE:
		v.Action = ActionForward
		v.Reason = fmt.Sprintf("policy rule %d: pending re-evaluation", decision.RuleID)
	default:
		v.Action = ActionDrop
		v.Reason = "unrecognized policy action"
	}
	return v
}
