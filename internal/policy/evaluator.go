// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package policy

import "github.com/segmentic/dpengine/internal/dpconfig"

// Decision is the evaluator's verdict for one packet: the action to apply
// and the rule that produced it (zero RuleID means the endpoint's default
// action, no rule matched).
type Decision struct {
	Action Action
	RuleID uint32
}

// Evaluate scans an endpoint's policy rules in order and returns the first
// match's action, falling through to the endpoint's configured default
// action when nothing matches — mirroring the first-match-wins,
// default-deny-capable evaluation the source's dpi_policy_t describes.
//
// CHECK_NBE / NBE_SNS interaction: a rule whose matched action is
// ActionCheckNBE is treated identically to ActionCheckApp here — the
// decision is provisional and must be re-evaluated once the session's
// namespace-boundary-endpoint flag is known, the same invalidation path
// already used for application-dependent rules. This mirrors the
// conservative reading of an open question the upstream design left
// unresolved: whether NBE resolution should gate independently of app
// identification. Until that's confirmed, both share one cache-invalidation
// trigger.
func Evaluate(policy dpconfig.EndpointPolicy, in MatchInput) Decision {
	for _, rule := range policy.Rules {
		if ok, action := Match(rule, in); ok {
			return Decision{Action: action, RuleID: rule.ID}
		}
	}
	return Decision{Action: Action(policy.DefaultAction)}
}

// NeedsReevaluation reports whether a cached decision must be recomputed
// once additional context (application identity, NBE membership) becomes
// available.
func (d Decision) NeedsReevaluation() bool {
	return d.Action == ActionCheckApp || d.Action == ActionCheckNBE || d.Action == ActionCheckVH
}
