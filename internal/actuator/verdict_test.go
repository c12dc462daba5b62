// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package actuator

import (
	"testing"

	"github.com/segmentic/dpengine/internal/policy"
	"github.com/stretchr/testify/assert"
)

func TestDetermineThreatOutranksPolicy(t *testing.T) {
	v := Determine(policy.Decision{Action: policy.ActionAllow}, true)
	assert.Equal(t, ActionReset, v.Action)
}

func TestDetermineDenyResets(t *testing.T) {
	v := Determine(policy.Decision{Action: policy.ActionDeny, RuleID: 7}, false)
	assert.Equal(t, ActionReset, v.Action)
}

func TestDetermineViolateResets(t *testing.T) {
	v := Determine(policy.Decision{Action: policy.ActionViolate}, false)
	assert.Equal(t, ActionReset, v.Action)
}

func TestDetermineAllowForwards(t *testing.T) {
	v := Determine(policy.Decision{Action: policy.ActionAllow}, false)
	assert.Equal(t, ActionForward, v.Action)
}

func TestDetermineCheckActionsForwardPendingReevaluation(t *testing.T) {
	v := Determine(policy.Decision{Action: policy.ActionCheckApp}, false)
	assert.Equal(t, ActionForward, v.Action)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "forward", ActionForward.String())
	assert.Equal(t, "drop", ActionDrop.String())
	assert.Equal(t, "reset", ActionReset.String())
	assert.Equal(t, "nfqueue", ActionNFQueue.String())
}
