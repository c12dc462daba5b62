// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package policy

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/segmentic/dpengine/internal/dpconfig"
)

func TestMatchExactDestPort(t *testing.T) {
	rule := dpconfig.PolicyRule{DstPort: 443, Proto: 6, Action: uint8(ActionAllow), Ingress: true}
	in := MatchInput{DstIP: net.ParseIP("10.0.0.5"), DstPort: 443, Proto: 6, Ingress: true}

	ok, action := Match(rule, in)
	assert.True(t, ok)
	assert.Equal(t, ActionAllow, action)
}

func TestMatchRejectsWrongProto(t *testing.T) {
	rule := dpconfig.PolicyRule{DstPort: 443, Proto: 6, Ingress: true}
	in := MatchInput{DstPort: 443, Proto: 17, Ingress: true}

	ok, _ := Match(rule, in)
	assert.False(t, ok)
}

func TestMatchPortRange(t *testing.T) {
	rule := dpconfig.PolicyRule{DstPort: 8000, PortHigh: 8100, Ingress: true}
	assert.True(t, matchPort(rule.DstPort, rule.PortHigh, 8050))
	assert.False(t, matchPort(rule.DstPort, rule.PortHigh, 9000))
}

func TestMatchFQDNWildcard(t *testing.T) {
	assert.True(t, matchFQDN("*.example.com", "api.example.com"))
	assert.True(t, matchFQDN("api.example.com", "api.example.com"))
	assert.False(t, matchFQDN("*.example.com", "example.com"))
	assert.False(t, matchFQDN("*.example.com", "api.other.com"))
}

func TestMatchVHUsesFQDNNotIP(t *testing.T) {
	rule := dpconfig.PolicyRule{VH: true, FQDN: "*.example.com", Ingress: false, Action: uint8(ActionAllow)}
	in := MatchInput{FQDN: "api.example.com", Ingress: false}

	ok, action := Match(rule, in)
	assert.True(t, ok)
	assert.Equal(t, ActionAllow, action)
}

func TestMatchAppSubRuleOverridesParentAction(t *testing.T) {
	rule := dpconfig.PolicyRule{
		Action:  uint8(ActionAllow),
		Ingress: true,
		AppRules: []dpconfig.AppRule{
			{App: 1001, Action: uint8(ActionDeny)},
		},
	}
	in := MatchInput{Ingress: true, App: 1001}

	ok, action := Match(rule, in)
	assert.True(t, ok)
	assert.Equal(t, ActionDeny, action)
}
