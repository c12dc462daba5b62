// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package pipeline

import (
	"net"
	"testing"
	"time"

	"github.com/segmentic/dpengine/internal/decode"
	"github.com/segmentic/dpengine/internal/dpconfig"
	"github.com/segmentic/dpengine/internal/endpoint"
	"github.com/stretchr/testify/assert"
)

func testEndpoint(mac net.HardwareAddr) *endpoint.Endpoint {
	return endpoint.NewEndpoint(dpconfig.EndpointInstall{MAC: mac}, time.Unix(0, 0))
}

func TestNonTCResolverEgressOnSourceMatch(t *testing.T) {
	mac := net.HardwareAddr{1, 2, 3, 4, 5, 6}
	ep := testEndpoint(mac)
	d := &decode.Decoded{SrcMAC: mac, DstMAC: net.HardwareAddr{9, 9, 9, 9, 9, 9}}
	assert.Equal(t, DirectionEgress, nonTCResolver{}.Resolve(d, ep))
}

func TestNonTCResolverIngressOnDestMatch(t *testing.T) {
	mac := net.HardwareAddr{1, 2, 3, 4, 5, 6}
	ep := testEndpoint(mac)
	d := &decode.Decoded{SrcMAC: net.HardwareAddr{9, 9, 9, 9, 9, 9}, DstMAC: mac}
	assert.Equal(t, DirectionIngress, nonTCResolver{}.Resolve(d, ep))
}

func TestTCResolverUsesNeuVPrefix(t *testing.T) {
	ep := testEndpoint(net.HardwareAddr{0, 0, 0, 0, 0, 0})
	d := &decode.Decoded{
		SrcMAC: net.HardwareAddr{0x02, 0x4e, 0x65, 0x75, 0, 1},
		DstMAC: net.HardwareAddr{9, 9, 9, 9, 9, 9},
	}
	assert.Equal(t, DirectionEgress, tcResolver{}.Resolve(d, ep))
}

func TestTAPResolverChecksDestFirst(t *testing.T) {
	mac := net.HardwareAddr{1, 2, 3, 4, 5, 6}
	ep := testEndpoint(mac)
	d := &decode.Decoded{SrcMAC: mac, DstMAC: mac}
	assert.Equal(t, DirectionIngress, tapResolver{}.Resolve(d, ep))
}

func TestProxyMeshResolverLoopbackFallback(t *testing.T) {
	ep := testEndpoint(net.HardwareAddr{0, 0, 0, 0, 0, 0})
	d := &decode.Decoded{SrcIP: net.ParseIP("10.0.0.1"), DstIP: net.ParseIP("127.0.0.1")}
	assert.Equal(t, DirectionIngress, proxyMeshResolver{}.Resolve(d, ep))
}

func TestProxyMeshResolverSameAddrUsesAppMapHint(t *testing.T) {
	ep := testEndpoint(net.HardwareAddr{0, 0, 0, 0, 0, 0})
	ep.UpsertApp(endpoint.AppEntry{Port: 443, IPProto: 6, Listen: true, Source: endpoint.AppSourceController})
	ip := net.ParseIP("127.0.0.2")
	d := &decode.Decoded{SrcIP: ip, DstIP: ip, DstPort: 443, IPProto: 6}
	assert.Equal(t, DirectionIngress, proxyMeshResolver{}.Resolve(d, ep))
}

func TestNFQResolverUsesParentIPs(t *testing.T) {
	pip := net.ParseIP("172.16.0.5")
	ep := testEndpoint(net.HardwareAddr{0, 0, 0, 0, 0, 0})
	ep.ParentIPs = []net.IP{pip}
	d := &decode.Decoded{SrcIP: pip, DstIP: net.ParseIP("8.8.8.8")}
	assert.Equal(t, DirectionEgress, nfqResolver{}.Resolve(d, ep))
}

func TestNFQResolverFallsBackToPortHeuristic(t *testing.T) {
	ep := testEndpoint(net.HardwareAddr{0, 0, 0, 0, 0, 0})
	d := &decode.Decoded{SrcIP: net.ParseIP("1.1.1.1"), DstIP: net.ParseIP("2.2.2.2"), SrcPort: 55000, DstPort: 443}
	assert.Equal(t, DirectionIngress, nfqResolver{}.Resolve(d, ep))
}
