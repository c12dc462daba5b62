// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package endpoint

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segmentic/dpengine/internal/dpconfig"
)

func testMAC(t *testing.T) net.HardwareAddr {
	t.Helper()
	mac, err := net.ParseMAC("de:ad:be:ef:00:01")
	require.NoError(t, err)
	return mac
}

func TestRegistryInstallLookupRemove(t *testing.T) {
	r := NewRegistry()
	mac := testMAC(t)

	r.Install(dpconfig.EndpointInstall{MAC: mac, Iface: "eth0"}, time.Now())

	tok, release := r.Acquire()
	ep, ok := r.Lookup(tok, mac)
	require.True(t, ok)
	assert.Equal(t, "eth0", ep.Iface)
	release()

	r.Remove(mac)
	tok2, release2 := r.Acquire()
	defer release2()
	_, ok = r.Lookup(tok2, mac)
	assert.False(t, ok)
}

func TestRegistryInstallBumpsPolicyVerOnReplace(t *testing.T) {
	r := NewRegistry()
	mac := testMAC(t)

	first := r.Install(dpconfig.EndpointInstall{MAC: mac}, time.Now())
	assert.Equal(t, uint16(1), first.PolicyVer)

	second := r.Install(dpconfig.EndpointInstall{MAC: mac}, time.Now())
	assert.Equal(t, uint16(2), second.PolicyVer)

	otherMAC, err := net.ParseMAC("de:ad:be:ef:00:02")
	require.NoError(t, err)
	third := r.Install(dpconfig.EndpointInstall{MAC: otherMAC}, time.Now())
	assert.Equal(t, uint16(1), third.PolicyVer, "a fresh MAC starts over rather than inheriting another MAC's version")
}

func TestEndpointUpsertAppControllerWinsOverDataPlane(t *testing.T) {
	ep := NewEndpoint(dpconfig.EndpointInstall{}, time.Now())

	ep.UpsertApp(AppEntry{Port: 443, IPProto: 6, Application: 1001, Source: AppSourceController})
	ep.UpsertApp(AppEntry{Port: 443, IPProto: 6, Application: 9999, Source: AppSourceDataPlane})

	got, ok := ep.LookupApp(443, 6)
	require.True(t, ok)
	assert.Equal(t, uint16(1001), got.Application, "controller-sourced app entries must not be overwritten by data-plane discovery")
}

func TestEndpointUpsertAppDataPlaneOverwritesDataPlane(t *testing.T) {
	ep := NewEndpoint(dpconfig.EndpointInstall{}, time.Now())

	ep.UpsertApp(AppEntry{Port: 80, IPProto: 6, Application: 1, Source: AppSourceDataPlane})
	ep.UpsertApp(AppEntry{Port: 80, IPProto: 6, Application: 2, Source: AppSourceDataPlane})

	got, ok := ep.LookupApp(80, 6)
	require.True(t, ok)
	assert.Equal(t, uint16(2), got.Application)
}

func TestEndpointAppsSnapshot(t *testing.T) {
	ep := NewEndpoint(dpconfig.EndpointInstall{}, time.Now())
	ep.UpsertApp(AppEntry{Port: 80, IPProto: 6})
	ep.UpsertApp(AppEntry{Port: 443, IPProto: 6})

	assert.Len(t, ep.Apps(), 2)
}
