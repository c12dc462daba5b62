// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package endpoint implements the MAC-to-workload registry (C2): endpoint
// install/remove from the control plane, MAC lookup during packet intake,
// and the monotonic per-port application table each endpoint accumulates
// as the data plane observes traffic.
package endpoint

import (
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/segmentic/dpengine/internal/dpconfig"
	"github.com/segmentic/dpengine/internal/rcumap"
)

// AppSource records where an application-port mapping came from, matching
// APP_SRC_*.
type AppSource uint8

// Application sources.
const (
	AppSourceController AppSource = iota + 1
	AppSourceDataPlane
)

// AppEntry is one port's observed or configured service/application
// identity (io_app_t).
type AppEntry struct {
	Port        uint16
	IPProto     uint8
	Server      uint16
	Application uint16
	Version     string
	Listen      bool
	Source      AppSource
}

// appKey identifies an AppEntry within one endpoint's app table.
type appKey struct {
	Port    uint16
	IPProto uint8
}

// Endpoint is one installed workload: its interface, MAC identities,
// accumulated app table, and policy handle version. Handle is a stable
// process-lifetime identifier independent of MAC, used to correlate stats
// and threat events even if a MAC is reinstalled under a new endpoint.
type Endpoint struct {
	Handle      uuid.UUID
	MAC         net.HardwareAddr
	Iface       string
	Tap         bool
	NBE         bool
	ParentIPs   []net.IP
	Policy      dpconfig.EndpointPolicy
	PolicyVer   uint16
	InstalledAt time.Time

	apps *rcumap.Map[appKey, AppEntry]
}

// NewEndpoint constructs an Endpoint from a control-plane install record.
func NewEndpoint(install dpconfig.EndpointInstall, now time.Time) *Endpoint {
	return &Endpoint{
		Handle:      uuid.New(),
		MAC:         install.MAC,
		Iface:       install.Iface,
		Tap:         install.Tap,
		NBE:         install.NBE,
		ParentIPs:   install.ParentIPs,
		Policy:      install.Policy,
		InstalledAt: now,
		apps:        rcumap.New[appKey, AppEntry](),
	}
}

// UpsertApp records or overwrites the application identity observed (or
// configured) for a port/protocol pair. Controller-sourced entries are
// never overwritten by data-plane discovery, matching the monotonic
// "config wins" rule the original source applies to io_app_t.src.
func (e *Endpoint) UpsertApp(entry AppEntry) {
	key := appKey{Port: entry.Port, IPProto: entry.IPProto}
	tok, release := e.apps.Acquire()
	existing, ok := e.apps.Lookup(tok, key)
	release()
	if ok && existing.Source == AppSourceController && entry.Source == AppSourceDataPlane {
		return
	}
	e.apps.Add(key, entry)
}

// LookupApp returns the recorded application identity for a port/protocol
// pair, if any.
func (e *Endpoint) LookupApp(port uint16, ipProto uint8) (AppEntry, bool) {
	key := appKey{Port: port, IPProto: ipProto}
	tok, release := e.apps.Acquire()
	defer release()
	return e.apps.Lookup(tok, key)
}

// Apps returns a snapshot of every recorded application entry, used when
// building a DPMsgApp report for the control plane.
func (e *Endpoint) Apps() []AppEntry {
	tok, release := e.apps.Acquire()
	defer release()
	var out []AppEntry
	e.apps.Range(tok, func(_ appKey, v AppEntry) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Registry maps link-layer MAC addresses to their installed Endpoint.
// Install/Remove are invoked from the control-plane message loop; Lookup is
// on the per-packet hot path and must never block behind a writer for more
// than a map-swap.
type Registry struct {
	byMAC *rcumap.Map[string, *Endpoint]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMAC: rcumap.New[string, *Endpoint]()}
}

func macKey(mac net.HardwareAddr) string { return string(mac) }

// Install registers (or replaces) the endpoint for a MAC address. PolicyVer
// starts at 1 for a new MAC and advances on every replacement, so sessions
// created under the prior install see their cached policy decision as
// stale and re-evaluate (§4.4: "reuse unless ep.policy_ver advanced").
func (r *Registry) Install(install dpconfig.EndpointInstall, now time.Time) *Endpoint {
	ep := NewEndpoint(install, now)

	tok, release := r.byMAC.Acquire()
	existing, replaced := r.byMAC.Lookup(tok, macKey(install.MAC))
	release()
	if replaced {
		ep.PolicyVer = existing.PolicyVer + 1
	} else {
		ep.PolicyVer = 1
	}

	r.byMAC.Add(macKey(install.MAC), ep)
	return ep
}

// Remove deregisters the endpoint for a MAC address at once: later Lookups
// miss it, even under a Token acquired before the remove. A reader that
// already holds the *Endpoint keeps a usable value.
func (r *Registry) Remove(mac net.HardwareAddr) {
	r.byMAC.Remove(macKey(mac), nil)
}

// Lookup resolves the endpoint owning mac, if installed.
func (r *Registry) Lookup(tok rcumap.Token, mac net.HardwareAddr) (*Endpoint, bool) {
	return r.byMAC.Lookup(tok, macKey(mac))
}

// Acquire pins a read snapshot of the registry for the duration of one
// packet's processing.
func (r *Registry) Acquire() (rcumap.Token, func()) {
	return r.byMAC.Acquire()
}

// Len reports the number of installed endpoints.
func (r *Registry) Len() int { return r.byMAC.Len() }
