// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package dpconfig decodes the control-plane's engine configuration: the
// per-endpoint install blob, policy rule sets, FQDN seed mappings, and the
// internal/special subnet lists used to classify peers that never get an
// endpoint installed (tunnel, service, host, device, unmanaged-workload,
// external). The control plane ships these as a JSON snapshot; an optional
// on-disk YAML file supplies local engine defaults for the `-c` CLI flag.
package dpconfig

import (
	"encoding/json"
	"net"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/segmentic/dpengine/internal/errors"
)

// SpecialIPType classifies an IPv4 address that has no installed endpoint,
// matching DP_IPTYPE_*.
type SpecialIPType uint8

// Special IP type values.
const (
	IPTypeNone SpecialIPType = iota
	IPTypeTunnel
	IPTypeService
	IPTypeHost
	IPTypeDevice
	IPTypeUnmanagedWorkload
	IPTypeExternal
)

// Subnet4 is a plain IPv4 CIDR block used for the internal/ProxyMesh parent
// lists.
type Subnet4 struct {
	Net *net.IPNet
}

// MarshalJSON renders the subnet in CIDR notation.
func (s Subnet4) MarshalJSON() ([]byte, error) {
	if s.Net == nil {
		return json.Marshal("")
	}
	return json.Marshal(s.Net.String())
}

// UnmarshalJSON parses a CIDR string into the subnet.
func (s *Subnet4) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	if str == "" {
		s.Net = nil
		return nil
	}
	_, ipnet, err := net.ParseCIDR(str)
	if err != nil {
		return errors.Wrapf(err, errors.KindValidation, "dpconfig: invalid subnet %q", str)
	}
	s.Net = ipnet
	return nil
}

// Contains reports whether ip falls within the subnet.
func (s Subnet4) Contains(ip net.IP) bool {
	return s.Net != nil && s.Net.Contains(ip)
}

// SpecialSubnet pairs a subnet with the peer classification it implies when
// no endpoint matches the packet's address.
type SpecialSubnet struct {
	Subnet Subnet4       `json:"subnet"`
	Type   SpecialIPType `json:"type"`
}

// AppRule is dpi_policy_app_rule_t: a sub-rule matching on identified
// application within a parent policy rule.
type AppRule struct {
	RuleID uint32 `json:"ruleId"`
	App    uint32 `json:"app"`
	Action uint8  `json:"action"`
}

// PolicyRule is dpi_policy_rule_t: one per-endpoint policy entry. Rules are
// evaluated in list order; the first match wins.
type PolicyRule struct {
	ID       uint32    `json:"id"`
	SrcIP    net.IP    `json:"srcIp"`
	SrcRange net.IP    `json:"srcRange"` // upper bound of an IP range; zero value means exact match on SrcIP
	DstIP    net.IP    `json:"dstIp"`
	DstRange net.IP    `json:"dstRange"`
	DstPort  uint16    `json:"dstPort"`
	PortHigh uint16    `json:"portHigh"` // upper bound of a port range; equal to DstPort means a single port
	Proto    uint16    `json:"proto"`
	Action   uint8     `json:"action"` // DP_POLICY_ACTION_*
	Ingress  bool      `json:"ingress"`
	VH       bool      `json:"vh"` // virtual-host: resolve via FQDN rather than IP
	FQDN     string    `json:"fqdn"`
	AppRules []AppRule `json:"appRules"`
}

// EndpointPolicy is the policy handle the control plane installs for one
// endpoint: its rule set, default action, and the direction(s) it applies
// to (DP_POLICY_APPLY_EGRESS / DP_POLICY_APPLY_INGRESS).
type EndpointPolicy struct {
	DefaultAction uint8        `json:"defaultAction"`
	ApplyDir      uint8        `json:"applyDir"`
	Rules         []PolicyRule `json:"rules"`
}

// EndpointInstall is the control plane's install record for one endpoint
// (io_ep_t, trimmed to the fields the data plane itself consumes — the
// DLP/WAF detector handles and ProxyMesh lineflow bookkeeping belong to the
// external inspection engines this module doesn't implement).
type EndpointInstall struct {
	MAC       net.HardwareAddr `json:"mac"`
	Iface     string           `json:"iface"`
	Tap       bool             `json:"tap"`
	NBE       bool             `json:"nbe"` // namespace-boundary endpoint
	ParentIPs []net.IP         `json:"parentIps"` // ProxyMesh parent IP list
	Policy    EndpointPolicy   `json:"policy"`
}

// UnmarshalJSON reads the MAC in its colon-separated text form.
func (e *EndpointInstall) UnmarshalJSON(b []byte) error {
	type plain EndpointInstall
	aux := struct {
		*plain
		MAC string `json:"mac"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(b, &aux); err != nil || aux.MAC == "" {
		return err
	}
	mac, err := net.ParseMAC(aux.MAC)
	if err != nil {
		return errors.Wrapf(err, errors.KindValidation, "dpconfig: invalid mac %q", aux.MAC)
	}
	e.MAC = mac
	return nil
}

// FQDNSeed is one name->IP mapping the control plane preloads into the
// resolver at startup, ahead of any live DNS observation.
type FQDNSeed struct {
	Name string   `json:"name"`
	IPs  []net.IP `json:"ips"`
	VH   bool     `json:"vh"`
}

// Snapshot is the full control-plane configuration payload: every installed
// endpoint, the internal/special subnet classification lists, and FQDN
// seed mappings. The control plane sends this as one JSON document; it
// replaces rather than merges with any prior snapshot.
type Snapshot struct {
	Endpoints      []EndpointInstall `json:"endpoints"`
	InternalSubnet []Subnet4         `json:"internalSubnets"` // ProxyMesh/NBE internal address space
	SpecialSubnets []SpecialSubnet   `json:"specialSubnets"`
	FQDNSeeds      []FQDNSeed        `json:"fqdnSeeds"`
}

// DecodeSnapshot parses a control-plane JSON snapshot.
func DecodeSnapshot(r []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(r, &snap); err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "dpconfig: decode snapshot")
	}
	return &snap, nil
}

// EngineConfig is the engine's own startup configuration, read from the
// optional `-c` YAML file. Unlike Snapshot (pushed live by the control
// plane), this covers local engine tuning that doesn't change at runtime.
type EngineConfig struct {
	LogLevel           string `yaml:"logLevel"`
	DebugMask          uint32 `yaml:"debugMask"`
	WorkerCount        int    `yaml:"workerCount"`
	SessionIdleTimeout int    `yaml:"sessionIdleTimeoutSeconds"`
	EnableChecksum     bool   `yaml:"enableChecksumValidation"`
	Promiscuous        bool   `yaml:"promiscuous"`
	ThreatSSLTLS10     bool   `yaml:"threatOnSSLTLS1_0"`
	ThreatSSLTLS11     bool   `yaml:"threatOnSSLTLS1_1"`
}

// DefaultEngineConfig returns the engine defaults used when no `-c` file is
// given.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		LogLevel:           "info",
		WorkerCount:        4,
		SessionIdleTimeout: 600,
		EnableChecksum:     true,
	}
}

// LoadEngineConfig reads and parses a YAML engine config file.
func LoadEngineConfig(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, errors.KindUnavailable, "dpconfig: read %s", path)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, errors.KindValidation, "dpconfig: parse %s", path)
	}
	return cfg, nil
}
