// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package decode implements the L2-L4 packet decoder (C3): Ethernet/IPv4/
// IPv6/TCP/UDP/ICMP layer parsing via gopacket, IPv4 fragment reassembly,
// and per-direction TCP byte-stream reassembly feeding the DPI layer.
package decode

import (
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// Transport identifies the L4 protocol a decoded packet carries.
type Transport uint8

// Transport values.
const (
	TransportNone Transport = iota
	TransportTCP
	TransportUDP
	TransportICMP
)

// Decoded is the flattened result of walking a packet's layers: the fields
// the session table, policy evaluator, and DPI dispatcher need, without
// forcing every downstream consumer to re-walk gopacket's layer stack.
type Decoded struct {
	Packet gopacket.Packet

	EthernetType layers.EthernetType
	SrcMAC       net.HardwareAddr
	DstMAC       net.HardwareAddr

	IsIPv6  bool
	SrcIP   net.IP
	DstIP   net.IP
	IPProto uint8
	TTL     uint8

	// Fragment metadata, valid when IsIPv6 is false.
	FragID     uint16
	FragOffset uint16
	MoreFrags  bool

	Transport Transport
	SrcPort   uint16
	DstPort   uint16
	TCP       *layers.TCP
	UDP       *layers.UDP

	ICMPType uint8
	ICMPCode uint8

	Payload []byte
}

// Decode walks a raw frame's layers and flattens it into a Decoded value.
// Unsupported or truncated layers leave the corresponding Decoded fields at
// their zero value rather than returning an error; an undecodable packet is
// not a fatal condition for the caller.
func Decode(data []byte) *Decoded {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
	d := &Decoded{Packet: pkt}

	if eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet); ok {
		d.EthernetType = eth.EthernetType
		d.SrcMAC = eth.SrcMAC
		d.DstMAC = eth.DstMAC
	}

	if ip4, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
		d.SrcIP = ip4.SrcIP
		d.DstIP = ip4.DstIP
		d.IPProto = uint8(ip4.Protocol)
		d.TTL = ip4.TTL
		d.FragID = ip4.Id
		d.FragOffset = ip4.FragOffset
		d.MoreFrags = ip4.Flags&layers.IPv4MoreFragments != 0
	} else if ip6, ok := pkt.Layer(layers.LayerTypeIPv6).(*layers.IPv6); ok {
		d.IsIPv6 = true
		d.SrcIP = ip6.SrcIP
		d.DstIP = ip6.DstIP
		d.IPProto = uint8(ip6.NextHeader)
		d.TTL = ip6.HopLimit
	}

	if tcp, ok := pkt.Layer(layers.LayerTypeTCP).(*layers.TCP); ok {
		d.Transport = TransportTCP
		d.SrcPort = uint16(tcp.SrcPort)
		d.DstPort = uint16(tcp.DstPort)
		d.TCP = tcp
		d.Payload = tcp.Payload
	} else if udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP); ok {
		d.Transport = TransportUDP
		d.SrcPort = uint16(udp.SrcPort)
		d.DstPort = uint16(udp.DstPort)
		d.UDP = udp
		d.Payload = udp.Payload
	} else if icmp, ok := pkt.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4); ok {
		d.Transport = TransportICMP
		d.ICMPType = icmp.TypeCode.Type()
		d.ICMPCode = icmp.TypeCode.Code()
		d.Payload = icmp.Payload
	} else if icmp6, ok := pkt.Layer(layers.LayerTypeICMPv6).(*layers.ICMPv6); ok {
		d.Transport = TransportICMP
		d.ICMPType = icmp6.TypeCode.Type()
		d.ICMPCode = icmp6.TypeCode.Code()
		d.Payload = icmp6.Payload
	}

	return d
}

// IsFragment reports whether this packet is part of an IPv4 fragment train
// (either not the first fragment, or flagged with more fragments to come).
func (d *Decoded) IsFragment() bool {
	return !d.IsIPv6 && (d.FragOffset != 0 || d.MoreFrags)
}
