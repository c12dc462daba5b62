// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package actuator

import (
	"math/rand"
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"github.com/segmentic/dpengine/internal/errors"
)

// ResetTarget identifies the wing a reset frame is injected towards:
// source/destination MAC and IP, and the TCP 4-tuple plus the sequence
// number the reset must carry to land inside the peer's receive window.
type ResetTarget struct {
	SrcMAC, DstMAC net.HardwareAddr
	SrcIP, DstIP   net.IP
	SrcPort        uint16
	DstPort        uint16
	Seq            uint32
}

// BuildReset serializes an Ethernet/IPv4-or-IPv6/TCP RST-only frame toward
// the target, matching the source's inject-RST-into-both-wings teardown:
// DF set and a randomized IP ID on IPv4, ack/window/urgent pointer all zero,
// and RST set with no other control bit.
func BuildReset(t ResetTarget) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC: t.SrcMAC,
		DstMAC: t.DstMAC,
	}

	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(t.SrcPort),
		DstPort: layers.TCPPort(t.DstPort),
		Seq:     t.Seq,
		RST:     true,
		Window:  0,
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}

	if v4 := t.SrcIP.To4(); v4 != nil {
		eth.EthernetType = layers.EthernetTypeIPv4
		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      255,
			Id:       uint16(rand.Uint32()),
			Flags:    layers.IPv4DontFragment,
			Protocol: layers.IPProtocolTCP,
			SrcIP:    v4,
			DstIP:    t.DstIP.To4(),
		}
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "actuator: set network layer")
		}
		if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp); err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "actuator: serialize reset")
		}
		return buf.Bytes(), nil
	}

	eth.EthernetType = layers.EthernetTypeIPv6
	ip6 := &layers.IPv6{
		Version:    6,
		HopLimit:   255,
		NextHeader: layers.IPProtocolTCP,
		SrcIP:      t.SrcIP.To16(),
		DstIP:      t.DstIP.To16(),
	}
	if err := tcp.SetNetworkLayerForChecksum(ip6); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "actuator: set network layer")
	}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip6, tcp); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "actuator: serialize reset")
	}
	return buf.Bytes(), nil
}

// BuildResetPair builds the two reset frames needed to tear down both
// wings of a session: one spoofed from the server toward the client and
// one spoofed from the client toward the server, matching the source's
// bidirectional teardown so neither peer keeps retransmitting.
func BuildResetPair(client, server ResetTarget) (toClient, toServer []byte, err error) {
	toClient, err = BuildReset(ResetTarget{
		SrcMAC: server.SrcMAC, DstMAC: client.DstMAC,
		SrcIP: server.SrcIP, DstIP: client.DstIP,
		SrcPort: server.SrcPort, DstPort: client.DstPort,
		Seq: server.Seq,
	})
	if err != nil {
		return nil, nil, err
	}
	toServer, err = BuildReset(ResetTarget{
		SrcMAC: client.SrcMAC, DstMAC: server.DstMAC,
		SrcIP: client.SrcIP, DstIP: server.DstIP,
		SrcPort: client.SrcPort, DstPort: server.DstPort,
		Seq: client.Seq,
	})
	if err != nil {
		return nil, nil, err
	}
	return toClient, toServer, nil
}
