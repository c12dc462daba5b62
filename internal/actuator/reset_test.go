// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package actuator

import (
	"net"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildResetIPv4(t *testing.T) {
	target := ResetTarget{
		SrcMAC:  net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:  net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		SrcIP:   net.ParseIP("10.0.0.1"),
		DstIP:   net.ParseIP("10.0.0.2"),
		SrcPort: 443,
		DstPort: 55000,
		Seq:     1000,
	}

	frame, err := BuildReset(target)
	require.NoError(t, err)

	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	tcpLayer := pkt.Layer(layers.LayerTypeTCP)
	require.NotNil(t, tcpLayer)
	tcp := tcpLayer.(*layers.TCP)
	assert.True(t, tcp.RST)
	assert.False(t, tcp.ACK)
	assert.Equal(t, uint32(1000), tcp.Seq)
	assert.Equal(t, uint32(0), tcp.Ack)
	assert.Equal(t, uint16(0), tcp.Window)
	assert.Equal(t, uint16(0), tcp.Urgent)
	assert.True(t, tcp.Checksum != 0)

	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	require.NotNil(t, ipLayer)
	ip := ipLayer.(*layers.IPv4)
	assert.Equal(t, uint8(255), ip.TTL)
	assert.Equal(t, layers.IPv4DontFragment, ip.Flags)
}

func TestBuildResetIPv6(t *testing.T) {
	target := ResetTarget{
		SrcMAC:  net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:  net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		SrcIP:   net.ParseIP("2001:db8::1"),
		DstIP:   net.ParseIP("2001:db8::2"),
		SrcPort: 443,
		DstPort: 55000,
		Seq:     1,
	}

	frame, err := BuildReset(target)
	require.NoError(t, err)

	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	require.NotNil(t, pkt.Layer(layers.LayerTypeIPv6))
	require.NotNil(t, pkt.Layer(layers.LayerTypeTCP))
}

func TestBuildResetPairProducesBothDirections(t *testing.T) {
	client := ResetTarget{
		SrcMAC: net.HardwareAddr{0, 0, 0, 0, 0, 1}, DstMAC: net.HardwareAddr{0, 0, 0, 0, 0, 2},
		SrcIP: net.ParseIP("10.0.0.1"), DstIP: net.ParseIP("10.0.0.2"),
		SrcPort: 55000, DstPort: 443, Seq: 10,
	}
	server := ResetTarget{
		SrcMAC: net.HardwareAddr{0, 0, 0, 0, 0, 2}, DstMAC: net.HardwareAddr{0, 0, 0, 0, 0, 1},
		SrcIP: net.ParseIP("10.0.0.2"), DstIP: net.ParseIP("10.0.0.1"),
		SrcPort: 443, DstPort: 55000, Seq: 20,
	}

	toClient, toServer, err := BuildResetPair(client, server)
	require.NoError(t, err)
	assert.NotEmpty(t, toClient)
	assert.NotEmpty(t, toServer)
	assert.NotEqual(t, toClient, toServer)
}
