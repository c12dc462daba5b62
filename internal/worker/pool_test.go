// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package worker

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segmentic/dpengine/internal/decode"
	"github.com/segmentic/dpengine/internal/dpconfig"
	"github.com/segmentic/dpengine/internal/dpi"
	"github.com/segmentic/dpengine/internal/endpoint"
	"github.com/segmentic/dpengine/internal/fqdn"
	"github.com/segmentic/dpengine/internal/pipeline"
	"github.com/segmentic/dpengine/internal/rcumap"
	"github.com/segmentic/dpengine/internal/session"
	"github.com/segmentic/dpengine/internal/stats"
)

func buildFrame(t *testing.T) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC: net.HardwareAddr{1, 2, 3, 4, 5, 6}, DstMAC: net.HardwareAddr{7, 8, 9, 10, 11, 12},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.ParseIP("10.0.0.1").To4(), DstIP: net.ParseIP("10.0.0.2").To4()}
	tcp := &layers.TCP{SrcPort: 4000, DstPort: 80, SYN: true}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}, eth, ip, tcp))
	return buf.Bytes()
}

func newShard() *Shard {
	reg := endpoint.NewRegistry()
	reg.Install(dpconfig.EndpointInstall{MAC: net.HardwareAddr{7, 8, 9, 10, 11, 12}}, time.Unix(0, 0))
	p := &pipeline.Pipeline{
		Registry:   reg,
		Table:      session.NewTable(0),
		FQDN:       fqdn.NewResolver(),
		Dispatcher: dpi.NewDispatcher(),
		Fragments:  decode.NewFragmentTracker(),
		Metrics:    stats.NewMetrics(),
		Mode:       pipeline.ModeNonTC,
	}
	return &Shard{Pipeline: p, Packets: make(chan Packet, 8)}
}

func TestPoolProcessesQueuedPacket(t *testing.T) {
	shard := newShard()
	pool := New([]*Shard{shard}, rcumap.NewTimerWheel(8), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	shard.Packets <- Packet{Raw: buildFrame(t), Timestamp: time.Now()}
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1, shard.Pipeline.Table.Len())
}

func TestPoolStopsOnContextCancel(t *testing.T) {
	shard := newShard()
	pool := New([]*Shard{shard}, rcumap.NewTimerWheel(8), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, pool.Run(ctx))
}
