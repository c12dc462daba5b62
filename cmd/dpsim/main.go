// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command dpsim replays a PCAP file through the data plane outside of any
// live capture driver, for engine development and regression testing. It
// drives the same Pipeline.Process contract a worker shard would, but
// feeds it the packet's own capture timestamp instead of wall-clock time
// so a replay is reproducible regardless of when it's run.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/pcap"

	"github.com/segmentic/dpengine/internal/decode"
	"github.com/segmentic/dpengine/internal/dpconfig"
	"github.com/segmentic/dpengine/internal/dpi"
	"github.com/segmentic/dpengine/internal/endpoint"
	"github.com/segmentic/dpengine/internal/fqdn"
	"github.com/segmentic/dpengine/internal/pipeline"
	"github.com/segmentic/dpengine/internal/session"
	"github.com/segmentic/dpengine/internal/stats"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("dpsim", flag.ContinueOnError)
	pcapFile := fs.String("pcap", "", "path to the PCAP file to replay")
	epMAC := fs.String("ep-mac", "", "MAC address of the endpoint to install (required)")
	mode := fs.String("mode", "nontc", "capture mode: nontc|tc|tap|proxymesh|nfq")
	if err := fs.Parse(args); err != nil {
		return -1
	}
	if *pcapFile == "" || *epMAC == "" {
		fmt.Fprintln(os.Stderr, "dpsim: -pcap and -ep-mac are required")
		return -1
	}

	mac, err := net.ParseMAC(*epMAC)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dpsim: %v\n", err)
		return -1
	}

	handle, err := pcap.OpenOffline(*pcapFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dpsim: open pcap: %v\n", err)
		return -1
	}
	defer handle.Close()

	registry := endpoint.NewRegistry()
	registry.Install(dpconfig.EndpointInstall{
		MAC:    mac,
		Policy: dpconfig.EndpointPolicy{DefaultAction: 2}, // ActionAllow
	}, time.Now())

	p := &pipeline.Pipeline{
		Registry:    registry,
		Table:       session.NewTable(0),
		FQDN:        fqdn.NewResolver(),
		Dispatcher:  dpi.NewDispatcher(),
		Fragments:   decode.NewFragmentTracker(),
		Metrics:     stats.NewMetrics(),
		Mode:        parseMode(*mode),
		Promiscuous: true,
	}

	ctx := context.Background()
	source := gopacket.NewPacketSource(handle, handle.LinkType())

	var processed, forwarded, dropped, reset int
	for pkt := range source.Packets() {
		ts := time.Now()
		if pkt.Metadata() != nil {
			ts = pkt.Metadata().Timestamp
		}
		v := p.Process(ctx, pkt.Data(), ts, pipeline.ConfigSnapshot{})
		processed++
		switch v.Action.String() {
		case "forward":
			forwarded++
		case "reset":
			reset++
		default:
			dropped++
		}
		if processed%1000 == 0 {
			fmt.Printf("\rprocessed %d packets...", processed)
		}
	}

	fmt.Printf("\rprocessed %d packets: %d forwarded, %d dropped, %d reset; %d sessions live\n",
		processed, forwarded, dropped, reset, p.Table.Len())
	return 0
}

func parseMode(s string) pipeline.Mode {
	switch s {
	case "tc":
		return pipeline.ModeTC
	case "tap":
		return pipeline.ModeTAP
	case "proxymesh":
		return pipeline.ModeProxyMesh
	case "nfq":
		return pipeline.ModeNFQ
	default:
		return pipeline.ModeNonTC
	}
}
