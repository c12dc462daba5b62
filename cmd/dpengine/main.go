// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command dpengine runs the micro-segmentation data plane: the session
// table, DPI dispatcher, policy evaluator, and actuator described by this
// module, wired into a worker pool. The capture driver that feeds it
// frames (TC/NFQUEUE/raw socket) and the control-plane message loop that
// installs endpoints and policy are external collaborators, out of this
// binary's scope — dpengine constructs the engine and exits cleanly on
// signal; wiring a real capture driver to worker.Shard.Packets is left to
// the deployment's IO layer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentic/dpengine/internal/decode"
	"github.com/segmentic/dpengine/internal/dpconfig"
	"github.com/segmentic/dpengine/internal/dpi"
	"github.com/segmentic/dpengine/internal/endpoint"
	"github.com/segmentic/dpengine/internal/fqdn"
	"github.com/segmentic/dpengine/internal/logging"
	"github.com/segmentic/dpengine/internal/pipeline"
	"github.com/segmentic/dpengine/internal/rcumap"
	"github.com/segmentic/dpengine/internal/session"
	"github.com/segmentic/dpengine/internal/stats"
	"github.com/segmentic/dpengine/internal/worker"
)

// tickPeriod is the global timer-wheel advance rate, matching §5's
// "global tick advances at 1 Hz".
const tickPeriod = 1 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("dpengine", flag.ContinueOnError)
	help := fs.Bool("h", false, "print usage and exit")
	// Positive level sets the bit, negative level clears it — a negative
	// flag value standing in for the source CLI's "-<level> to clear a
	// bit" since Go's flag package has no bare-negative-number syntax.
	debugLevel := fs.Int("d", 0, "debug mask level; positive sets the bit, negative clears it")
	workerCount := fs.Int("n", 0, "worker count (0 uses the config value)")
	configPath := fs.String("c", "", "path to engine config file")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: dpengine [-h] [-d level] [-n count] [-c path]\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return -1
	}
	if *help {
		fs.Usage()
		return 0
	}

	cfg := dpconfig.DefaultEngineConfig()
	if *configPath != "" {
		loaded, err := dpconfig.LoadEngineConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dpengine: load config: %v\n", err)
			return -1
		}
		cfg = loaded
	}
	if *debugLevel > 0 {
		cfg.DebugMask |= 1 << uint32(*debugLevel)
	} else if *debugLevel < 0 {
		cfg.DebugMask &^= 1 << uint32(-*debugLevel)
	}
	if *workerCount > 0 {
		cfg.WorkerCount = *workerCount
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Output: os.Stderr, ReportTime: true, Prefix: "dpengine"})
	log.Info("starting", "workers", cfg.WorkerCount, "log_level", cfg.LogLevel, "debug_mask", cfg.DebugMask)

	registry := endpoint.NewRegistry()
	resolver := fqdn.NewResolver()
	wheel := rcumap.NewTimerWheel(cfg.SessionIdleTimeout + 1)
	metrics := stats.NewMetrics()

	shards := make([]*worker.Shard, cfg.WorkerCount)
	for i := range shards {
		p := &pipeline.Pipeline{
			Registry:   registry,
			Table:      session.NewTable(0),
			FQDN:       resolver,
			Dispatcher: dpi.NewDispatcher(),
			Fragments:  decode.NewFragmentTracker(),
			Metrics:    metrics,
			Mode:       pipeline.ModeNonTC,
		}
		shards[i] = &worker.Shard{Pipeline: p, Packets: make(chan worker.Packet, 1024)}
	}

	pool := worker.New(shards, wheel, tickPeriod, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := pool.Run(ctx); err != nil {
		log.Error("worker pool exited with error", "err", err)
		return -1
	}
	log.Info("stopped")
	return 0
}
