// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package worker implements the concurrency model (§5): one goroutine per
// session-table shard reading from its own packet channel, plus one timer
// goroutine ticking the shared timer wheel. Cross-worker state
// (endpoint registry, FQDN tables) is read through internal/rcumap's
// epoch-based sections; per-session state belongs exclusively to the
// worker owning its shard.
package worker

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/segmentic/dpengine/internal/logging"
	"github.com/segmentic/dpengine/internal/pipeline"
	"github.com/segmentic/dpengine/internal/rcumap"
)

// Packet is one raw frame queued to a shard, tagged with its arrival time
// so a worker's clock source can be swapped without touching the
// per-packet contract.
type Packet struct {
	Raw       []byte
	Timestamp time.Time
}

// Shard pairs one Pipeline (and the session.Table it owns) with the
// channel feeding it packets, matching "each worker owns its own session
// table shard... these are never touched by other workers."
type Shard struct {
	Pipeline *pipeline.Pipeline
	Packets  chan Packet
	Config   pipeline.ConfigSnapshot
}

// Pool runs one goroutine per shard plus one timer goroutine, all bound to
// a shared cancellation context: workers check it between packets, and on
// cancellation every goroutine returns, in no fixed order.
type Pool struct {
	shards     []*Shard
	wheel      *rcumap.TimerWheel
	tickPeriod time.Duration
	log        *logging.Logger
}

// New builds a Pool over the given shards and timer wheel.
func New(shards []*Shard, wheel *rcumap.TimerWheel, tickPeriod time.Duration, log *logging.Logger) *Pool {
	return &Pool{shards: shards, wheel: wheel, tickPeriod: tickPeriod, log: log}
}

// Run starts every shard worker and the timer goroutine, blocking until
// ctx is cancelled or a worker returns an error. In-flight packets
// complete; pending sessions are not flushed, matching §5's cancellation
// contract.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i, shard := range p.shards {
		shard := shard
		idx := i
		g.Go(func() error {
			return p.runShard(ctx, idx, shard)
		})
	}

	g.Go(func() error {
		return p.runTimer(ctx)
	})

	return g.Wait()
}

func (p *Pool) runShard(ctx context.Context, idx int, shard *Shard) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case pkt, ok := <-shard.Packets:
			if !ok {
				return nil
			}
			v := shard.Pipeline.Process(ctx, pkt.Raw, pkt.Timestamp, shard.Config)
			if p.log != nil {
				p.log.Debug("packet processed", "shard", idx, "action", v.Action.String(), "reason", v.Reason)
			}
		}
	}
}

// runTimer advances the shared timer wheel at tickPeriod, matching the
// global 1 Hz tick in §5 ("Timeouts: global tick advances at 1 Hz").
func (p *Pool) runTimer(ctx context.Context) error {
	ticker := time.NewTicker(p.tickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.wheel.Tick()
		}
	}
}
