// Package poller drives the periodic sync pipeline: a fixed interval, a
// skip-if-running guard instead of queueing, and an explicit pause/resume
// signal for operators.
package poller

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/41vi4p/TankLens/internal/metrics"
)

// Runner is the pipeline a tick triggers.
type Runner interface {
	RefreshAll(ctx context.Context) (int, error)
}

// Poller fires the runner on a fixed interval.
type Poller struct {
	runner   Runner
	interval time.Duration
	logger   *log.Logger

	inFlight atomic.Bool
	paused   atomic.Bool
	resume   chan struct{}
}

// New constructs a poller; it does not start ticking until Start.
func New(runner Runner, interval time.Duration, logger *log.Logger) *Poller {
	return &Poller{
		runner:   runner,
		interval: interval,
		logger:   logger,
		resume:   make(chan struct{}, 1),
	}
}

// Start runs the tick loop until ctx is cancelled. An immediate first run
// fires before the first interval elapses, so restarts don't leave a
// stale-data gap.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		case <-p.resume:
			p.tick(ctx)
		}
	}
}

// Pause suspends ticks. Ticks received while paused are dropped.
func (p *Poller) Pause() {
	p.paused.Store(true)
}

// Resume re-enables ticks and triggers an immediate one-shot run.
func (p *Poller) Resume() {
	p.paused.Store(false)
	select {
	case p.resume <- struct{}{}:
	default:
	}
}

// Paused reports whether ticks are currently suppressed.
func (p *Poller) Paused() bool {
	return p.paused.Load()
}

// tick starts one pipeline run unless paused or one is already in flight.
// Overlapping ticks are skipped, never queued.
func (p *Poller) tick(ctx context.Context) {
	if p.paused.Load() {
		return
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		metrics.ObserveSyncSkip()
		p.logger.Println("sync tick skipped: previous run still in flight")
		return
	}

	go func() {
		defer p.inFlight.Store(false)

		start := time.Now()
		devices, err := p.runner.RefreshAll(ctx)
		metrics.ObserveSyncRun(time.Since(start), devices, err)
		if err != nil {
			p.logger.Printf("sync run failed: %v", err)
			return
		}
		p.logger.Printf("sync run completed: %d devices", devices)
	}()
}
