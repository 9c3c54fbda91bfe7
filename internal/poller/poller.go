// Package poller runs the per-target polling loops.
//
// A Poller owns one target: on every tick it makes a single remote execution
// attempt, formats the result as a status line and publishes it to a Sink.
// The Orchestrator resolves every target up front and runs one Poller per
// pollable target until its context is cancelled.
package poller

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/nodebeat/internal/logger"
	"github.com/rileyhilliard/nodebeat/internal/status"
	"github.com/rileyhilliard/nodebeat/pkg/sshutil"
)

// DefaultInterval is the time between ticks when none is configured.
const DefaultInterval = 10 * time.Second

// Sink receives status updates. *status.Board implements it.
type Sink interface {
	Publish(status.Update)
}

var _ Sink = (*status.Board)(nil)

// Poller repeatedly runs Command against one target.
type Poller struct {
	Target   string
	Command  string
	Params   sshutil.Params
	Runner   sshutil.Runner
	Sink     Sink
	Interval time.Duration
	Timeout  time.Duration
	UTC      bool

	// Now returns the current time. Overridable for tests.
	Now func() time.Time
	Log logger.Logger

	ticks         atomic.Uint64
	warnedHostKey bool
}

// Tick makes one attempt and publishes its status line. Nothing is published
// if ctx was cancelled while the attempt ran.
func (p *Poller) Tick(ctx context.Context) {
	stamp := FormatTimestamp(p.now(), p.UTC)

	output, err := p.Runner.Attempt(ctx, p.Command, p.Params, p.Timeout)
	if ctx.Err() != nil {
		return
	}

	var line status.Line
	if err != nil {
		line = FormatFailure(stamp, err)
		p.log().Debug("%v", err)
		p.warnHostKeyMismatch(err)
	} else {
		line = FormatOutput(stamp, output)
	}

	tick := p.ticks.Add(1)
	p.Sink.Publish(status.Update{Target: p.Target, Line: line, Tick: tick})
}

// Ticks returns how many status lines the poller has published.
// Safe to call while Run is active.
func (p *Poller) Ticks() uint64 {
	return p.ticks.Load()
}

// warnHostKeyMismatch logs how to repair known_hosts, once per poller.
// The status line only has room for the error itself.
func (p *Poller) warnHostKeyMismatch(err error) {
	var mismatch *sshutil.HostKeyMismatchError
	if p.warnedHostKey || !stderrors.As(err, &mismatch) {
		return
	}
	p.warnedHostKey = true
	p.log().Warn("%s\n%s", mismatch.Error(), mismatch.Suggestion())
}

// Run ticks immediately and then on every Interval until ctx is done.
// A slow attempt delays the next tick; missed ticks collapse into one.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	p.log().Debug("polling %s every %s", p.Params, interval)

	if ctx.Err() != nil {
		return
	}
	p.Tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

func (p *Poller) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Poller) log() logger.Logger {
	return logger.Named(p.Log, p.Target)
}
