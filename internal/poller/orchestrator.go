package poller

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/rileyhilliard/nodebeat/internal/errors"
	"github.com/rileyhilliard/nodebeat/internal/logger"
	"github.com/rileyhilliard/nodebeat/internal/status"
	"github.com/rileyhilliard/nodebeat/pkg/sshutil"
)

// Orchestrator owns one Poller per selected target.
type Orchestrator struct {
	Command  string
	Targets  []string
	Resolver sshutil.Resolver
	Runner   sshutil.Runner
	Sink     Sink
	Interval time.Duration
	Timeout  time.Duration
	UTC      bool
	Now      func() time.Time
	Log      logger.Logger

	pollers []*Poller
}

// Setup resolves every target and builds pollers for the healthy ones.
// Each target that fails to resolve is logged and gets a failed status line.
// The returned error aggregates every resolution failure.
func (o *Orchestrator) Setup() error {
	log := o.Log
	if log == nil {
		log = logger.Noop()
	}

	o.pollers = o.pollers[:0]
	var result *multierror.Error

	for _, name := range o.Targets {
		params, err := o.Resolver.Resolve(name)
		if err != nil {
			logger.Named(log, name).Error("%s", errors.SummaryOf(err))
			stamp := FormatTimestamp(o.now(), o.UTC)
			o.Sink.Publish(status.Update{Target: name, Line: FormatResolveFailure(stamp, err)})
			result = multierror.Append(result, err)
			continue
		}

		logger.Named(log, name).Debug("resolved to %s", params)
		o.pollers = append(o.pollers, &Poller{
			Target:   name,
			Command:  o.Command,
			Params:   params,
			Runner:   o.Runner,
			Sink:     o.Sink,
			Interval: o.Interval,
			Timeout:  o.Timeout,
			UTC:      o.UTC,
			Now:      o.Now,
			Log:      log,
		})
	}

	return result.ErrorOrNil()
}

// Pollers returns the pollers built by the last Setup.
func (o *Orchestrator) Pollers() []*Poller {
	return o.pollers
}

// Run sets up the pollers and runs them until ctx is cancelled. It returns
// an error only when no target could be resolved.
func (o *Orchestrator) Run(ctx context.Context) error {
	setupErr := o.Setup()
	if len(o.pollers) == 0 {
		if setupErr == nil {
			return errors.New(errors.ErrConfig, "No targets to poll", "Select at least one target with --nodes")
		}
		return errors.WrapWithCode(setupErr, errors.ErrConfig,
			"No target could be resolved",
			"Check the Host entries in your ssh config")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range o.pollers {
		g.Go(func() error {
			p.Run(gctx)
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
