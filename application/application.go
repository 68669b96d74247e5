// Package application implements the top-level lifecycle controller that
// binds a Supervisor tree to the OS signal boundary (spec.md §6
// "Host-visible process boundary (OS)"). It installs SIGINT/SIGTERM
// handlers the way the wider pack's process-signal code does
// (signal.Notify onto a buffered channel, selected alongside a done
// channel so the goroutine doesn't leak), and orchestrates the bounded
// prepStop -> supervisor shutdown -> stop sequence with
// golang.org/x/sync/errgroup rather than hand-rolled WaitGroup/channel
// plumbing, so the first hard failure in that sequence cancels the rest
// and its error surfaces to the caller.
package application

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/internal/obslog"
	"github.com/edirooss/actorkit/supervisor"
)

// Hook runs as part of the Stop sequence. A non-nil error aborts the
// remaining sequence and is returned from Stop/Run.
type Hook func(ctx context.Context) error

// Options configures an Application.
type Options struct {
	// Supervisor is the root of the supervision tree this Application
	// owns. May be nil for an Application that only runs hooks.
	Supervisor *supervisor.Supervisor

	// Bus receives EventApplicationStopping/EventApplicationStopped; may
	// be nil, in which case those events are simply not published.
	Bus *gen.EventBus

	Log *zap.Logger

	// HandleSignals installs SIGINT/SIGTERM handlers that trigger Stop.
	HandleSignals bool

	// StopTimeout bounds the whole prepStop -> supervisor shutdown -> stop
	// sequence; exceeding it fails with gen.ErrApplicationStopTimeout
	// (default 30s, spec.md §6 "Host-visible process boundary").
	StopTimeout time.Duration

	// PrepStop and Stop are optional hooks invoked before and after
	// supervisor shutdown, respectively.
	PrepStop Hook
	Stop     Hook
}

func (o *Options) setDefaults() {
	if o.StopTimeout <= 0 {
		o.StopTimeout = 30 * time.Second
	}
	if o.Log == nil {
		o.Log = obslog.Nop()
	}
}

// Application is the host-visible process boundary: it owns the decision
// of when the program should stop and runs the shutdown sequence exactly
// once, idempotently, regardless of whether it was triggered by a signal
// or by a direct Stop call.
type Application struct {
	opts Options

	mu       sync.Mutex
	stopping bool
	stopErr  error
	done     chan struct{}

	sigCh chan os.Signal
}

// New constructs an Application. Call Run to block until a stop is
// triggered, or Stop directly to trigger and wait for shutdown.
func New(opts Options) *Application {
	opts.setDefaults()
	return &Application{
		opts: opts,
		done: make(chan struct{}),
	}
}

// Run installs signal handlers (if configured) and blocks until the
// Application stops, either because ctx was canceled, a signal arrived, or
// another goroutine called Stop. It returns the error the stop sequence
// produced, if any.
func (a *Application) Run(ctx context.Context) error {
	if a.opts.HandleSignals {
		a.sigCh = make(chan os.Signal, 1)
		signal.Notify(a.sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(a.sigCh)
	}

	select {
	case <-ctx.Done():
		return a.Stop(context.Background())
	case sig := <-a.sigCh:
		a.opts.Log.Info("received signal, stopping", zap.Stringer("signal", sig))
		return a.Stop(context.Background())
	case <-a.done:
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.stopErr
	}
}

// Stop triggers the graceful shutdown sequence (prepStop -> supervisor
// shutdown -> stop) if it has not already started, and blocks until it
// completes or StopTimeout elapses. A second call while stopping is already
// in progress is ignored and simply waits for the first call's result
// (spec.md §6: "A second identical signal during shutdown is ignored").
func (a *Application) Stop(ctx context.Context) error {
	a.mu.Lock()
	if a.stopping {
		a.mu.Unlock()
		<-a.done
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.stopErr
	}
	a.stopping = true
	a.mu.Unlock()

	err := a.runStopSequence(ctx)

	a.mu.Lock()
	a.stopErr = err
	a.mu.Unlock()
	close(a.done)

	return err
}

func (a *Application) runStopSequence(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(ctx, a.opts.StopTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(stopCtx)
	g.Go(func() error {
		a.publish(gen.EventApplicationStopping{})

		if a.opts.PrepStop != nil {
			if err := a.opts.PrepStop(gctx); err != nil {
				return gen.Annotatef(err, "prepStop hook")
			}
		}

		if a.opts.Supervisor != nil {
			if err := a.opts.Supervisor.Stop(gen.ReasonShutdown(), a.opts.StopTimeout); err != nil {
				return gen.Annotatef(err, "supervisor shutdown")
			}
		}

		if a.opts.Stop != nil {
			if err := a.opts.Stop(gctx); err != nil {
				return gen.Annotatef(err, "stop hook")
			}
		}

		a.publish(gen.EventApplicationStopped{})
		return nil
	})

	result := make(chan error, 1)
	go func() { result <- g.Wait() }()

	select {
	case err := <-result:
		return err
	case <-stopCtx.Done():
		return gen.Annotatef(gen.ErrApplicationStopTimeout, "application stop")
	}
}

func (a *Application) publish(ev gen.Event) {
	if a.opts.Bus != nil {
		a.opts.Bus.Publish(ev)
	}
}
