package supervisor

import (
	"context"
	"time"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/genserver"
)

// RestartPolicy decides whether a child is restarted after it exits
// (spec.md §4.3).
type RestartPolicy uint8

const (
	// Permanent children are restarted regardless of exit reason.
	Permanent RestartPolicy = iota
	// Transient children are restarted unless they exited normal or
	// shutdown.
	Transient
	// Temporary children are never restarted; they are removed on exit.
	Temporary
)

// Strategy selects how siblings are affected when one child exits.
type Strategy uint8

const (
	// OneForOne restarts only the failed child.
	OneForOne Strategy = iota
	// OneForAll stops every child (reverse start order) then restarts all
	// of them (start order).
	OneForAll
	// RestForOne stops the failed child and every child started after it
	// (reverse order), then restarts that suffix in start order.
	RestForOne
	// SimpleOneForOne has no static children; every child is spawned from
	// Options.Template via StartChild(args...). A failed child restarts
	// under the one_for_one rule.
	SimpleOneForOne
)

// AutoShutdown decides whether a supervisor stops itself when a
// significant child is permanently removed (spec.md §4.3), evaluated only
// on permanent removal (temporary exit or explicit TerminateChild).
type AutoShutdown uint8

const (
	// AutoShutdownNever never stops the supervisor for this reason.
	AutoShutdownNever AutoShutdown = iota
	// AutoShutdownAnySignificant stops the supervisor as soon as any
	// significant child is permanently removed.
	AutoShutdownAnySignificant
	// AutoShutdownAllSignificant stops the supervisor once a significant
	// child is removed and no significant child remains.
	AutoShutdownAllSignificant
)

// StartFunc launches one child and returns its type-erased handle, so a
// Supervisor can manage genserver.Process and statem.Machine children
// uniformly without knowing their state/call/cast/reply types.
type StartFunc func(ctx context.Context) (gen.Handle, error)

// ChildSpec describes one statically declared child. ID must be unique
// within the supervisor.
type ChildSpec struct {
	ID              string
	Start           StartFunc
	Restart         RestartPolicy
	ShutdownTimeout time.Duration // <= 0 defaults to 5s
	Significant     bool
}

func (s ChildSpec) shutdownTimeout() time.Duration {
	if s.ShutdownTimeout <= 0 {
		return 5 * time.Second
	}
	return s.ShutdownTimeout
}

// Template describes the dynamic children of a SimpleOneForOne supervisor:
// every child shares these fields, started from caller-supplied args.
type Template struct {
	Start           func(ctx context.Context, args ...any) (gen.Handle, error)
	Restart         RestartPolicy
	ShutdownTimeout time.Duration
	Significant     bool
}

// Options configures a new Supervisor.
type Options struct {
	Runtime *genserver.Runtime
	Name    string // optional registered name

	Strategy     Strategy
	MaxRestarts  int           // restarts allowed within Within before the supervisor shuts down
	Within       time.Duration // intensity window
	AutoShutdown AutoShutdown

	// Children are started in order; ignored for SimpleOneForOne.
	Children []ChildSpec
	// Template is required for SimpleOneForOne and ignored otherwise.
	Template *Template
}

func (o *Options) setDefaults() {
	if o.MaxRestarts <= 0 {
		o.MaxRestarts = 3
	}
	if o.Within <= 0 {
		o.Within = 5 * time.Second
	}
}
