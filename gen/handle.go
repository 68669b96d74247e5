package gen

import (
	"time"

	"github.com/edirooss/actorkit/ref"
)

// Handle is the type-erased view of a running process that cross-cutting
// infrastructure - the link/monitor fabric, a Supervisor, an Application -
// operates on without knowing the process's state/call/cast/reply types.
// genserver.Process implements Handle; genserver keeps a process table
// mapping ref.Ref to Handle so one process can signal another regardless of
// their concrete type parameters.
type Handle interface {
	Ref() ref.Ref

	// Stop requests termination with reason, blocking until the process has
	// fully terminated or timeout elapses (0 waits forever). Safe to call
	// more than once; later calls after the process has already stopped are
	// no-ops.
	Stop(reason TerminateReason, timeout time.Duration) error

	// DeliverExit is invoked by the link fabric when a linked peer
	// terminates. Implementations decide, based on their own trap-exit
	// setting, whether to surface it as an Info message or die in response.
	DeliverExit(sig ExitSignal)

	// DeliverInfo enqueues an arbitrary Info message, used for
	// EventProcessDown notifications and anything else delivered
	// out-of-band from a normal Call/Cast.
	DeliverInfo(msg any)
}
