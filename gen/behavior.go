package gen

import (
	"context"

	"github.com/edirooss/actorkit/ref"
)

// TypedRef layers a compile-time-checked handle on top of the type-erased
// ref.Ref every registry, supervisor and link/monitor table actually stores.
// S, C, K and R never appear in a TypedRef value at runtime - they exist
// only so genserver.Call and genserver.Cast can reject mismatched message
// types at compile time, matching spec.md's "phantom type parameters
// document shapes but carry no runtime information".
type TypedRef[S, C, K, R any] struct {
	ref.Ref
}

// NewTypedRef wraps an untyped Ref. Callers get one back from Start; this
// constructor exists for adapters that hand a Ref across an untyped
// boundary (e.g. a supervisor's child list) and need to recover the typed
// handle.
func NewTypedRef[S, C, K, R any](r ref.Ref) TypedRef[S, C, K, R] {
	return TypedRef[S, C, K, R]{Ref: r}
}

// Untyped discards the phantom type parameters, the conversion every
// registry/supervisor/linkmonitor call needs since they operate on
// heterogeneous processes.
func (t TypedRef[S, C, K, R]) Untyped() ref.Ref { return t.Ref }

// Behavior is the contract a GenServer callback module implements: S is the
// process's private state, C and K are the call and cast message types, and
// R is the call reply type. Init runs once before the process is considered
// started; HandleCall and HandleCast run on every request in mailbox order.
//
// Optional extensions - HandleInfo, BeforePersist and OnStateRestore - are
// separate interfaces genserver type-asserts for, since a plain interface
// cannot make a method optional without an empty default implementation
// burdening every callback module (spec.md §4.1, §4.4).
type Behavior[S, C, K, R any] interface {
	// Init builds the initial state. An error here fails Start and the
	// process never reaches the running state.
	Init(ctx context.Context) (S, error)

	// HandleCall answers a synchronous request with a reply and the next
	// state. A plain error fails the caller's Call with that error and
	// leaves state unchanged; it does not terminate the process. Only an
	// error built with RequestStop (or AsStopRequest) terminates the
	// process, with the returned state as its final state.
	HandleCall(ctx context.Context, msg C, state S) (R, S, error)

	// HandleCast applies an asynchronous message, returning the next state.
	// A plain error is logged and state is left unchanged; only RequestStop
	// (or AsStopRequest) terminates the process, as in HandleCall.
	HandleCast(ctx context.Context, msg K, state S) (S, error)

	// Terminate runs once as the process exits, after the mailbox is
	// drained, for cleanup that needs the final state and exit reason. It
	// cannot prevent termination.
	Terminate(ctx context.Context, reason TerminateReason, state S)
}

// InfoHandler is implemented by callback modules that want delivery of
// Info messages: ExitSignal from linked peers, EventProcessDown from
// monitored peers, and SendAfter timer firings.
type InfoHandler[S any] interface {
	HandleInfo(ctx context.Context, msg any, state S) (S, error)
}

// PersistHook is implemented by callback modules that want to transform
// state before it is serialized by the persistence Coupler, e.g. to strip
// transient fields (spec.md §4.4 beforePersist).
type PersistHook[S any] interface {
	BeforePersist(state S) S
}

// RestoreHook is implemented by callback modules that want to observe or
// adjust state recovered from the persistence Coupler before it becomes the
// running state (spec.md §4.4 onStateRestore).
type RestoreHook[S any] interface {
	OnStateRestore(restored S) S
}
