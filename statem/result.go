package statem

import "github.com/edirooss/actorkit/gen"

type resultKind uint8

const (
	resultTransition resultKind = iota
	resultKeepState
	resultKeepStateAndData
	resultPostpone
	resultStop
)

// Result is what HandleEvent returns: a new state and data (Transition), an
// updated data in the same state (KeepState), no change at all
// (KeepStateAndData), a request to re-deliver this event once the state
// changes (Postpone), or termination (Stop). Any of the first three may
// carry Actions (spec.md §4.5).
type Result struct {
	kind    resultKind
	next    StateName
	data    any
	actions []Action
	reason  gen.TerminateReason
}

// Transition moves to next with data, running next's OnEnter hook (and the
// current state's OnExit hook) if implemented.
func Transition(next StateName, data any, actions ...Action) Result {
	return Result{kind: resultTransition, next: next, data: data, actions: actions}
}

// KeepState stays in the current state but updates data.
func KeepState(data any, actions ...Action) Result {
	return Result{kind: resultKeepState, data: data, actions: actions}
}

// KeepStateAndData changes nothing but may still arm or cancel timeouts, or
// reply to a deferred call.
func KeepStateAndData(actions ...Action) Result {
	return Result{kind: resultKeepStateAndData, actions: actions}
}

// Postpone re-queues the current event to be redelivered after the next
// Transition result, including a Transition back into the current state.
func Postpone() Result { return Result{kind: resultPostpone} }

// Stop terminates the machine with reason.
func Stop(reason gen.TerminateReason) Result { return Result{kind: resultStop, reason: reason} }
