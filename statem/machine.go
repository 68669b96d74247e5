// Package statem implements GenStateMachine on top of genserver: named
// states, per-event results (transition, keep-state, postpone, stop),
// three independent timeout facilities, onEnter/onExit hooks and deferred
// call replies (spec.md §4.5). A Machine is itself a GenServer - all
// mailbox ordering, linking, monitoring and persistence guarantees from
// genserver apply unchanged; this package only interprets the messages
// that arrive.
package statem

import (
	"context"
	"time"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/genserver"
	"github.com/edirooss/actorkit/ref"
)

// machineState is the genserver state backing a Machine: the current
// state name and behavior data, postponed events awaiting a transition to
// replay against, and the live timer ids needed to cancel stale timeouts.
type machineState[D any] struct {
	name      StateName
	data      D
	postponed []Event

	stateTimeoutID    gen.TimerID
	eventTimeoutID    gen.TimerID
	genericTimeoutIDs map[string]gen.TimerID
}

// Machine is a running GenStateMachine.
type Machine[D any] struct {
	proc *genserver.Process[machineState[D], Event, Event, any]
}

// Ref returns the machine's process identity.
func (m *Machine[D]) Ref() ref.Ref { return m.proc.Ref() }

// Handle returns the type-erased gen.Handle view of the machine, so a
// supervisor can manage it alongside genserver.Process children without
// knowing its data type.
func (m *Machine[D]) Handle() gen.Handle { return m.proc }

// Call sends msg as a synchronous call event and blocks for its reply,
// which HandleEvent produces via Reply(event.Reply, ...) - immediately or,
// for a deferred reply, from any later event.
func (m *Machine[D]) Call(ctx context.Context, msg any) (any, error) {
	reply := make(chan callReply, 1)
	token := ReplyToken{ch: reply}
	if err := m.proc.Cast(Event{Kind: EventCall, Msg: msg, Reply: token}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.val, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cast sends msg as a fire-and-forget cast event.
func (m *Machine[D]) Cast(msg any) error {
	return m.proc.Cast(Event{Kind: EventCast, Msg: msg})
}

// Stop requests termination, waiting up to timeout (0 waits forever).
func (m *Machine[D]) Stop(reason gen.TerminateReason, timeout time.Duration) error {
	return m.proc.Stop(reason, timeout)
}

type armInitialActions struct{ actions []Action }

// StartMachine launches behavior as a new GenStateMachine process under
// opts.Runtime.
func StartMachine[D any](ctx context.Context, behavior Behavior[D], opts genserver.Options[machineState[D], Event, Event, any]) (*Machine[D], error) {
	m := &Machine[D]{}
	adp := &adapter[D]{user: behavior, m: m}

	p, err := genserver.Start[machineState[D], Event, Event, any](ctx, adp, opts)
	if err != nil {
		return nil, err
	}
	m.proc = p

	if len(adp.initActions) > 0 {
		p.DeliverInfo(armInitialActions{actions: adp.initActions})
	}
	return m, nil
}

// adapter bridges a user Behavior[D] into gen.Behavior[machineState[D],
// Event, Event, any], the shape genserver.Process actually runs.
type adapter[D any] struct {
	user        Behavior[D]
	m           *Machine[D]
	initActions []Action
}

func (a *adapter[D]) Init(ctx context.Context) (machineState[D], error) {
	name, data, err := a.user.Init(ctx)
	if err != nil {
		return machineState[D]{}, err
	}
	ms := machineState[D]{name: name, data: data}
	if hook, ok := a.user.(EnterHook[D]); ok {
		a.initActions = hook.OnEnter(ctx, ms.name, ms.data)
	}
	return ms, nil
}

// HandleCall exists only to satisfy gen.Behavior; Machine routes every
// event through Cast so it can manage its own reply channels and support
// deferred replies, something genserver's built-in one-shot call/reply
// channel cannot express.
func (a *adapter[D]) HandleCall(ctx context.Context, ev Event, ms machineState[D]) (any, machineState[D], error) {
	next, err := a.HandleCast(ctx, ev, ms)
	return nil, next, err
}

func (a *adapter[D]) HandleCast(ctx context.Context, ev Event, ms machineState[D]) (machineState[D], error) {
	return a.dispatch(ctx, []Event{ev}, ms)
}

func (a *adapter[D]) HandleInfo(ctx context.Context, msg any, ms machineState[D]) (machineState[D], error) {
	switch v := msg.(type) {
	case armInitialActions:
		events := a.applyActions(&ms, v.actions)
		return a.dispatch(ctx, events, ms)
	case timeoutFired:
		ev := Event{Kind: EventTimeout, Msg: v.event, TimeoutKind: v.kind, TimeoutName: v.name}
		return a.dispatch(ctx, []Event{ev}, ms)
	case gen.ExitSignal, gen.EventProcessDown:
		return a.dispatch(ctx, []Event{{Kind: EventInfo, Msg: v}}, ms)
	default:
		return a.dispatch(ctx, []Event{{Kind: EventInfo, Msg: msg}}, ms)
	}
}

func (a *adapter[D]) Terminate(ctx context.Context, reason gen.TerminateReason, ms machineState[D]) {
	if hook, ok := a.user.(terminator[D]); ok {
		hook.Terminate(ctx, reason, ms.name, ms.data)
	}
}

// terminator lets a Behavior optionally observe termination with its final
// state name and data, mirroring gen.Behavior.Terminate one layer up.
type terminator[D any] interface {
	Terminate(ctx context.Context, reason gen.TerminateReason, state StateName, data D)
}

func (a *adapter[D]) dispatch(ctx context.Context, queue []Event, ms machineState[D]) (machineState[D], error) {
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		result := a.safeHandle(ctx, ms.name, cur, ms.data)
		// event_timeout is cancelled on arrival of any event, regardless of
		// how the handler responds to it (spec.md §4.5 "Actions (ordered)").
		a.cancelEventTimeout(&ms)
		switch result.kind {
		case resultPostpone:
			ms.postponed = append(ms.postponed, cur)

		case resultStop:
			return ms, gen.RequestStop(result.reason)

		case resultKeepStateAndData:
			queue = append(a.applyActions(&ms, result.actions), queue...)

		case resultKeepState:
			if d, ok := result.data.(D); ok {
				ms.data = d
			}
			queue = append(a.applyActions(&ms, result.actions), queue...)

		case resultTransition:
			a.runExit(ctx, &ms)
			ms.name = result.next
			if d, ok := result.data.(D); ok {
				ms.data = d
			}
			a.cancelStateTimeout(&ms)
			replay := ms.postponed
			ms.postponed = nil

			enterEvents := a.runEnter(ctx, &ms)
			resultEvents := a.applyActions(&ms, result.actions)

			merged := make([]Event, 0, len(resultEvents)+len(enterEvents)+len(replay)+len(queue))
			merged = append(merged, resultEvents...)
			merged = append(merged, enterEvents...)
			merged = append(merged, replay...)
			merged = append(merged, queue...)
			queue = merged
		}
	}
	return ms, nil
}

func (a *adapter[D]) safeHandle(ctx context.Context, state StateName, ev Event, data D) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Stop(gen.ReasonError(gen.Annotatef(gen.ErrHandlerPanicked, "HandleEvent: %v", r)))
		}
	}()
	return a.user.HandleEvent(ctx, state, ev, data)
}

func (a *adapter[D]) runExit(ctx context.Context, ms *machineState[D]) {
	if hook, ok := a.user.(ExitHook[D]); ok {
		a.applyActions(ms, hook.OnExit(ctx, ms.name, ms.data))
	}
}

func (a *adapter[D]) runEnter(ctx context.Context, ms *machineState[D]) []Event {
	if hook, ok := a.user.(EnterHook[D]); ok {
		return a.applyActions(ms, hook.OnEnter(ctx, ms.name, ms.data))
	}
	return nil
}

// applyActions executes every Action's side effect (arming/canceling
// timers, answering a deferred reply) against the shared Runtime timer
// queue via m.proc, and returns any events NextEvent injected for
// immediate redelivery.
func (a *adapter[D]) applyActions(ms *machineState[D], actions []Action) []Event {
	var injected []Event
	for _, act := range actions {
		switch v := act.(type) {
		case actionReply:
			if v.token.valid() {
				select {
				case v.token.ch <- callReply{val: v.reply}:
				default:
				}
			}
		case actionStateTimeout:
			a.cancelStateTimeout(ms)
			ms.stateTimeoutID = a.m.proc.SendAfter(v.after, timeoutFired{kind: TimeoutState, event: v.event})
		case actionEventTimeout:
			a.cancelEventTimeout(ms)
			ms.eventTimeoutID = a.m.proc.SendAfter(v.after, timeoutFired{kind: TimeoutEvent, event: v.event})
		case actionGenericTimeout:
			if ms.genericTimeoutIDs == nil {
				ms.genericTimeoutIDs = make(map[string]gen.TimerID)
			}
			if old, ok := ms.genericTimeoutIDs[v.name]; ok {
				a.m.proc.CancelTimer(old)
			}
			ms.genericTimeoutIDs[v.name] = a.m.proc.SendAfter(v.after, timeoutFired{kind: TimeoutGeneric, name: v.name, event: v.event})
		case actionCancelGeneric:
			if ms.genericTimeoutIDs != nil {
				if old, ok := ms.genericTimeoutIDs[v.name]; ok {
					a.m.proc.CancelTimer(old)
					delete(ms.genericTimeoutIDs, v.name)
				}
			}
		case actionNextEvent:
			injected = append(injected, Event{Kind: EventInfo, Msg: v.event})
		}
	}
	return injected
}

func (a *adapter[D]) cancelStateTimeout(ms *machineState[D]) {
	if ms.stateTimeoutID != "" {
		a.m.proc.CancelTimer(ms.stateTimeoutID)
		ms.stateTimeoutID = ""
	}
}

func (a *adapter[D]) cancelEventTimeout(ms *machineState[D]) {
	if ms.eventTimeoutID != "" {
		a.m.proc.CancelTimer(ms.eventTimeoutID)
		ms.eventTimeoutID = ""
	}
}
