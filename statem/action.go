package statem

import "time"

// Action is the sealed set of side effects a HandleEvent result can request
// alongside a state transition: replying to a deferred call, arming a
// timeout, canceling a named generic timeout, or injecting a synthetic
// follow-up event (spec.md §4.5).
type Action interface{ isAction() }

type actionReply struct {
	token ReplyToken
	reply any
}

type actionStateTimeout struct {
	after time.Duration
	event any
}

type actionEventTimeout struct {
	after time.Duration
	event any
}

type actionGenericTimeout struct {
	name  string
	after time.Duration
	event any
}

type actionCancelGeneric struct{ name string }

type actionNextEvent struct{ event any }

func (actionReply) isAction()          {}
func (actionStateTimeout) isAction()   {}
func (actionEventTimeout) isAction()   {}
func (actionGenericTimeout) isAction() {}
func (actionCancelGeneric) isAction()  {}
func (actionNextEvent) isAction()      {}

// Reply answers a deferred call captured earlier as a ReplyToken. It may be
// returned from the Result that handles the originating call event, or from
// any later event's Result once the real answer is ready.
func Reply(token ReplyToken, reply any) Action { return actionReply{token: token, reply: reply} }

// StateTimeout arms a timeout that fires event if the machine is still in
// the same state when after elapses; entering any other state (even
// re-entering the same one via Transition) cancels it.
func StateTimeout(after time.Duration, event any) Action {
	return actionStateTimeout{after: after, event: event}
}

// EventTimeout arms a timeout that fires event if no other event arrives
// within after; any event that arrives first cancels it.
func EventTimeout(after time.Duration, event any) Action {
	return actionEventTimeout{after: after, event: event}
}

// GenericTimeout arms a named timeout independent of state transitions and
// other events; it fires once after elapses unless canceled with
// CancelGenericTimeout(name) or re-armed with the same name.
func GenericTimeout(name string, after time.Duration, event any) Action {
	return actionGenericTimeout{name: name, after: after, event: event}
}

// CancelGenericTimeout cancels a pending named generic timeout.
func CancelGenericTimeout(name string) Action { return actionCancelGeneric{name: name} }

// NextEvent injects event to be handled immediately after the current
// Result is applied, before any postponed or queued events.
func NextEvent(event any) Action { return actionNextEvent{event: event} }
