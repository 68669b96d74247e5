package gen

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/actorkit/ref"
)

// ExitSignal is the Info-message payload a linked process receives when its
// peer terminates and trap-exit is enabled; with trap-exit disabled, a
// non-normal ExitSignal instead kills the receiver directly (spec.md §4.2).
type ExitSignal struct {
	From   ref.Ref
	Reason TerminateReason
}

// Event is the sealed interface for lifecycle events published on an
// EventBus: EventStarted, EventCrashed, EventTerminated, EventStateRestored,
// EventStatePersisted, EventPersistenceError and EventProcessDown.
type Event interface {
	eventName() string
}

type EventStarted struct {
	Proc ref.Ref
	Name string // registered name, or "" if anonymous
}

type EventCrashed struct {
	Proc ref.Ref
	Err  error
}

type EventTerminated struct {
	Proc   ref.Ref
	Reason TerminateReason
}

type EventStateRestored struct {
	Proc        ref.Ref
	PersistedAt time.Time
}

type EventStatePersisted struct {
	Proc        ref.Ref
	PersistedAt time.Time
}

type EventPersistenceError struct {
	Proc ref.Ref
	Op   string // "restore", "save", "delete"
	Err  error
}

type EventProcessDown struct {
	Monitor MonitorID
	Owner   ref.Ref
	Target  ref.Ref
	Reason  DownReason
}

// EventApplicationStopping and EventApplicationStopped bracket an
// application's graceful shutdown sequence (spec.md §8 scenario 8); they
// carry no process Ref since an Application is a host-level controller, not
// a GenServer.
type EventApplicationStopping struct{}

type EventApplicationStopped struct{}

func (EventStarted) eventName() string             { return "started" }
func (EventCrashed) eventName() string              { return "crashed" }
func (EventTerminated) eventName() string           { return "terminated" }
func (EventStateRestored) eventName() string        { return "state_restored" }
func (EventStatePersisted) eventName() string       { return "state_persisted" }
func (EventPersistenceError) eventName() string     { return "persistence_error" }
func (EventProcessDown) eventName() string          { return "process_down" }
func (EventApplicationStopping) eventName() string  { return "stopping" }
func (EventApplicationStopped) eventName() string   { return "stopped" }

// EventName returns an Event's wire-stable tag, e.g. for log fields.
func EventName(ev Event) string { return ev.eventName() }

// EventBus fans lifecycle events out to subscribers synchronously, on the
// publishing goroutine, matching the original runtime's requirement that
// event delivery happen within the emitting process's own call stack rather
// than through an async pub/sub layer (spec.md Design Notes; this is also
// why EventBus is hand-rolled instead of wired to NATS or watermill, see
// SPEC_FULL.md §6.3). A subscriber panic is recovered and logged so one
// faulty observer cannot take down the publisher or other subscribers.
type EventBus struct {
	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
	log  *zap.Logger
}

func NewEventBus(log *zap.Logger) *EventBus {
	return &EventBus{subs: make(map[int]func(Event)), log: log}
}

// Subscribe registers fn and returns a func that removes it. Safe to call
// from within a Publish fanout (the registry is copied before iteration).
func (b *EventBus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers ev to every current subscriber in turn.
func (b *EventBus) Publish(ev Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		b.dispatch(fn, ev)
	}
}

func (b *EventBus) dispatch(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Error("event subscriber panicked", zap.Any("panic", r), zap.String("event", ev.eventName()))
		}
	}()
	fn(ev)
}
