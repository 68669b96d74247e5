package gen

import (
	"sync"
	"testing"

	"github.com/edirooss/actorkit/ref"
)

func TestEventBusFanout(t *testing.T) {
	bus := NewEventBus(nil)
	var mu sync.Mutex
	var got []string

	unsub1 := bus.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, "a:"+ev.eventName())
	})
	bus.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, "b:"+ev.eventName())
	})

	bus.Publish(EventStarted{Proc: ref.Ref{ID: "p1"}})
	unsub1()
	bus.Publish(EventTerminated{Proc: ref.Ref{ID: "p1"}, Reason: ReasonNormal()})

	mu.Lock()
	defer mu.Unlock()
	want := []string{"a:started", "b:started", "b:terminated"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestEventBusSubscriberPanicIsolated(t *testing.T) {
	bus := NewEventBus(nil)
	bus.Subscribe(func(Event) { panic("boom") })

	var called bool
	bus.Subscribe(func(Event) { called = true })

	bus.Publish(EventStarted{})
	if !called {
		t.Fatal("second subscriber should still run after first panics")
	}
}
