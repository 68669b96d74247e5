package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/ref"
)

type counterState struct {
	Count int `json:"count"`
}

func TestCouplerRestoreNotFound(t *testing.T) {
	adapter := newMemAdapter()
	c := NewCoupler[counterState](adapter, DefaultConfig("counter/1"), ref.Ref{ID: "p1"}, nil, nil)

	_, found, err := c.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if found {
		t.Fatal("expected found=false for empty adapter")
	}
}

func TestCouplerSaveThenRestoreRoundTrips(t *testing.T) {
	adapter := newMemAdapter()
	c := NewCoupler[counterState](adapter, DefaultConfig("counter/1"), ref.Ref{ID: "p1"}, nil, nil)

	ctx := context.Background()
	if err := c.Save(ctx, counterState{Count: 42}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, found, err := c.Restore(ctx)
	if err != nil || !found {
		t.Fatalf("Restore = %+v, %v, %v", got, found, err)
	}
	if got.Count != 42 {
		t.Fatalf("Restore Count = %d, want 42", got.Count)
	}
}

func TestCouplerRestorePublishesEvent(t *testing.T) {
	adapter := newMemAdapter()
	bus := gen.NewEventBus(nil)
	proc := ref.Ref{ID: "p1"}
	c := NewCoupler[counterState](adapter, DefaultConfig("counter/1"), proc, bus, nil)

	var gotRestored bool
	bus.Subscribe(func(ev gen.Event) {
		if _, ok := ev.(gen.EventStateRestored); ok {
			gotRestored = true
		}
	})

	ctx := context.Background()
	must(t, c.Save(ctx, counterState{Count: 1}))
	if _, _, err := c.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !gotRestored {
		t.Fatal("expected EventStateRestored to be published")
	}
}

func TestCouplerMaxStateAgeRejectsStaleSnapshot(t *testing.T) {
	adapter := newMemAdapter()
	cfg := DefaultConfig("counter/1")
	cfg.MaxStateAge = time.Millisecond
	c := NewCoupler[counterState](adapter, cfg, ref.Ref{ID: "p1"}, nil, nil)

	ctx := context.Background()
	must(t, c.Save(ctx, counterState{Count: 1}))
	time.Sleep(5 * time.Millisecond)

	_, _, err := c.Restore(ctx)
	if !gen.Is(err, gen.ErrStaleState) {
		t.Fatalf("Restore err = %v, want ErrStaleState", err)
	}
}

func TestCouplerSaveFailurePublishesPersistenceError(t *testing.T) {
	adapter := newMemAdapter()
	adapter.fail = errors.New("disk full")
	cfg := DefaultConfig("counter/1")
	cfg.RetryMaxElapsed = 10 * time.Millisecond
	bus := gen.NewEventBus(nil)
	c := NewCoupler[counterState](adapter, cfg, ref.Ref{ID: "p1"}, bus, nil)

	var gotErr bool
	bus.Subscribe(func(ev gen.Event) {
		if _, ok := ev.(gen.EventPersistenceError); ok {
			gotErr = true
		}
	})

	if err := c.Save(context.Background(), counterState{Count: 1}); err == nil {
		t.Fatal("expected Save to fail")
	}
	if !gotErr {
		t.Fatal("expected EventPersistenceError to be published")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
