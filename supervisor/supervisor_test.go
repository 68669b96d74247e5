package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/genserver"
)

// workerBehavior is a minimal GenServer used as a supervised child: Cast
// "die" exits with an error reason, Cast "quit" exits normal, Call "ping"
// replies "pong". A start counter lets tests observe restarts.
type workerBehavior struct {
	starts *int32
}

func (w *workerBehavior) Init(ctx context.Context) (int, error) {
	atomic.AddInt32(w.starts, 1)
	return 0, nil
}

func (w *workerBehavior) HandleCall(ctx context.Context, msg string, state int) (string, int, error) {
	return "pong", state, nil
}

func (w *workerBehavior) HandleCast(ctx context.Context, msg string, state int) (int, error) {
	switch msg {
	case "die":
		return state, gen.RequestStop(gen.ReasonError(errors.New("worker crashed")))
	case "quit":
		return state, gen.RequestStop(gen.ReasonNormal())
	}
	return state, nil
}

func (w *workerBehavior) Terminate(ctx context.Context, reason gen.TerminateReason, state int) {}

func startFunc(rt *genserver.Runtime, starts *int32) StartFunc {
	return func(ctx context.Context) (gen.Handle, error) {
		return genserver.Start[int, string, string, string](ctx, &workerBehavior{starts: starts}, genserver.Options[int, string, string, string]{Runtime: rt})
	}
}

func failingStartFunc() StartFunc {
	return func(ctx context.Context) (gen.Handle, error) {
		return nil, errors.New("cannot start")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

// selfCrashingStartFunc starts a worker and, after a short delay, kills it
// with an error reason from outside - standing in for an internal fault,
// since workerBehavior has no self-destruct message once hidden behind
// gen.Handle.
func selfCrashingStartFunc(rt *genserver.Runtime, starts *int32, delay time.Duration) StartFunc {
	var crashed int32
	return func(ctx context.Context) (gen.Handle, error) {
		p, err := genserver.Start[int, string, string, string](ctx, &workerBehavior{starts: starts}, genserver.Options[int, string, string, string]{Runtime: rt})
		if err != nil {
			return nil, err
		}
		if atomic.CompareAndSwapInt32(&crashed, 0, 1) {
			go func() {
				time.Sleep(delay)
				p.Cast("die")
			}()
		}
		return p, nil
	}
}

func TestOneForOneRestartsOnlyFailedChild(t *testing.T) {
	rt := genserver.NewRuntime(nil)
	defer rt.Close()

	var startsA, startsB int32
	sup, err := Start(context.Background(), Options{
		Runtime:  rt,
		Strategy: OneForOne,
		Children: []ChildSpec{
			{ID: "a", Start: selfCrashingStartFunc(rt, &startsA, 30*time.Millisecond), Restart: Permanent},
			{ID: "b", Start: startFunc(rt, &startsB), Restart: Permanent},
		},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(gen.ReasonShutdown(), time.Second)

	waitFor(t, func() bool { return atomic.LoadInt32(&startsA) == 2 })
	if atomic.LoadInt32(&startsB) != 1 {
		t.Fatalf("sibling b restarted unexpectedly: starts=%d", startsB)
	}
}

func TestOneForAllRestartsEverySibling(t *testing.T) {
	rt := genserver.NewRuntime(nil)
	defer rt.Close()

	var startsA, startsB int32
	sup, err := Start(context.Background(), Options{
		Runtime:  rt,
		Strategy: OneForAll,
		Children: []ChildSpec{
			{ID: "a", Start: selfCrashingStartFunc(rt, &startsA, 30*time.Millisecond), Restart: Permanent},
			{ID: "b", Start: startFunc(rt, &startsB), Restart: Permanent},
		},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(gen.ReasonShutdown(), time.Second)

	waitFor(t, func() bool {
		return atomic.LoadInt32(&startsA) == 2 && atomic.LoadInt32(&startsB) == 2
	})
}

func TestTerminateChildRemovesTemporaryChild(t *testing.T) {
	rt := genserver.NewRuntime(nil)
	defer rt.Close()

	sup, err := Start(context.Background(), Options{
		Runtime:  rt,
		Strategy: OneForOne,
		Children: []ChildSpec{
			{ID: "a", Start: func(ctx context.Context) (gen.Handle, error) {
				return genserver.Start[int, string, string, string](ctx, &workerBehavior{starts: new(int32)}, genserver.Options[int, string, string, string]{Runtime: rt})
			}, Restart: Temporary},
		},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(gen.ReasonShutdown(), time.Second)

	if err := sup.TerminateChild(context.Background(), "a"); err != nil {
		t.Fatalf("TerminateChild: %v", err)
	}

	waitFor(t, func() bool {
		info, err := sup.CountChildren(context.Background())
		return err == nil && info.Active == 0
	})
}

func TestStartupFailureRollsBackSiblings(t *testing.T) {
	rt := genserver.NewRuntime(nil)
	defer rt.Close()

	var startsA int32

	_, err := Start(context.Background(), Options{
		Runtime:  rt,
		Strategy: OneForOne,
		Children: []ChildSpec{
			{ID: "a", Start: func(ctx context.Context) (gen.Handle, error) {
				h, err := startFunc(rt, &startsA)(ctx)
				return h, err
			}, Restart: Permanent},
			{ID: "b", Start: failingStartFunc(), Restart: Permanent},
		},
	})
	if err == nil {
		t.Fatalf("expected Start to fail when a child's Start factory errors")
	}
}

// crashLoopStartFunc starts a worker that kills itself shortly after every
// start, so the watcher keeps resubmitting restart decisions fast enough to
// blow through a tight intensity window.
func crashLoopStartFunc(rt *genserver.Runtime, starts *int32) StartFunc {
	return func(ctx context.Context) (gen.Handle, error) {
		p, err := genserver.Start[int, string, string, string](ctx, &workerBehavior{starts: starts}, genserver.Options[int, string, string, string]{Runtime: rt})
		if err != nil {
			return nil, err
		}
		go func() {
			time.Sleep(5 * time.Millisecond)
			p.Cast("die")
		}()
		return p, nil
	}
}

func TestMaxRestartsExceededShutsDownSupervisor(t *testing.T) {
	rt := genserver.NewRuntime(nil)
	defer rt.Close()

	var starts int32
	sup, err := Start(context.Background(), Options{
		Runtime:     rt,
		Strategy:    OneForOne,
		MaxRestarts: 2,
		Within:      time.Minute,
		Children: []ChildSpec{
			{ID: "a", Start: crashLoopStartFunc(rt, &starts), Restart: Permanent},
		},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool {
		_, err := sup.CountChildren(context.Background())
		return err != nil
	})

	// MaxRestarts=2 allows exactly 2 successful restarts on top of the
	// initial start (3 starts total); the 3rd crash finds the intensity
	// budget exhausted and shuts the supervisor down without a 4th start.
	if got := atomic.LoadInt32(&starts); got != 3 {
		t.Fatalf("starts = %d, want 3 (initial start + 2 restarts, then shutdown)", got)
	}
}

func TestAutoShutdownOnSignificantChildRemoval(t *testing.T) {
	rt := genserver.NewRuntime(nil)
	defer rt.Close()

	var startsSig, startsOther int32
	sup, err := Start(context.Background(), Options{
		Runtime:      rt,
		Strategy:     OneForOne,
		AutoShutdown: AutoShutdownAnySignificant,
		Children: []ChildSpec{
			{ID: "sig", Start: startFunc(rt, &startsSig), Restart: Temporary, Significant: true},
			{ID: "other", Start: startFunc(rt, &startsOther), Restart: Permanent},
		},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := sup.TerminateChild(context.Background(), "sig"); err != nil {
		t.Fatalf("TerminateChild: %v", err)
	}

	waitFor(t, func() bool {
		_, err := sup.CountChildren(context.Background())
		return err != nil
	})
}

func TestSimpleOneForOneDynamicChildren(t *testing.T) {
	rt := genserver.NewRuntime(nil)
	defer rt.Close()

	var starts int32
	sup, err := Start(context.Background(), Options{
		Runtime:  rt,
		Strategy: SimpleOneForOne,
		Template: &Template{
			Start: func(ctx context.Context, args ...any) (gen.Handle, error) {
				return startFunc(rt, &starts)(ctx)
			},
			Restart: Temporary,
		},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(gen.ReasonShutdown(), time.Second)

	if _, err := sup.StartDynamicChild(context.Background()); err != nil {
		t.Fatalf("StartDynamicChild: %v", err)
	}
	if _, err := sup.StartDynamicChild(context.Background()); err != nil {
		t.Fatalf("StartDynamicChild: %v", err)
	}

	waitFor(t, func() bool {
		info, err := sup.CountChildren(context.Background())
		return err == nil && info.Active == 2
	})

	if _, err := sup.StartChild(context.Background(), ChildSpec{ID: "static"}); err == nil {
		t.Fatalf("expected StartChild(spec) to be rejected for simple_one_for_one")
	}
}

func TestStopShutsDownSupervisor(t *testing.T) {
	rt := genserver.NewRuntime(nil)
	defer rt.Close()

	var startsA, startsB int32
	sup, err := Start(context.Background(), Options{
		Runtime:  rt,
		Strategy: OneForOne,
		Children: []ChildSpec{
			{ID: "a", Start: startFunc(rt, &startsA), Restart: Permanent, ShutdownTimeout: time.Second},
			{ID: "b", Start: startFunc(rt, &startsB), Restart: Permanent, ShutdownTimeout: time.Second},
		},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := sup.Stop(gen.ReasonShutdown(), time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	info, err := sup.CountChildren(context.Background())
	if err == nil {
		t.Fatalf("expected supervisor to be stopped, got CountChildren=%v", info)
	}
}
