package genserver

import (
	"context"
	"time"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/internal/timerqueue"
	"github.com/edirooss/actorkit/ref"
)

// timerHandle namespaces a process-local TimerID by owner Ref so that many
// processes sharing one Runtime-wide timerqueue.Queue cannot collide.
func timerHandle(owner ref.Ref, id gen.TimerID) timerqueue.Handle {
	return timerqueue.Handle(owner.String() + "#" + string(id))
}

// Ref returns this process's identity.
func (p *Process[S, C, K, R]) Ref() ref.Ref { return p.ref }

// TypedRef returns the phantom-typed handle form of this process's Ref, for
// code (e.g. a Supervisor's child list) that stores refs of many processes
// uniformly and recovers the typed API later via Lookup.
func (p *Process[S, C, K, R]) TypedRef() gen.TypedRef[S, C, K, R] {
	return gen.NewTypedRef[S, C, K, R](p.ref)
}

// Call sends msg and blocks for a reply using the process's configured
// default timeout.
func (p *Process[S, C, K, R]) Call(ctx context.Context, msg C) (R, error) {
	return p.CallWithTimeout(ctx, msg, p.opts.CallTimeout)
}

// CallWithTimeout sends msg and blocks for a reply for at most timeout (and
// no longer than ctx allows).
func (p *Process[S, C, K, R]) CallWithTimeout(ctx context.Context, msg C, timeout time.Duration) (R, error) {
	var zero R
	reply := make(chan callResult, 1)
	entry := &callEntry{msg: msg, reply: reply}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case p.mailbox <- entry:
	case <-p.stopped:
		return zero, gen.Annotatef(gen.ErrServerNotRunning, "call to %s", p.ref)
	case <-cctx.Done():
		return zero, gen.Annotatef(gen.ErrCallTimeout, "enqueue call to %s", p.ref)
	}

	select {
	case res := <-reply:
		if res.err != nil {
			return zero, res.err
		}
		r, _ := res.val.(R)
		return r, nil
	case <-p.stopped:
		return zero, gen.Annotatef(gen.ErrServerNotRunning, "call to %s", p.ref)
	case <-cctx.Done():
		entry.abandoned.Store(true)
		return zero, gen.Annotatef(gen.ErrCallTimeout, "call to %s", p.ref)
	}
}

// Cast sends msg without waiting for any acknowledgement.
func (p *Process[S, C, K, R]) Cast(msg K) error {
	select {
	case p.mailbox <- &castEntry{msg: msg}:
		return nil
	case <-p.stopped:
		return gen.Annotatef(gen.ErrServerNotRunning, "cast to %s", p.ref)
	}
}

// Stop requests termination with reason and waits up to timeout for it to
// complete (0 waits forever). Calling Stop more than once, or on an
// already-stopped process, is a no-op.
func (p *Process[S, C, K, R]) Stop(reason gen.TerminateReason, timeout time.Duration) error {
	done := make(chan struct{})
	select {
	case p.mailbox <- &stopEntry{reason: reason, done: done}:
	case <-p.stopped:
		return nil
	}

	if timeout <= 0 {
		select {
		case <-done:
		case <-p.stopped:
		}
		return nil
	}
	select {
	case <-done:
		return nil
	case <-p.stopped:
		return nil
	case <-time.After(timeout):
		p.cancel()
		<-p.stopped
		return nil
	}
}

// SendAfter schedules msg for delivery as an Info message after d elapses.
func (p *Process[S, C, K, R]) SendAfter(d time.Duration, msg any) gen.TimerID {
	id := gen.TimerID(p.timerIDs.Next())
	p.rt.timers().Schedule(timerHandle(p.ref, id), time.Now().Add(d), func() {
		p.enqueueInfo(msg)
	})
	return id
}

// CancelTimer cancels a pending SendAfter timer. Returns false if it already
// fired or never existed.
func (p *Process[S, C, K, R]) CancelTimer(id gen.TimerID) bool {
	return p.rt.timers().Cancel(timerHandle(p.ref, id))
}

// Link establishes a symmetric link with other. Linking to a process that
// does not exist locally delivers an immediate exit signal to this process,
// matching Erlang's link/1 semantics for a dead or nonexistent pid.
func (p *Process[S, C, K, R]) Link(other ref.Ref) {
	p.rt.Links.Link(p.ref, other)
	if _, ok := Lookup(other); !ok {
		p.DeliverExit(gen.ExitSignal{From: other, Reason: gen.ReasonError(gen.Annotatef(gen.ErrNoSuchChild, "link target %s", other))})
	}
}

// Unlink removes the link (if any) directly connecting this process to
// other.
func (p *Process[S, C, K, R]) Unlink(other ref.Ref) {
	p.rt.Links.UnlinkPair(p.ref, other)
}

// Monitor starts watching target, returning a MonitorID Demonitor accepts.
// If target does not exist locally, an EventProcessDown with DownNoproc is
// delivered immediately as an Info message and the returned id is empty.
func (p *Process[S, C, K, R]) Monitor(target ref.Ref) gen.MonitorID {
	if _, ok := Lookup(target); !ok {
		p.enqueueInfo(gen.EventProcessDown{Owner: p.ref, Target: target, Reason: gen.DownNoproc()})
		return ""
	}
	return p.rt.Monitors.Monitor(p.ref, target)
}

// Demonitor cancels a monitor previously returned by Monitor.
func (p *Process[S, C, K, R]) Demonitor(id gen.MonitorID) {
	p.rt.Monitors.Demonitor(id)
}

// Checkpoint synchronously saves the process's current state through its
// persistence Coupler, running on the dispatcher goroutine so the snapshot
// always reflects a consistent state (spec.md §4.4, manual checkpoint).
func (p *Process[S, C, K, R]) Checkpoint(ctx context.Context) error {
	if p.opts.Persistence == nil {
		return gen.ErrPersistenceNotConfigured
	}
	done := make(chan error, 1)
	select {
	case p.mailbox <- &checkpointEntry{done: done}:
	case <-p.stopped:
		return gen.ErrServerNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-p.stopped:
		return gen.ErrServerNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetLastCheckpointMeta returns the time of the last successful checkpoint
// and whether one has ever occurred.
func (p *Process[S, C, K, R]) GetLastCheckpointMeta() (time.Time, bool) {
	p.checkpointMu.Lock()
	defer p.checkpointMu.Unlock()
	return p.lastCheckpointAt, !p.lastCheckpointAt.IsZero()
}

// ClearPersistedState deletes this process's snapshot from durable storage.
func (p *Process[S, C, K, R]) ClearPersistedState(ctx context.Context) error {
	if p.opts.Persistence == nil {
		return gen.ErrPersistenceNotConfigured
	}
	return p.opts.Persistence.Delete(ctx)
}

// DeliverExit implements gen.Handle: with trap-exit enabled the signal
// becomes an Info message; otherwise a normal-reason exit is ignored (the
// Erlang convention - an untrapped linked process does not react to its
// peers exiting cleanly) and any other reason kills this process.
func (p *Process[S, C, K, R]) DeliverExit(sig gen.ExitSignal) {
	if p.trapExit {
		p.enqueueInfo(sig)
		return
	}
	if sig.Reason.IsNormal() {
		return
	}
	p.enqueueStop(gen.ReasonError(errFromExit(sig)))
}

// DeliverInfo implements gen.Handle, enqueueing an arbitrary Info message
// (used for EventProcessDown notifications).
func (p *Process[S, C, K, R]) DeliverInfo(msg any) {
	p.enqueueInfo(msg)
}

func (p *Process[S, C, K, R]) enqueueInfo(msg any) {
	select {
	case p.mailbox <- &infoEntry{msg: msg}:
	case <-p.stopped:
	}
}

func (p *Process[S, C, K, R]) enqueueStop(reason gen.TerminateReason) {
	select {
	case p.mailbox <- &stopEntry{reason: reason}:
	case <-p.stopped:
	}
}
