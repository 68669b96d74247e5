package genserver

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/internal/idalloc"
	"github.com/edirooss/actorkit/persistence"
	"github.com/edirooss/actorkit/ref"
)

// Options configures one Start call. Runtime is the only required field;
// everything else defaults to a reasonable value the way spec.md §4.1
// describes (5s init/call timeouts, a 256-entry mailbox, no persistence).
type Options[S, C, K, R any] struct {
	Runtime *Runtime

	// Name optionally registers the process under a name in Runtime.Registry.
	Name string

	// TrapExit, when true, turns linked-peer exits into Info messages
	// instead of letting them kill this process (spec.md §4.2).
	TrapExit bool

	InitTimeout time.Duration
	CallTimeout time.Duration
	MailboxSize int

	// Persistence, if non-nil, couples this process's state to durable
	// storage per spec.md §4.4.
	Persistence        *persistence.Coupler[S]
	PersistInterval    time.Duration // 0 disables periodic snapshots
	PersistOnShutdown  bool
	CleanupOnTerminate bool
}

func (o *Options[S, C, K, R]) setDefaults() {
	if o.InitTimeout <= 0 {
		o.InitTimeout = 5 * time.Second
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 5 * time.Second
	}
	if o.MailboxSize <= 0 {
		o.MailboxSize = 256
	}
}

// Process is one running GenServer instance. It implements gen.Handle so
// the link/monitor fabric and supervisors can act on it without knowing S,
// C, K or R.
type Process[S, C, K, R any] struct {
	ref      ref.Ref
	behavior gen.Behavior[S, C, K, R]
	infoH    gen.InfoHandler[S]
	opts     Options[S, C, K, R]
	rt       *Runtime
	log      *zap.Logger

	mailbox  chan mailboxEntry
	ctx      context.Context
	cancel   context.CancelFunc
	stopped  chan struct{}
	stopOnce sync.Once

	timerIDs *idalloc.Allocator

	// trapExit is set once before the dispatcher goroutine starts and never
	// mutated afterward, so reading it from another process's terminate
	// goroutine (via DeliverExit) needs no synchronization.
	trapExit bool

	// state is owned exclusively by the dispatcher goroutine (run/loop);
	// no other method reads or writes it directly.
	state S

	checkpointMu     sync.Mutex
	lastCheckpointAt time.Time
}

// Start launches behavior as a new process under rt and returns a typed
// handle once Init has completed (or fails/times out). parentCtx bounds the
// process's entire lifetime: canceling it stops the process with
// ReasonShutdown.
func Start[S, C, K, R any](parentCtx context.Context, behavior gen.Behavior[S, C, K, R], opts Options[S, C, K, R]) (*Process[S, C, K, R], error) {
	if opts.Runtime == nil {
		return nil, gen.Annotatef(gen.ErrInvalidStrategy, "Start: Options.Runtime is required")
	}
	opts.setDefaults()

	log := opts.Runtime.Log
	if log == nil {
		log = zap.NewNop()
	}

	id := ref.Ref{ID: opts.Runtime.refIDs.Next()}
	ctx, cancel := context.WithCancel(parentCtx)

	p := &Process[S, C, K, R]{
		ref:      id,
		behavior: behavior,
		opts:     opts,
		rt:       opts.Runtime,
		log:      log,
		mailbox:  make(chan mailboxEntry, opts.MailboxSize),
		ctx:      ctx,
		cancel:   cancel,
		stopped:  make(chan struct{}),
		timerIDs: idalloc.New("t", 0),
	}
	p.trapExit = opts.TrapExit
	if ih, ok := any(behavior).(gen.InfoHandler[S]); ok {
		p.infoH = ih
	}

	initErr := make(chan error, 1)
	go p.run(initErr)

	select {
	case err := <-initErr:
		if err != nil {
			cancel()
			return nil, err
		}
	case <-time.After(opts.InitTimeout):
		cancel()
		<-p.stopped
		return nil, gen.Annotatef(gen.ErrInitTimeout, "start %s", id)
	}

	registerHandle(id, p)

	if opts.Name != "" && opts.Runtime.Registry != nil {
		if err := opts.Runtime.Registry.Register(opts.Name, id); err != nil {
			_ = p.Stop(gen.ReasonShutdown(), 0)
			return nil, err
		}
	}
	if opts.Runtime.Bus != nil {
		opts.Runtime.Bus.Publish(gen.EventStarted{Proc: id, Name: opts.Name})
	}
	return p, nil
}

func (p *Process[S, C, K, R]) run(initErrCh chan<- error) {
	defer close(p.stopped)

	state, err := p.safeInit()
	if err != nil {
		initErrCh <- err
		return
	}

	if p.opts.Persistence != nil {
		restored, found, rerr := p.opts.Persistence.Restore(p.ctx)
		if rerr != nil {
			p.log.Warn("state restore failed, continuing with Init state",
				zap.String("proc", p.ref.String()), zap.Error(rerr))
		} else if found {
			if hook, ok := any(p.behavior).(gen.RestoreHook[S]); ok {
				restored = hook.OnStateRestore(restored)
			}
			state = restored
		}
	}
	p.state = state
	initErrCh <- nil

	var periodic <-chan time.Time
	if p.opts.Persistence != nil && p.opts.PersistInterval > 0 {
		ticker := time.NewTicker(p.opts.PersistInterval)
		defer ticker.Stop()
		periodic = ticker.C
	}

	reason, stopDone := p.loop(periodic)
	p.terminate(reason)
	if stopDone != nil {
		close(stopDone)
	}
}

func (p *Process[S, C, K, R]) loop(periodic <-chan time.Time) (gen.TerminateReason, chan struct{}) {
	for {
		select {
		case <-p.ctx.Done():
			return gen.ReasonShutdown(), nil
		case <-periodic:
			if err := p.persistNow("periodic"); err != nil {
				p.log.Warn("periodic checkpoint failed", zap.String("proc", p.ref.String()), zap.Error(err))
			}
		case entry := <-p.mailbox:
			if r, done := p.dispatch(entry); r != nil {
				return *r, done
			}
		}
	}
}

func (p *Process[S, C, K, R]) dispatch(entry mailboxEntry) (*gen.TerminateReason, chan struct{}) {
	switch e := entry.(type) {
	case *callEntry:
		if e.abandoned.Load() {
			// Caller already gave up and was told ErrCallTimeout; running the
			// handler now would mutate state after the fact. Drop it as if
			// it were never dequeued.
			return nil, nil
		}
		if err := p.handleCall(e); err != nil {
			r := reasonFromHandlerErr(err)
			return &r, nil
		}
	case *castEntry:
		if err := p.handleCast(e); err != nil {
			r := reasonFromHandlerErr(err)
			return &r, nil
		}
	case *infoEntry:
		if err := p.handleInfo(e); err != nil {
			r := reasonFromHandlerErr(err)
			return &r, nil
		}
	case *checkpointEntry:
		e.done <- p.persistNow("manual")
	case *stopEntry:
		return &e.reason, e.done
	}
	return nil, nil
}

func (p *Process[S, C, K, R]) safeInit() (s S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = gen.Annotatef(gen.ErrHandlerPanicked, "Init: %v", r)
		}
	}()
	s, err = p.behavior.Init(p.ctx)
	if err != nil {
		err = gen.Annotatef(err, "init %s", p.ref)
	}
	return s, err
}

// handleCall invokes the behavior's Call handler. Per spec.md §7, a
// handler fault (error or recovered panic) rejects the caller but leaves
// the process running with its prior state unchanged; only a
// gen.RequestStop-tagged error actually terminates the process, in which
// case it is returned so dispatch can act on it.
func (p *Process[S, C, K, R]) handleCall(e *callEntry) (err error) {
	msg, _ := e.msg.(C)
	var reply R
	var next S
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = gen.Annotatef(gen.ErrHandlerPanicked, "HandleCall: %v", r)
			}
		}()
		reply, next, err = p.behavior.HandleCall(p.ctx, msg, p.state)
	}()
	if err != nil {
		if _, ok := gen.AsStopRequest(err); ok {
			// A stop request is not a fault: the returned state is the
			// behavior's deliberate final state and must be visible to
			// Terminate.
			p.state = next
			e.reply <- callResult{val: reply}
			return err
		}
		e.reply <- callResult{err: err}
		return nil
	}
	p.state = next
	e.reply <- callResult{val: reply}
	return nil
}

func reasonFromHandlerErr(err error) gen.TerminateReason {
	if reason, ok := gen.AsStopRequest(err); ok {
		return reason
	}
	return gen.ReasonError(err)
}

// handleCast invokes the behavior's Cast handler. Per spec.md §7, a
// handler fault here is swallowed (logged) and the prior state is kept;
// only a gen.RequestStop-tagged error is propagated to terminate the
// process.
func (p *Process[S, C, K, R]) handleCast(e *castEntry) (err error) {
	msg, _ := e.msg.(K)
	var next S
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = gen.Annotatef(gen.ErrHandlerPanicked, "HandleCast: %v", r)
			}
		}()
		next, err = p.behavior.HandleCast(p.ctx, msg, p.state)
	}()
	if err != nil {
		if _, ok := gen.AsStopRequest(err); ok {
			p.state = next
			return err
		}
		p.log.Warn("HandleCast error, state unchanged", zap.String("proc", p.ref.String()), zap.Error(err))
		return nil
	}
	p.state = next
	return nil
}

// handleInfo invokes the optional InfoHandler. Handler faults behave the
// same as handleCast: swallowed unless the error requests a stop.
func (p *Process[S, C, K, R]) handleInfo(e *infoEntry) (err error) {
	if p.infoH == nil {
		return nil
	}
	var next S
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = gen.Annotatef(gen.ErrHandlerPanicked, "HandleInfo: %v", r)
			}
		}()
		next, err = p.infoH.HandleInfo(p.ctx, e.msg, p.state)
	}()
	if err != nil {
		if _, ok := gen.AsStopRequest(err); ok {
			p.state = next
			return err
		}
		p.log.Warn("HandleInfo error, state unchanged", zap.String("proc", p.ref.String()), zap.Error(err))
		return nil
	}
	p.state = next
	return nil
}

func (p *Process[S, C, K, R]) persistNow(op string) error {
	state := p.state
	if hook, ok := any(p.behavior).(gen.PersistHook[S]); ok {
		state = hook.BeforePersist(state)
	}
	err := p.opts.Persistence.Save(context.Background(), state)
	if err == nil {
		p.checkpointMu.Lock()
		p.lastCheckpointAt = time.Now()
		p.checkpointMu.Unlock()
	} else {
		p.log.Warn("checkpoint failed", zap.String("op", op), zap.String("proc", p.ref.String()), zap.Error(err))
	}
	return err
}

// terminate runs the nine-step shutdown sequence described in spec.md §4.2:
// drain the mailbox rejecting anything still pending, call Terminate, save
// and/or clear persisted state, remove this process from the table so no
// new signal can find it, tear down links and monitors notifying peers, and
// finally publish EventTerminated (which drives the name registry's
// automatic cleanup).
func (p *Process[S, C, K, R]) terminate(reason gen.TerminateReason) {
	p.drainMailbox()
	p.safeTerminateHook(reason)

	if p.opts.Persistence != nil && p.opts.PersistOnShutdown {
		_ = p.persistNow("shutdown")
	}
	if p.opts.Persistence != nil && p.opts.CleanupOnTerminate {
		if err := p.opts.Persistence.Delete(context.Background()); err != nil {
			p.log.Warn("cleanup on terminate failed", zap.String("proc", p.ref.String()), zap.Error(err))
		}
	}

	unregisterHandle(p.ref)

	for _, peer := range p.rt.Links.RemoveProcess(p.ref) {
		deliverExitSignal(peer, gen.ExitSignal{From: p.ref, Reason: reason})
	}
	for _, down := range p.rt.Monitors.TargetDown(p.ref, gen.DownReasonFromTerminate(reason)) {
		deliverInfo(down.Owner, down)
	}
	p.rt.Monitors.OwnerGone(p.ref)

	p.cancel()
	if p.rt.Bus != nil {
		if err, ok := reason.Err(); ok {
			p.rt.Bus.Publish(gen.EventCrashed{Proc: p.ref, Err: err})
		}
		p.rt.Bus.Publish(gen.EventTerminated{Proc: p.ref, Reason: reason})
	}
}

func (p *Process[S, C, K, R]) drainMailbox() {
	for {
		select {
		case entry := <-p.mailbox:
			switch e := entry.(type) {
			case *callEntry:
				e.reply <- callResult{err: gen.Annotatef(gen.ErrServerNotRunning, "%s is terminating", p.ref)}
			case *checkpointEntry:
				e.done <- gen.Annotatef(gen.ErrServerNotRunning, "%s is terminating", p.ref)
			case *stopEntry:
				if e.done != nil {
					close(e.done)
				}
			}
		default:
			return
		}
	}
}

func (p *Process[S, C, K, R]) safeTerminateHook(reason gen.TerminateReason) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Terminate hook panicked", zap.Any("panic", r), zap.String("proc", p.ref.String()))
		}
	}()
	p.behavior.Terminate(context.Background(), reason, p.state)
}

// errFromExit converts an ExitSignal's TerminateReason into a plain error
// for wrapping into this process's own crash reason when a link propagates.
func errFromExit(sig gen.ExitSignal) error {
	if err, ok := sig.Reason.Err(); ok {
		return err
	}
	return stderrors.New("linked process " + sig.From.String() + " exited: " + sig.Reason.String())
}
