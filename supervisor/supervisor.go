// Package supervisor implements the Supervisor runtime: restart
// strategies, the intensity window, significant-child auto-shutdown and
// ordered startup/shutdown (spec.md §4.3). A Supervisor is itself a
// GenServer: dynamic operations (StartChild, TerminateChild, RestartChild,
// introspection) are synchronous Calls, and child-termination
// notifications arrive as an internal Cast from an EventBus subscription,
// so every mutation of the child table runs on the supervisor's own
// dispatcher goroutine exactly like any other process's state (spec.md §5
// "Process state is owned by one process only"). Hand-implemented rather
// than delegated to a ready-made supervision tree library, see DESIGN.md.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/genserver"
	"github.com/edirooss/actorkit/ref"
)

// Supervisor manages a set of child processes under one restart strategy.
type Supervisor struct {
	proc *genserver.Process[supState, request, childExited, any]
}

// Start launches the supervisor: static children start in declaration
// order, and on any start failure the already-started siblings are shut
// down in reverse order and Start itself fails (spec.md §4.3 "Startup").
func Start(ctx context.Context, opts Options) (*Supervisor, error) {
	opts.setDefaults()
	if opts.Runtime == nil {
		return nil, gen.Annotatef(gen.ErrInvalidStrategy, "supervisor.Start: Options.Runtime is required")
	}
	if opts.Strategy == SimpleOneForOne && opts.Template == nil {
		return nil, gen.ErrMissingTemplate
	}

	log := opts.Runtime.Log
	if log == nil {
		log = zap.NewNop()
	}

	adp := &adapter{opts: opts, log: log}
	if opts.Runtime.Bus != nil {
		adp.unsub = opts.Runtime.Bus.Subscribe(adp.onEvent)
	}

	p, err := genserver.Start[supState, request, childExited, any](ctx, adp, genserver.Options[supState, request, childExited, any]{
		Runtime:  opts.Runtime,
		Name:     opts.Name,
		TrapExit: true,
	})
	if err != nil {
		if adp.unsub != nil {
			adp.unsub()
		}
		return nil, err
	}

	adp.mu.Lock()
	adp.proc = p
	adp.ready = true
	queued := adp.queued
	adp.queued = nil
	adp.mu.Unlock()

	for _, ce := range queued {
		_ = p.Cast(ce)
	}

	return &Supervisor{proc: p}, nil
}

func (s *Supervisor) Ref() ref.Ref { return s.proc.Ref() }

// Stop shuts the supervisor down, which shuts down every child in reverse
// declaration order first (spec.md §4.3 "Shutdown").
func (s *Supervisor) Stop(reason gen.TerminateReason, timeout time.Duration) error {
	return s.proc.Stop(reason, timeout)
}

// StartChild adds a new static child. Only valid for strategies other than
// SimpleOneForOne; duplicate ids return gen.ErrDuplicateChild.
func (s *Supervisor) StartChild(ctx context.Context, spec ChildSpec) (ref.Ref, error) {
	v, err := s.proc.Call(ctx, reqStartChild{spec: spec})
	if err != nil {
		return ref.Ref{}, err
	}
	r, _ := v.(ref.Ref)
	return r, nil
}

// StartDynamicChild starts a new child from the SimpleOneForOne template
// with args. Only valid for that strategy.
func (s *Supervisor) StartDynamicChild(ctx context.Context, args ...any) (ref.Ref, error) {
	v, err := s.proc.Call(ctx, reqStartDynamicChild{args: args})
	if err != nil {
		return ref.Ref{}, err
	}
	r, _ := v.(ref.Ref)
	return r, nil
}

// TerminateChild gracefully stops and permanently removes the child,
// triggering the auto-shutdown check.
func (s *Supervisor) TerminateChild(ctx context.Context, id string) error {
	_, err := s.proc.Call(ctx, reqTerminateChild{id: id})
	return err
}

// RestartChild gracefully stops then restarts the child via its start
// factory. Not subject to the intensity window.
func (s *Supervisor) RestartChild(ctx context.Context, id string) (ref.Ref, error) {
	v, err := s.proc.Call(ctx, reqRestartChild{id: id})
	if err != nil {
		return ref.Ref{}, err
	}
	r, _ := v.(ref.Ref)
	return r, nil
}

// WhichChildren returns a read-only snapshot of every current child.
func (s *Supervisor) WhichChildren(ctx context.Context) ([]ChildInfo, error) {
	v, err := s.proc.Call(ctx, reqWhichChildren{})
	if err != nil {
		return nil, err
	}
	infos, _ := v.([]ChildInfo)
	return infos, nil
}

// CountChildren summarizes the child population.
func (s *Supervisor) CountChildren(ctx context.Context) (CountInfo, error) {
	v, err := s.proc.Call(ctx, reqCountChildren{})
	if err != nil {
		return CountInfo{}, err
	}
	c, _ := v.(CountInfo)
	return c, nil
}

// Dump renders a human-readable go-spew snapshot of the child table, for
// debugging and for the out-of-scope Observer collaborator.
func (s *Supervisor) Dump(ctx context.Context) (string, error) {
	v, err := s.proc.Call(ctx, reqDump{})
	if err != nil {
		return "", err
	}
	str, _ := v.(string)
	return str, nil
}

// adapter bridges Options/ChildSpec/Template into gen.Behavior[supState,
// request, childExited, any], the shape genserver.Process actually runs.
type adapter struct {
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	ready  bool
	proc   *genserver.Process[supState, request, childExited, any]
	queued []childExited
	unsub  func()
}

// onEvent is the EventBus subscriber installed before the supervisor's own
// process exists. Events observed before adp.proc is assigned are queued
// and flushed by Start once it is, so no child termination between
// subscribing and the supervisor becoming ready to receive a Cast is ever
// lost (mirrors statem's armInitialActions handoff).
func (a *adapter) onEvent(ev gen.Event) {
	te, ok := ev.(gen.EventTerminated)
	if !ok {
		return
	}
	ce := childExited{proc: te.Proc, reason: te.Reason}

	a.mu.Lock()
	if !a.ready {
		a.queued = append(a.queued, ce)
		a.mu.Unlock()
		return
	}
	proc := a.proc
	a.mu.Unlock()

	_ = proc.Cast(ce)
}

func (a *adapter) Init(ctx context.Context) (supState, error) {
	st := newSupState()
	if a.opts.Strategy == SimpleOneForOne {
		return st, nil
	}
	for _, spec := range a.opts.Children {
		if _, exists := st.byID[spec.ID]; exists {
			a.shutdownAll(&st)
			return st, gen.Annotatef(gen.ErrDuplicateChild, "child %q", spec.ID)
		}
		if err := a.startStatic(ctx, &st, spec); err != nil {
			a.shutdownAll(&st)
			return st, gen.Annotatef(err, "start child %q", spec.ID)
		}
	}
	return st, nil
}

func (a *adapter) HandleCall(ctx context.Context, req request, st supState) (any, supState, error) {
	switch v := req.(type) {
	case reqStartChild:
		if a.opts.Strategy == SimpleOneForOne {
			return nil, st, gen.Annotatef(gen.ErrInvalidStrategy, "StartChild(spec) is not valid for simple_one_for_one")
		}
		if _, exists := st.byID[v.spec.ID]; exists {
			return nil, st, gen.Annotatef(gen.ErrDuplicateChild, "child %q", v.spec.ID)
		}
		if err := a.startStatic(ctx, &st, v.spec); err != nil {
			return nil, st, err
		}
		return st.byID[v.spec.ID].handle.Ref(), st, nil

	case reqStartDynamicChild:
		if a.opts.Strategy != SimpleOneForOne {
			return nil, st, gen.Annotatef(gen.ErrInvalidStrategy, "StartChild(args...) is only valid for simple_one_for_one")
		}
		tmpl := a.opts.Template
		st.dynamicSeq++
		id := fmt.Sprintf("child-%d", st.dynamicSeq)
		args := v.args
		spec := ChildSpec{
			ID:              id,
			Start:           func(ctx context.Context) (gen.Handle, error) { return tmpl.Start(ctx, args...) },
			Restart:         tmpl.Restart,
			ShutdownTimeout: tmpl.ShutdownTimeout,
			Significant:     tmpl.Significant,
		}
		if err := a.startStatic(ctx, &st, spec); err != nil {
			return nil, st, err
		}
		st.byID[id].args = args
		return st.byID[id].handle.Ref(), st, nil

	case reqTerminateChild:
		rec, ok := st.byID[v.id]
		if !ok {
			return nil, st, gen.Annotatef(gen.ErrNoSuchChild, "%q", v.id)
		}
		significant := rec.spec.Significant
		a.stopChildGraceful(rec)
		st.remove(v.id)
		if reason := a.checkAutoShutdown(&st, significant); reason != nil {
			return nil, st, gen.RequestStop(*reason)
		}
		return nil, st, nil

	case reqRestartChild:
		rec, ok := st.byID[v.id]
		if !ok {
			return nil, st, gen.Annotatef(gen.ErrNoSuchChild, "%q", v.id)
		}
		a.stopChildGraceful(rec)
		if err := a.restartOne(ctx, &st, v.id); err != nil {
			return nil, st, gen.Annotatef(err, "restart child %q", v.id)
		}
		return st.byID[v.id].handle.Ref(), st, nil

	case reqWhichChildren:
		return snapshotChildren(&st), st, nil

	case reqCountChildren:
		return CountInfo{Specs: len(st.order), Active: len(st.order)}, st, nil

	case reqDump:
		return spew.Sdump(snapshotChildren(&st)), st, nil
	}
	return nil, st, gen.Annotatef(gen.ErrInvalidStrategy, "unknown request %T", req)
}

// HandleCast processes a childExited notification: decides whether to
// restart per the child's RestartPolicy, applies the strategy's blast
// radius if so, otherwise permanently removes the child and runs the
// auto-shutdown check (spec.md §4.3).
func (a *adapter) HandleCast(ctx context.Context, ev childExited, st supState) (supState, error) {
	id, ok := st.byRef[ev.proc]
	if !ok {
		return st, nil
	}
	rec := st.byID[id]
	rec.lastReason = ev.reason

	if !shouldRestart(rec.spec.Restart, ev.reason) {
		significant := rec.spec.Significant
		st.remove(id)
		if reason := a.checkAutoShutdown(&st, significant); reason != nil {
			return st, gen.RequestStop(*reason)
		}
		return st, nil
	}

	if !a.recordRestart(&st) {
		return st, gen.RequestStop(gen.ReasonError(gen.Annotatef(gen.ErrMaxRestartsExceeded, "restart intensity")))
	}

	var err error
	switch a.opts.Strategy {
	case OneForAll:
		err = a.restartAll(ctx, &st)
	case RestForOne:
		err = a.restartSuffix(ctx, &st, id)
	default: // OneForOne, SimpleOneForOne
		err = a.restartOne(ctx, &st, id)
	}
	if err != nil {
		return st, gen.RequestStop(gen.ReasonError(gen.Annotatef(err, "restart failed")))
	}
	return st, nil
}

func (a *adapter) Terminate(ctx context.Context, reason gen.TerminateReason, st supState) {
	a.shutdownAll(&st)
	if a.unsub != nil {
		a.unsub()
	}
}

func shouldRestart(policy RestartPolicy, reason gen.TerminateReason) bool {
	switch policy {
	case Permanent:
		return true
	case Temporary:
		return false
	default: // Transient
		return !(reason.IsNormal() || reason.IsShutdown())
	}
}

func (a *adapter) startStatic(ctx context.Context, st *supState, spec ChildSpec) error {
	h, err := spec.Start(ctx)
	if err != nil {
		return err
	}
	st.add(&childRecord{
		id:              spec.ID,
		spec:            spec,
		handle:          h,
		startedAt:       time.Now(),
		shutdownTimeout: spec.shutdownTimeout(),
	})
	return nil
}

func (a *adapter) stopChildGraceful(rec *childRecord) {
	_ = rec.handle.Stop(gen.ReasonShutdown(), rec.shutdownTimeout)
}

func (a *adapter) shutdownAll(st *supState) {
	for _, id := range reversed(append([]string(nil), st.order...)) {
		if rec := st.byID[id]; rec != nil {
			a.stopChildGraceful(rec)
		}
	}
}

func (a *adapter) restartOne(ctx context.Context, st *supState, id string) error {
	rec := st.byID[id]
	if rec == nil {
		return nil
	}
	delete(st.byRef, rec.handle.Ref())
	h, err := rec.spec.Start(ctx)
	if err != nil {
		return err
	}
	rec.handle = h
	rec.restartCount++
	rec.startedAt = time.Now()
	st.byRef[h.Ref()] = id
	return nil
}

func (a *adapter) restartAll(ctx context.Context, st *supState) error {
	ids := append([]string(nil), st.order...)
	for _, id := range reversed(ids) {
		if rec := st.byID[id]; rec != nil {
			a.stopChildGraceful(rec)
		}
	}
	for _, id := range ids {
		if err := a.restartOne(ctx, st, id); err != nil {
			return err
		}
	}
	return nil
}

func (a *adapter) restartSuffix(ctx context.Context, st *supState, failedID string) error {
	idx := st.indexOf(failedID)
	if idx < 0 {
		return nil
	}
	suffix := append([]string(nil), st.order[idx:]...)
	for _, id := range reversed(suffix) {
		if rec := st.byID[id]; rec != nil {
			a.stopChildGraceful(rec)
		}
	}
	for _, id := range suffix {
		if err := a.restartOne(ctx, st, id); err != nil {
			return err
		}
	}
	return nil
}

// recordRestart prunes restart timestamps outside the intensity window,
// records this restart, and reports whether it is still within budget
// (spec.md §4.3 "Intensity window").
func (a *adapter) recordRestart(st *supState) bool {
	now := time.Now()
	cutoff := now.Add(-a.opts.Within)
	pruned := st.restartTimestamps[:0]
	for _, t := range st.restartTimestamps {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}
	st.restartTimestamps = pruned
	if len(pruned) >= a.opts.MaxRestarts {
		// Budget already exhausted by prior restarts within the window: this
		// crash does not get one, and the supervisor shuts down.
		return false
	}
	st.restartTimestamps = append(pruned, now)
	st.totalRestarts++
	return true
}

// checkAutoShutdown is evaluated only on a permanent child removal
// (temporary exit or explicit TerminateChild), per spec.md §4.3.
func (a *adapter) checkAutoShutdown(st *supState, removedSignificant bool) *gen.TerminateReason {
	switch a.opts.AutoShutdown {
	case AutoShutdownAnySignificant:
		if removedSignificant {
			r := gen.ReasonShutdown()
			return &r
		}
	case AutoShutdownAllSignificant:
		if removedSignificant && !st.anySignificant() {
			r := gen.ReasonShutdown()
			return &r
		}
	}
	return nil
}
