// Package registry maps names to process Refs, in either unique mode (one
// Ref per name, like Erlang's process registry) or duplicate mode (many
// Refs share a name, used for pub/sub style dispatch and glob selection).
// It mirrors the bookkeeping shape of the teacher's slotPool
// (internal/infrastructure/processmgr/slot_pool.go) - a mutex-guarded map
// plus a reverse index - generalized from "n acquired slots" to "named
// process sets", and wires itself to a gen.EventBus so registrations are
// cleaned up automatically when their process terminates instead of
// leaking forever (spec.md §6.2).
package registry

import (
	"sync"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/ref"
)

// Mode selects whether a name may resolve to one process or many.
type Mode uint8

const (
	// Unique mode: Register fails with gen.ErrNameTaken if the name already
	// maps to a live process.
	Unique Mode = iota
	// Duplicate mode: any number of processes may share a name; Lookup
	// returns one arbitrary member, LookupAll returns all of them.
	Duplicate
)

// Registry is safe for concurrent use.
type Registry struct {
	mode Mode

	mu      sync.RWMutex
	byName  map[string]map[ref.Ref]struct{}
	byProc  map[ref.Ref]map[string]struct{}
	unsub   func()
	closeMu sync.Mutex
	closed  bool
}

// New constructs a Registry in the given mode. If bus is non-nil, the
// Registry subscribes to it and unregisters a process's names the moment
// EventTerminated fires for it.
func New(mode Mode, bus *gen.EventBus) *Registry {
	r := &Registry{
		mode:   mode,
		byName: make(map[string]map[ref.Ref]struct{}),
		byProc: make(map[ref.Ref]map[string]struct{}),
	}
	if bus != nil {
		r.unsub = bus.Subscribe(func(ev gen.Event) {
			if t, ok := ev.(gen.EventTerminated); ok {
				r.unregisterAll(t.Proc)
			}
		})
	}
	return r
}

// Register binds name to p. In Unique mode it fails if name is already
// bound to a different, still-registered process.
func (r *Registry) Register(name string, p ref.Ref) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode == Unique {
		if existing, ok := r.byName[name]; ok && len(existing) > 0 {
			for other := range existing {
				if other != p {
					return gen.Annotatef(gen.ErrNameTaken, "register %q", name)
				}
			}
		}
	}

	if r.byName[name] == nil {
		r.byName[name] = make(map[ref.Ref]struct{})
	}
	r.byName[name][p] = struct{}{}

	if r.byProc[p] == nil {
		r.byProc[p] = make(map[string]struct{})
	}
	r.byProc[p][name] = struct{}{}
	return nil
}

// Unregister removes the (name, p) binding. It is a no-op if absent.
func (r *Registry) Unregister(name string, p ref.Ref) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregisterLocked(name, p)
}

func (r *Registry) unregisterLocked(name string, p ref.Ref) {
	if names, ok := r.byName[name]; ok {
		delete(names, p)
		if len(names) == 0 {
			delete(r.byName, name)
		}
	}
	if procs, ok := r.byProc[p]; ok {
		delete(procs, name)
		if len(procs) == 0 {
			delete(r.byProc, p)
		}
	}
}

// unregisterAll drops every name bound to p, invoked automatically when p
// terminates.
func (r *Registry) unregisterAll(p ref.Ref) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.byProc[p] {
		if names, ok := r.byName[name]; ok {
			delete(names, p)
			if len(names) == 0 {
				delete(r.byName, name)
			}
		}
	}
	delete(r.byProc, p)
}

// Lookup (a.k.a. Erlang's whereis/1) returns one process bound to name. In
// Duplicate mode the choice among multiple members is unspecified.
func (r *Registry) Lookup(name string) (ref.Ref, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for p := range r.byName[name] {
		return p, true
	}
	return ref.Ref{}, false
}

// Whereis is an alias for Lookup.
func (r *Registry) Whereis(name string) (ref.Ref, bool) { return r.Lookup(name) }

// LookupAll returns every process bound to name (meaningful in Duplicate
// mode; at most one element in Unique mode).
func (r *Registry) LookupAll(name string) []ref.Ref {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ref.Ref, 0, len(r.byName[name]))
	for p := range r.byName[name] {
		out = append(out, p)
	}
	return out
}

// IsRegistered reports whether name currently resolves to at least one
// process.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName[name]) > 0
}

// Names returns every currently registered name, in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	return out
}

// Select returns every registered name for which predicate returns true,
// the non-glob counterpart to Match (spec.md §6, duplicate-mode
// "select(predicate)").
func (r *Registry) Select(predicate func(name string) bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for n := range r.byName {
		if predicate(n) {
			out = append(out, n)
		}
	}
	return out
}

// Match returns every registered name matching pattern ("*" for a non-"/"
// run, "**" for any run, "?" for one character), optionally narrowed
// further by an extra predicate (spec.md §6, duplicate-mode
// "match(pattern, predicate?)").
func (r *Registry) Match(pattern string, predicate ...func(name string) bool) []string {
	var pred func(string) bool
	if len(predicate) > 0 {
		pred = predicate[0]
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for n := range r.byName {
		if !matchPattern(pattern, n) {
			continue
		}
		if pred != nil && !pred(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Dispatch invokes fn once for every live process whose name matches
// pattern, returning how many were called. Intended for Duplicate-mode
// fan-out casts.
func (r *Registry) Dispatch(pattern string, fn func(ref.Ref)) int {
	r.mu.RLock()
	var targets []ref.Ref
	for n, procs := range r.byName {
		if !matchPattern(pattern, n) {
			continue
		}
		for p := range procs {
			targets = append(targets, p)
		}
	}
	r.mu.RUnlock()

	for _, p := range targets {
		fn(p)
	}
	return len(targets)
}

// Close stops listening to the event bus. It does not clear existing
// registrations.
func (r *Registry) Close() {
	r.closeMu.Lock()
	defer r.closeMu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.unsub != nil {
		r.unsub()
	}
}
