// Package linkmonitor implements the bidirectional link table and the
// one-way monitor table that back GenServer.Link/Monitor (spec.md §4.2).
// Both types keep a forward index (by link or monitor id) and a reverse
// index (by participant Ref), the same two-map shape the teacher's
// slotPool (internal/infrastructure/processmgr/slot_pool.go) uses to go
// from "acquired count" bookkeeping to "who holds what" bookkeeping in O(1).
package linkmonitor

import (
	"sync"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/internal/idalloc"
	"github.com/edirooss/actorkit/ref"
)

type linkEntry struct {
	a, b ref.Ref
}

// LinkRegistry holds symmetric links: if a is linked to b, terminating
// either one signals the other (subject to trap-exit, handled by
// genserver). A link has no owner distinct from its two participants -
// either side may Unlink it.
type LinkRegistry struct {
	mu     sync.Mutex
	ids    *idalloc.Allocator
	byID   map[gen.LinkID]linkEntry
	byProc map[ref.Ref]map[gen.LinkID]struct{}
}

func NewLinkRegistry(idPrefix string, epoch uint32) *LinkRegistry {
	return &LinkRegistry{
		ids:    idalloc.New(idPrefix, epoch),
		byID:   make(map[gen.LinkID]linkEntry),
		byProc: make(map[ref.Ref]map[gen.LinkID]struct{}),
	}
}

// Link establishes a symmetric link between a and b and returns its id.
// Linking a process to itself is permitted and simply a no-op link that
// Unlink can still remove; callers do not need to special-case it.
func (l *LinkRegistry) Link(a, b ref.Ref) gen.LinkID {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := gen.LinkID(l.ids.Next())
	l.byID[id] = linkEntry{a: a, b: b}
	l.index(a, id)
	l.index(b, id)
	return id
}

func (l *LinkRegistry) index(p ref.Ref, id gen.LinkID) {
	if l.byProc[p] == nil {
		l.byProc[p] = make(map[gen.LinkID]struct{})
	}
	l.byProc[p][id] = struct{}{}
}

// Unlink removes a link by id. No-op if already removed.
func (l *LinkRegistry) Unlink(id gen.LinkID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLocked(id)
}

func (l *LinkRegistry) removeLocked(id gen.LinkID) {
	e, ok := l.byID[id]
	if !ok {
		return
	}
	delete(l.byID, id)
	for _, p := range [2]ref.Ref{e.a, e.b} {
		if ids, ok := l.byProc[p]; ok {
			delete(ids, id)
			if len(ids) == 0 {
				delete(l.byProc, p)
			}
		}
	}
}

// UnlinkPair removes whichever link (if any) directly connects a and b. It
// exists because Process.Unlink only knows the two endpoints, not the link
// id Link returned.
func (l *LinkRegistry) UnlinkPair(a, b ref.Ref) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id := range l.byProc[a] {
		e := l.byID[id]
		if (e.a == a && e.b == b) || (e.a == b && e.b == a) {
			l.removeLocked(id)
			return
		}
	}
}

// PeersOf returns the other endpoint of every link touching p.
func (l *LinkRegistry) PeersOf(p ref.Ref) []ref.Ref {
	l.mu.Lock()
	defer l.mu.Unlock()
	var peers []ref.Ref
	for id := range l.byProc[p] {
		e := l.byID[id]
		if e.a == p {
			peers = append(peers, e.b)
		} else {
			peers = append(peers, e.a)
		}
	}
	return peers
}

// RemoveProcess tears down every link touching p (called once p has
// terminated) and returns the distinct peers that were linked to it, so the
// caller can deliver an ExitSignal to each.
func (l *LinkRegistry) RemoveProcess(p ref.Ref) []ref.Ref {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := l.byProc[p]
	peers := make([]ref.Ref, 0, len(ids))
	seen := make(map[ref.Ref]bool, len(ids))
	for id := range ids {
		e := l.byID[id]
		peer := e.a
		if peer == p {
			peer = e.b
		}
		if peer != p && !seen[peer] {
			seen[peer] = true
			peers = append(peers, peer)
		}
		delete(l.byID, id)
		if other, ok := l.byProc[peer]; ok && peer != p {
			delete(other, id)
			if len(other) == 0 {
				delete(l.byProc, peer)
			}
		}
	}
	delete(l.byProc, p)
	return peers
}
