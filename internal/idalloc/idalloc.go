// Package idalloc allocates monotonically increasing, process-unique
// identifiers for Refs, links, monitors and timers.
//
// It is the Go-generics-free counterpart of the teacher's PID allocator
// (internal/infrastructure/processmgr/pid_allocator.go): instead of a
// bounded, wrap-and-reuse integer space (faithful to the Linux pidmap,
// appropriate for OS pids that must fit in a small kernel table) actorkit
// ids are never reused — a stopped process's Ref must stay permanently
// dangling per the spec's process-instance invariant, so reuse would be
// an outright correctness bug rather than an optimization. The allocator
// therefore keeps only a monotonic counter (an atomic one, no mutex) and
// drops the wraparound/free-list machinery.
package idalloc

import (
	"fmt"
	"sync/atomic"
)

// Allocator generates unique, monotonically increasing string ids sharing a
// common prefix, e.g. "p" with epoch 0 -> "p0.1", "p0.2", ... A zero
// Allocator is ready to use.
type Allocator struct {
	prefix string
	next   atomic.Uint64
	epoch  uint32 // disambiguates ids across process restarts of the host
}

// New returns an Allocator producing ids of the form "<prefix><epoch>.<n>".
// epoch should be stable for the lifetime of one Runtime and distinct across
// restarts so that stale ids from a previous run are never mistaken for live
// ones after a host-process restart with no persisted Runtime state.
func New(prefix string, epoch uint32) *Allocator {
	return &Allocator{prefix: prefix, epoch: epoch}
}

// Next returns the next id in the sequence. Safe for concurrent use.
func (a *Allocator) Next() string {
	n := a.next.Add(1)
	return fmt.Sprintf("%s%d.%d", a.prefix, a.epoch, n)
}
