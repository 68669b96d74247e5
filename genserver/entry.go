package genserver

import (
	"sync/atomic"

	"github.com/edirooss/actorkit/gen"
)

// mailboxEntry is the sealed set of things that can sit in a process's
// mailbox: a synchronous call awaiting a reply, a fire-and-forget cast, an
// out-of-band info message, a checkpoint request, or a stop request.
// Payloads are carried as `any` and type-asserted back to C/K inside the
// owning Process[S,C,K,R], since only that process's own Call/Cast ever
// populates them - keeping the entry types themselves non-generic avoids a
// combinatorial explosion of instantiated generic structs for no benefit
// (spec.md Design Notes, "tagged-variant messages").
type mailboxEntry interface {
	isMailboxEntry()
}

type callEntry struct {
	msg   any // C
	reply chan callResult

	// abandoned is set by CallWithTimeout when the caller's wait expires
	// before a reply arrives. dispatch checks it before running the
	// behavior's HandleCall so a call the caller was told timed out is
	// removed from the mailbox instead of executed (spec.md §4.1, §5:
	// "if the mailbox entry has not been dequeued it is removed").
	abandoned atomic.Bool
}

type callResult struct {
	val any // R
	err error
}

type castEntry struct {
	msg any // K
}

type infoEntry struct {
	msg any
}

type checkpointEntry struct {
	done chan error
}

type stopEntry struct {
	reason gen.TerminateReason
	done   chan struct{}
}

func (*callEntry) isMailboxEntry()       {}
func (*castEntry) isMailboxEntry()       {}
func (*infoEntry) isMailboxEntry()       {}
func (*checkpointEntry) isMailboxEntry() {}
func (*stopEntry) isMailboxEntry()       {}
