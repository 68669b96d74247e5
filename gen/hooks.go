package gen

import (
	"context"
	"time"

	"github.com/edirooss/actorkit/ref"
)

// DistributionHooks is the extension point a separate distribution
// collaborator implements to make Refs on other nodes reachable (spec.md
// Design Notes, "dynamic imports / DistributionHooks").
//
// genserver.Runtime carries one as its optional Hooks field, but nothing in
// this module calls these methods: Registry, LinkRegistry, MonitorRegistry
// and genserver handle only local Refs, and a Ref whose Node is non-empty
// is treated like any Ref that is not in the local process table.
type DistributionHooks interface {
	// ResolveRemote reports whether node is currently reachable.
	ResolveRemote(node string) bool

	// RemoteCall forwards a synchronous request to a process on another
	// node and returns its reply.
	RemoteCall(ctx context.Context, to ref.Ref, msg any, timeout time.Duration) (any, error)

	// RemoteCast forwards a fire-and-forget message to a process on
	// another node.
	RemoteCast(ctx context.Context, to ref.Ref, msg any) error

	// RemoteMonitor establishes a monitor on a remote target, returning the
	// id the local MonitorRegistry should key its bookkeeping under.
	RemoteMonitor(ctx context.Context, owner, target ref.Ref) (MonitorID, error)

	// NotifyPeerTerminated informs the distribution layer that a local,
	// linked-or-monitored-by-a-remote-peer process has terminated, so it
	// can relay the exit/down signal across the wire.
	NotifyPeerTerminated(ctx context.Context, peer ref.Ref, reason TerminateReason)
}
