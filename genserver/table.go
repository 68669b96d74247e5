package genserver

import (
	"sync"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/ref"
)

// table is the process table every Start registers into and every
// terminated process removes itself from: the local half of Erlang's pid
// table, letting Link/Monitor/exit-signal delivery reach a process knowing
// only its Ref, never its concrete S/C/K/R. A remote Ref (Node != "") is
// never present here, so a lookup of one fails like a lookup of a stopped
// process; the Runtime's DistributionHooks are not consulted.
var table sync.Map // ref.Ref -> gen.Handle

func registerHandle(r ref.Ref, h gen.Handle) { table.Store(r, h) }

func unregisterHandle(r ref.Ref) { table.Delete(r) }

// Lookup returns the live Handle for r, if any process with that Ref is
// currently registered locally.
func Lookup(r ref.Ref) (gen.Handle, bool) {
	v, ok := table.Load(r)
	if !ok {
		return nil, false
	}
	return v.(gen.Handle), true
}

func deliverExitSignal(to ref.Ref, sig gen.ExitSignal) {
	if h, ok := Lookup(to); ok {
		h.DeliverExit(sig)
	}
}

func deliverInfo(to ref.Ref, msg any) {
	if h, ok := Lookup(to); ok {
		h.DeliverInfo(msg)
	}
}
