package supervisor

import (
	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/ref"
)

// request is the sealed set of synchronous operations a Supervisor accepts
// as a genserver Call, so every mutation of the child table happens on the
// supervisor's own dispatcher goroutine and the caller still observes the
// result synchronously (spec.md §4.3 "Dynamic operations").
type request interface{ isRequest() }

type reqStartChild struct{ spec ChildSpec }
type reqStartDynamicChild struct{ args []any }
type reqTerminateChild struct{ id string }
type reqRestartChild struct{ id string }
type reqWhichChildren struct{}
type reqCountChildren struct{}
type reqDump struct{}

func (reqStartChild) isRequest()        {}
func (reqStartDynamicChild) isRequest() {}
func (reqTerminateChild) isRequest()    {}
func (reqRestartChild) isRequest()      {}
func (reqWhichChildren) isRequest()     {}
func (reqCountChildren) isRequest()     {}
func (reqDump) isRequest()              {}

// childExited is the internal Cast the watcher delivers to the
// supervisor's own mailbox when a child terminates, keeping restart
// decisions on the dispatcher goroutine instead of the publishing child's.
type childExited struct {
	proc   ref.Ref
	reason gen.TerminateReason
}
