package supervisor

import (
	"time"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/ref"
)

// childRecord is the supervisor's bookkeeping for one running (or just
// removed) child.
type childRecord struct {
	id              string
	spec            ChildSpec
	handle          gen.Handle
	args            []any // non-nil only for SimpleOneForOne dynamic children
	restartCount    int
	lastReason      gen.TerminateReason
	startedAt       time.Time
	shutdownTimeout time.Duration
}

// supState is the genserver state backing a Supervisor: the ordered child
// list (start order), lookup indexes, and the restart intensity window.
type supState struct {
	order      []string
	byID       map[string]*childRecord
	byRef      map[ref.Ref]string
	dynamicSeq int

	restartTimestamps []time.Time
	totalRestarts     int
}

func newSupState() supState {
	return supState{byID: map[string]*childRecord{}, byRef: map[ref.Ref]string{}}
}

func (st *supState) indexOf(id string) int {
	for i, v := range st.order {
		if v == id {
			return i
		}
	}
	return -1
}

func (st *supState) add(rec *childRecord) {
	st.order = append(st.order, rec.id)
	st.byID[rec.id] = rec
	st.byRef[rec.handle.Ref()] = rec.id
}

func (st *supState) remove(id string) {
	if rec, ok := st.byID[id]; ok {
		delete(st.byRef, rec.handle.Ref())
	}
	delete(st.byID, id)
	if i := st.indexOf(id); i >= 0 {
		st.order = append(st.order[:i], st.order[i+1:]...)
	}
}

func (st *supState) anySignificant() bool {
	for _, id := range st.order {
		if rec := st.byID[id]; rec != nil && rec.spec.Significant {
			return true
		}
	}
	return false
}

// reversed returns a copy of ids in reverse order.
func reversed(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}
