package supervisor

import (
	"time"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/ref"
)

// ChildInfo is a read-only snapshot of one supervised child (spec.md §6.5).
type ChildInfo struct {
	ID           string
	Ref          ref.Ref
	Restart      RestartPolicy
	Significant  bool
	RestartCount int
	LastReason   gen.TerminateReason
	StartedAt    time.Time
}

// CountInfo summarizes the child population, mirroring the OTP
// supervisor:count_children/1 shape.
type CountInfo struct {
	Specs  int
	Active int
}

func snapshotChildren(st *supState) []ChildInfo {
	out := make([]ChildInfo, 0, len(st.order))
	for _, id := range st.order {
		rec := st.byID[id]
		if rec == nil {
			continue
		}
		out = append(out, ChildInfo{
			ID:           rec.id,
			Ref:          rec.handle.Ref(),
			Restart:      rec.spec.Restart,
			Significant:  rec.spec.Significant,
			RestartCount: rec.restartCount,
			LastReason:   rec.lastReason,
			StartedAt:    rec.startedAt,
		})
	}
	return out
}
