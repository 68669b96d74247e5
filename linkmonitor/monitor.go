package linkmonitor

import (
	"sync"

	"github.com/edirooss/actorkit/gen"
	"github.com/edirooss/actorkit/internal/idalloc"
	"github.com/edirooss/actorkit/ref"
)

type monitorEntry struct {
	owner, target ref.Ref
}

// MonitorRegistry holds one-way monitors: owner watches target, and only
// owner is told when target goes down. When the owner terminates, its
// monitors are dropped (OwnerGone) with no signal to target (Erlang
// monitors are fire-and-forget from the target's perspective).
type MonitorRegistry struct {
	mu       sync.Mutex
	ids      *idalloc.Allocator
	byID     map[gen.MonitorID]monitorEntry
	byOwner  map[ref.Ref]map[gen.MonitorID]struct{}
	byTarget map[ref.Ref]map[gen.MonitorID]struct{}
}

func NewMonitorRegistry(idPrefix string, epoch uint32) *MonitorRegistry {
	return &MonitorRegistry{
		ids:      idalloc.New(idPrefix, epoch),
		byID:     make(map[gen.MonitorID]monitorEntry),
		byOwner:  make(map[ref.Ref]map[gen.MonitorID]struct{}),
		byTarget: make(map[ref.Ref]map[gen.MonitorID]struct{}),
	}
}

// Monitor records that owner watches target and returns the new monitor's
// id. Callers are responsible for first checking target liveness and, when
// target is already dead, enqueueing a DownNoproc EventProcessDown to the
// owner's mailbox instead of calling Monitor at all.
func (m *MonitorRegistry) Monitor(owner, target ref.Ref) gen.MonitorID {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := gen.MonitorID(m.ids.Next())
	m.byID[id] = monitorEntry{owner: owner, target: target}
	if m.byOwner[owner] == nil {
		m.byOwner[owner] = make(map[gen.MonitorID]struct{})
	}
	m.byOwner[owner][id] = struct{}{}
	if m.byTarget[target] == nil {
		m.byTarget[target] = make(map[gen.MonitorID]struct{})
	}
	m.byTarget[target][id] = struct{}{}
	return id
}

// Demonitor cancels a monitor by id. No-op if already gone.
func (m *MonitorRegistry) Demonitor(id gen.MonitorID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
}

func (m *MonitorRegistry) removeLocked(id gen.MonitorID) {
	e, ok := m.byID[id]
	if !ok {
		return
	}
	delete(m.byID, id)
	if ids, ok := m.byOwner[e.owner]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(m.byOwner, e.owner)
		}
	}
	if ids, ok := m.byTarget[e.target]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(m.byTarget, e.target)
		}
	}
}

// TargetDown tears down every monitor watching target (called once target
// has terminated) and returns one EventProcessDown per monitor for the
// caller to deliver as an Info message to each owner.
func (m *MonitorRegistry) TargetDown(target ref.Ref, reason gen.DownReason) []gen.EventProcessDown {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.byTarget[target]
	events := make([]gen.EventProcessDown, 0, len(ids))
	for id := range ids {
		e := m.byID[id]
		events = append(events, gen.EventProcessDown{
			Monitor: id,
			Owner:   e.owner,
			Target:  e.target,
			Reason:  reason,
		})
		delete(m.byID, id)
		if owned, ok := m.byOwner[e.owner]; ok {
			delete(owned, id)
			if len(owned) == 0 {
				delete(m.byOwner, e.owner)
			}
		}
	}
	delete(m.byTarget, target)
	return events
}

// OwnerGone drops every monitor owned by owner (called once owner has
// terminated), with no down delivery since there is no one left to tell.
func (m *MonitorRegistry) OwnerGone(owner ref.Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.byOwner[owner]
	for id := range ids {
		e := m.byID[id]
		delete(m.byID, id)
		if targeted, ok := m.byTarget[e.target]; ok {
			delete(targeted, id)
			if len(targeted) == 0 {
				delete(m.byTarget, e.target)
			}
		}
	}
	delete(m.byOwner, owner)
}
