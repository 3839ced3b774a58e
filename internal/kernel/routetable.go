package kernel

import (
	"sync"

	"github.com/fedcore/corefed/pkg/ids"
)

// RouteTarget is where a route's outbound traffic goes: a transport
// address for remote routes (handled by whatever comms.Interface the
// kernel owns), or a direct in-process handoff for routes that loop
// back into this same kernel (e.g. ControlRoute, or a federate
// connected in the same process).
type RouteTarget struct {
	Address string // transport-level target, e.g. "tcp://host:port"
	Local   bool   // true if traffic should be delivered in-process
}

// RouteTable maps ids.RouteID to where its traffic should go. The
// three reserved routes (NullRouteID, ParentRouteID, ControlRoute) are
// always present; RouteTable adds entries for every peer route a
// CMD_PROTOCOL_PRIORITY{NEW_ROUTE} allocates.
type RouteTable struct {
	mu     sync.RWMutex
	routes map[ids.RouteID]RouteTarget
	next   ids.RouteID
}

// NewRouteTable returns a table with the reserved routes pre-seeded
// and the next allocatable route ID starting just past them.
func NewRouteTable() *RouteTable {
	return &RouteTable{
		routes: map[ids.RouteID]RouteTarget{
			ids.NullRouteID:   {Local: true},
			ids.ParentRouteID: {},
			ids.ControlRoute:  {Local: true},
		},
		next: ids.ControlRoute + 1,
	}
}

// AddRoute allocates the next free RouteID for target and returns it.
func (t *RouteTable) AddRoute(target RouteTarget) ids.RouteID {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.next
	t.next++
	t.routes[id] = target
	return id
}

// SetRoute installs target under an explicit, already-known id
// (used when a peer tells us which RouteID it expects us to use).
func (t *RouteTable) SetRoute(id ids.RouteID, target RouteTarget) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[id] = target
	if id >= t.next {
		t.next = id + 1
	}
}

// RemoveRoute drops id. Reserved routes cannot be removed.
func (t *RouteTable) RemoveRoute(id ids.RouteID) {
	if id.IsReserved() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.routes, id)
}

// Lookup returns id's target and whether it is known.
func (t *RouteTable) Lookup(id ids.RouteID) (RouteTarget, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	target, ok := t.routes[id]
	return target, ok
}

// Count returns the number of routes currently registered, including
// the reserved ones. Mirrors corefed_route_count.
func (t *RouteTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}
