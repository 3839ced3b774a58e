// Package broker implements CommsBroker<COMMS,Role> (C8): the adapter
// that owns one comms.Interface (or comms.Network) and forwards
// transmit/addRoute/removeRoute to it, while routing received
// messages into a Role's action queue.
package broker

import (
	"sync/atomic"
	"time"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/comms"
	"github.com/fedcore/corefed/pkg/ids"
)

// disconnectionStage values for the three-state atomic shutdown guard
// (not started, in progress, done); there is no separate final stage.
const (
	stageNotStarted int32 = 0
	stageInProgress int32 = 1
	stageDone       int32 = 2
)

// Role receives ActionMessages delivered off the wire, the Core or
// Broker kernel's inbound action queue.
type Role interface {
	EnqueueAction(route ids.RouteID, msg *action.Message)
}

// CommsBroker owns a comms.Interface and adapts it to a Role.
type CommsBroker struct {
	iface *comms.Interface
	role  Role

	disconnectionStage atomic.Int32
}

// New wires iface's action callback to deliver into role, and returns
// the adapter. Connect() must still be called on the returned broker.
func New(iface *comms.Interface, role Role) *CommsBroker {
	b := &CommsBroker{iface: iface, role: role}
	iface.SetActionCallback(func(route ids.RouteID, msg *action.Message) {
		role.EnqueueAction(route, msg)
	})
	return b
}

// Connect brings the underlying comms.Interface up.
func (b *CommsBroker) Connect() (bool, error) {
	return b.iface.Connect()
}

// Transmit forwards to the underlying comms.Interface.
func (b *CommsBroker) Transmit(route ids.RouteID, msg *action.Message) {
	b.iface.Transmit(route, msg)
}

// AddRoute forwards to the underlying comms.Interface.
func (b *CommsBroker) AddRoute(routeID ids.RouteID, targetAddress string) {
	b.iface.AddRoute(routeID, targetAddress)
}

// RemoveRoute forwards to the underlying comms.Interface.
func (b *CommsBroker) RemoveRoute(routeID ids.RouteID) {
	b.iface.RemoveRoute(routeID)
}

// BrokerDisconnect tears down the underlying interface exactly once,
// safe under concurrent callers (e.g. a kernel shutdown racing a
// destructor). A caller arriving while a disconnect is in flight spins
// briefly (50ms slices) until it observes stageDone rather than
// returning immediately, matching the "wait for in-flight disconnect"
// contract.
func (b *CommsBroker) BrokerDisconnect() {
	if b.disconnectionStage.CompareAndSwap(stageNotStarted, stageInProgress) {
		b.iface.Disconnect()
		b.disconnectionStage.Store(stageDone)
		return
	}

	for b.disconnectionStage.Load() != stageDone {
		time.Sleep(50 * time.Millisecond)
	}
}

// IsDisconnected reports whether BrokerDisconnect has completed.
func (b *CommsBroker) IsDisconnected() bool {
	return b.disconnectionStage.Load() == stageDone
}
