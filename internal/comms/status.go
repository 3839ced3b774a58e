// Package comms implements CommsInterface (C5) and NetworkCommsInterface
// (C6): the transport-agnostic TX/RX machinery a Core or Broker kernel
// uses to exchange ActionMessages with a peer, plus the network port
// negotiation handshake layered on top of it.
package comms

import "sync/atomic"

// ConnectionStatus is the lifecycle state of one side (TX or RX) of a
// CommsInterface.
type ConnectionStatus int32

const (
	StatusStartup      ConnectionStatus = -1
	StatusConnected    ConnectionStatus = 0
	StatusReconnecting ConnectionStatus = 1
	StatusTerminated   ConnectionStatus = 2
	StatusErrored      ConnectionStatus = 4
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusStartup:
		return "startup"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusTerminated:
		return "terminated"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// atomicStatus is a lock-free ConnectionStatus cell.
type atomicStatus struct {
	v atomic.Int32
}

func newAtomicStatus(initial ConnectionStatus) *atomicStatus {
	a := &atomicStatus{}
	a.v.Store(int32(initial))
	return a
}

func (a *atomicStatus) Load() ConnectionStatus { return ConnectionStatus(a.v.Load()) }
func (a *atomicStatus) Store(s ConnectionStatus) { a.v.Store(int32(s)) }

func (a *atomicStatus) CompareAndSwap(old, new ConnectionStatus) bool {
	return a.v.CompareAndSwap(int32(old), int32(new))
}

// pastStartup reports whether the status has left STARTUP, regardless
// of direction (used by connect()'s "already past startup" check).
func (a *atomicStatus) pastStartup() bool {
	return a.Load() != StatusStartup
}
