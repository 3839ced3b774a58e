// Package ids defines the identifier types shared by cores, brokers, and
// federates: federate ids, interface handles, and the well-known routes
// every kernel reserves for itself.
package ids

import "fmt"

// GlobalFederateId identifies a federate uniquely across a federation.
type GlobalFederateId int32

// InterfaceHandle identifies a publication, input, endpoint, filter, or
// translator local to the federate that owns it.
type InterfaceHandle int32

// GlobalHandle pairs a federate id with one of its local interface
// handles, uniquely identifying an interface across the federation.
type GlobalHandle struct {
	Federate GlobalFederateId
	Handle   InterfaceHandle
}

func (h GlobalHandle) String() string {
	return fmt.Sprintf("%d:%d", h.Federate, h.Handle)
}

// RouteID identifies a logical channel from a kernel to a peer.
type RouteID int32

const (
	// InvalidFederateId marks an unset or unknown federate id.
	InvalidFederateId GlobalFederateId = -1

	// InvalidHandle marks an unset or unknown interface handle.
	InvalidHandle InterfaceHandle = -1

	// ParentRouteID is the reserved route that sends toward the parent
	// broker.
	ParentRouteID RouteID = 1

	// ControlRoute is the reserved route that loops a message back to
	// the owning kernel's own RX queue instead of a transport.
	ControlRoute RouteID = 2

	// NullRouteID marks the absence of a route (also the parent route
	// placeholder before a broker connection is established).
	NullRouteID RouteID = 0
)

// IsReserved reports whether route is one of the kernel's built-in
// routes rather than a route to a registered peer.
func (r RouteID) IsReserved() bool {
	return r == NullRouteID || r == ParentRouteID || r == ControlRoute
}
