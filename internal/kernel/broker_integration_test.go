package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/comms"
	"github.com/fedcore/corefed/internal/comms/inproc"
	"github.com/fedcore/corefed/pkg/ids"
)

// recvInterface wraps a bare comms.Interface with a channel so a test
// can assert on what it receives without standing up a full kernel.
type recvInterface struct {
	*comms.Interface
	received chan *action.Message
}

func newRecvInterface(reg *inproc.Registry, self *inproc.Endpoint, peer string) *recvInterface {
	r := &recvInterface{received: make(chan *action.Message, 8)}
	r.Interface = comms.New(comms.Dual, inproc.QueueFuncs(reg, self, peer), nil)
	r.Interface.SetActionCallback(func(route ids.RouteID, msg *action.Message) {
		r.received <- msg
	})
	return r
}

func TestBroker_ForwardsToRegisteredChildNotSender(t *testing.T) {
	reg := inproc.NewRegistry()

	// Broker's link to the child that originates the message.
	epBridgeIn := reg.Register("bridge-in")
	epSender := reg.Register("sender")
	ifaceBridgeIn := comms.New(comms.Dual, inproc.QueueFuncs(reg, epBridgeIn, "sender"), nil)
	sender := newRecvInterface(reg, epSender, "bridge-in")

	// Broker's link to the destination child.
	epBridgeOut := reg.Register("bridge-out")
	epDest := reg.Register("dest")
	ifaceBridgeOut := comms.New(comms.Dual, inproc.QueueFuncs(reg, epBridgeOut, "dest"), nil)
	dest := newRecvInterface(reg, epDest, "bridge-out")

	b := NewRootBroker("testbroker")
	const routeIn ids.RouteID = 10
	const routeOut ids.RouteID = 11
	b.AddChild(routeIn, ifaceBridgeIn)
	b.AddChild(routeOut, ifaceBridgeOut)
	b.RegisterChildFederate(42, "gen2", routeOut)

	ok, err := sender.Connect()
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = dest.Connect()
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Connect(ctx, 2) }()

	msg := action.New(action.CodeMessage)
	msg.DestID = 42
	msg.Name = "payload"
	sender.Transmit(ids.ParentRouteID, msg)

	select {
	case got := <-dest.received:
		assert.Equal(t, ids.GlobalFederateId(42), got.DestID)
		assert.Equal(t, "payload", got.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("destination child never received the forwarded message")
	}

	select {
	case <-sender.received:
		t.Fatal("sender should not receive its own forwarded message back")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroker_DropsUnroutableMessageAtRoot(t *testing.T) {
	reg := inproc.NewRegistry()
	epBridge := reg.Register("bridge")
	epSender := reg.Register("sender2")
	ifaceBridge := comms.New(comms.Dual, inproc.QueueFuncs(reg, epBridge, "sender2"), nil)
	sender := newRecvInterface(reg, epSender, "bridge")

	b := NewRootBroker("root")
	b.AddChild(20, ifaceBridge)

	ok, err := sender.Connect()
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Connect(ctx, 1) }()

	msg := action.New(action.CodeMessage)
	msg.DestID = 999 // never registered anywhere
	sender.Transmit(ids.ParentRouteID, msg)

	select {
	case <-sender.received:
		t.Fatal("message to an unknown federate should not boomerang back to sender")
	case <-time.After(200 * time.Millisecond):
	}
}

// TestBroker_AdmitsChildAfterConnect exercises the dynamic admission path a
// listener uses when a core or sub-broker joins after the broker's dispatch
// loop is already running: NextRoute allocates the route, AddChildAndConnect
// brings the link up without touching Connect's pre-wired link set.
func TestBroker_AdmitsChildAfterConnect(t *testing.T) {
	reg := inproc.NewRegistry()
	epBridge := reg.Register("bridge-sender")
	epSender := reg.Register("sender3")
	ifaceBridge := comms.New(comms.Dual, inproc.QueueFuncs(reg, epBridge, "sender3"), nil)
	sender := newRecvInterface(reg, epSender, "bridge-sender")

	b := NewRootBroker("rootdyn")
	b.AddChild(30, ifaceBridge)

	ok, err := sender.Connect()
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Connect(ctx, 2) }()

	// Give the dispatch loop time to start before admitting a late child.
	time.Sleep(20 * time.Millisecond)

	epBridgeDyn := reg.Register("bridge-dyn")
	epDyn := reg.Register("dynchild")
	ifaceBridgeDyn := comms.New(comms.Dual, inproc.QueueFuncs(reg, epBridgeDyn, "dynchild"), nil)
	dyn := newRecvInterface(reg, epDyn, "bridge-dyn")
	ok, err = dyn.Connect()
	require.NoError(t, err)
	require.True(t, ok)

	route := b.NextRoute(RouteTarget{})
	require.NoError(t, b.AddChildAndConnect(route, ifaceBridgeDyn))
	b.RegisterChildFederate(77, "gen3", route)

	msg := action.New(action.CodeMessage)
	msg.DestID = 77
	msg.Name = "late-join-payload"
	sender.Transmit(ids.ParentRouteID, msg)

	select {
	case got := <-dyn.received:
		assert.Equal(t, ids.GlobalFederateId(77), got.DestID)
		assert.Equal(t, "late-join-payload", got.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("dynamically admitted child never received the forwarded message")
	}
}
