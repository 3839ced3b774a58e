package comms

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/pkg/ids"
)

func inprocQueueFuncs(rxIn chan *action.Message) QueueFuncs {
	return QueueFuncs{
		QueueTx: func(q TxSource, done <-chan struct{}) error {
			for {
				item, ok := q.Pop()
				if !ok {
					return nil
				}
				_ = item
			}
		},
		QueueRx: func(deliver func(ids.RouteID, *action.Message), done <-chan struct{}) error {
			for {
				select {
				case msg, ok := <-rxIn:
					if !ok {
						return nil
					}
					deliver(ids.ParentRouteID, msg)
				case <-done:
					return nil
				}
			}
		},
	}
}

func TestConnect_FailsWithoutCallback(t *testing.T) {
	c := New(Dual, inprocQueueFuncs(make(chan *action.Message)), nil)
	ok, err := c.Connect()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNoCallback)
}

func TestConnect_SucceedsBothSides(t *testing.T) {
	c := New(Dual, inprocQueueFuncs(make(chan *action.Message)), nil)
	c.SetActionCallback(func(ids.RouteID, *action.Message) {})

	ok, err := c.Connect()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StatusConnected, c.TxStatus())
	assert.Equal(t, StatusConnected, c.RxStatus())

	c.Disconnect()
}

func TestConnect_IdempotentWhenAlreadyConnected(t *testing.T) {
	c := New(Dual, inprocQueueFuncs(make(chan *action.Message)), nil)
	c.SetActionCallback(func(ids.RouteID, *action.Message) {})

	ok1, _ := c.Connect()
	require.True(t, ok1)

	ok2, err := c.Connect()
	assert.True(t, ok2)
	assert.NoError(t, err)

	c.Disconnect()
}

func TestDisconnect_IdempotentFromStartup(t *testing.T) {
	c := New(Dual, inprocQueueFuncs(make(chan *action.Message)), nil)
	c.Disconnect()
	c.Disconnect() // must not panic or hang
	assert.Equal(t, StatusTerminated, c.TxStatus())
	assert.Equal(t, StatusTerminated, c.RxStatus())
}

func TestTransmit_DeliversViaRxCallback(t *testing.T) {
	rxIn := make(chan *action.Message, 1)
	c := New(Dual, inprocQueueFuncs(rxIn), nil)

	var mu sync.Mutex
	var received *action.Message
	got := make(chan struct{})

	c.SetActionCallback(func(route ids.RouteID, msg *action.Message) {
		mu.Lock()
		received = msg
		mu.Unlock()
		close(got)
	})

	ok, err := c.Connect()
	require.NoError(t, err)
	require.True(t, ok)
	defer c.Disconnect()

	msg := action.New(action.CodeMessage)
	msg.Name = "hello"
	rxIn <- msg

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, received)
	assert.Equal(t, "hello", received.Name)
}

func TestAddRoute_EnqueuesPriorityControlMessage(t *testing.T) {
	c := New(Dual, inprocQueueFuncs(make(chan *action.Message)), nil)
	c.AddRoute(5, "tcp://127.0.0.1:9000")

	item, ok := c.tx.Pop()
	require.True(t, ok)
	assert.Equal(t, ids.ControlRoute, item.Route)
	assert.Equal(t, action.CodeProtocolPriority, item.Msg.ActionCode)
	assert.Equal(t, int32(action.CodeNewRoute), item.Msg.MessageID)
}

func TestSetLocalTargetAddress_RejectedOncePastStartup(t *testing.T) {
	c := New(Dual, inprocQueueFuncs(make(chan *action.Message)), nil)
	require.True(t, c.SetLocalTargetAddress("127.0.0.1:9000"))

	c.SetActionCallback(func(ids.RouteID, *action.Message) {})
	ok, err := c.Connect()
	require.NoError(t, err)
	require.True(t, ok)
	defer c.Disconnect()

	assert.False(t, c.SetLocalTargetAddress("127.0.0.1:9001"))
}
