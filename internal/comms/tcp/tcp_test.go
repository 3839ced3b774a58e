package tcp

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/comms"
	"github.com/fedcore/corefed/pkg/ids"
)

func TestListenAndDial_RoundTrip(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	var mu sync.Mutex
	var received *action.Message
	got := make(chan struct{})

	go ln.Serve(func(conn net.Conn) {
		_ = ReadLoop(conn, ids.ParentRouteID, func(route ids.RouteID, msg *action.Message) {
			mu.Lock()
			received = msg
			mu.Unlock()
			close(got)
		})
	})

	conn, err := Dial(ln.Addr())
	require.NoError(t, err)
	defer conn.Close()

	msg := action.New(action.CodeMessage)
	msg.Name = "hello-tcp"
	require.NoError(t, conn.Send(msg))

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tcp delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, received)
	assert.Equal(t, "hello-tcp", received.Name)
}

func TestListener_Addr_ReflectsAssignedPort(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, port, err := net.SplitHostPort(ln.Addr())
	require.NoError(t, err)
	assert.NotEqual(t, "0", port)
}

func TestListener_CloseIsIdempotent(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	ln.Close()
	ln.Close() // must not panic
}

func TestNewConn_WrapsAcceptedConnForRoundTrip(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	var mu sync.Mutex
	var received *action.Message
	got := make(chan struct{})

	go ln.Serve(func(conn net.Conn) {
		c := NewConn(conn)
		assert.Equal(t, conn.RemoteAddr().String(), c.addr)
		qf := ServerQueueFuncs(c, ids.RouteID(1))
		done := make(chan struct{})
		_ = qf.QueueRx(func(route ids.RouteID, msg *action.Message) {
			mu.Lock()
			received = msg
			mu.Unlock()
			close(got)
		}, done)
	})

	conn, err := Dial(ln.Addr())
	require.NoError(t, err)
	defer conn.Close()

	msg := action.New(action.CodeMessage)
	msg.Name = "hello-server-queue"
	require.NoError(t, conn.Send(msg))

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server-side delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, received)
	assert.Equal(t, "hello-server-queue", received.Name)
}

func TestConn_Raw_ReturnsUnderlyingNetConn(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go ln.Serve(func(conn net.Conn) {
		buf := make([]byte, 1)
		_, _ = conn.Read(buf)
	})

	conn, err := Dial(ln.Addr())
	require.NoError(t, err)
	defer conn.Close()

	raw := conn.Raw()
	require.NotNil(t, raw)
	assert.Equal(t, conn.addr, raw.RemoteAddr().String())
}

func TestServerQueueFuncs_QueueTxSendsAndStopsOnEmpty(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan struct{})
	go ln.Serve(func(conn net.Conn) {
		_ = ReadLoop(conn, ids.RouteID(1), func(ids.RouteID, *action.Message) { close(got) })
	})

	conn, err := Dial(ln.Addr())
	require.NoError(t, err)
	defer conn.Close()

	c := NewConn(conn.conn)
	qf := ServerQueueFuncs(c, ids.RouteID(1))

	q := &fakeTxSource{items: []comms.TxItem{{Route: ids.RouteID(1), Msg: action.New(action.CodeMessage)}}}
	require.NoError(t, qf.QueueTx(q, nil))

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server-queued send")
	}
}

type fakeTxSource struct {
	items []comms.TxItem
}

func (f *fakeTxSource) Pop() (comms.TxItem, bool) {
	if len(f.items) == 0 {
		return comms.TxItem{}, false
	}
	item := f.items[0]
	f.items = f.items[1:]
	return item, true
}
