// Package tcp implements the TCP transport binding (C7): a
// connection-oriented stream carrying framed ActionMessages via
// action.Packetize/Depacketize.
package tcp

import (
	"net"
	"sync"
	"time"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/comms"
	"github.com/fedcore/corefed/internal/logger"
	"github.com/fedcore/corefed/pkg/bufpool"
	"github.com/fedcore/corefed/pkg/ids"
)

// Conn wraps a single outbound TCP connection used as a CommsInterface
// route's transport, framing every message with Packetize on send and
// accumulating a depacketize buffer on receive.
type Conn struct {
	mu   sync.Mutex
	conn net.Conn
	addr string
}

// Dial opens a TCP connection to addr.
func Dial(addr string) (*Conn, error) {
	c, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &Conn{conn: c, addr: addr}, nil
}

// NewConn wraps an already-established net.Conn (e.g. one a Listener
// just accepted) for use as a route's transport.
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn, addr: conn.RemoteAddr().String()}
}

// Send writes one framed ActionMessage.
func (c *Conn) Send(msg *action.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.conn.Write(msg.Packetize())
	return err
}

// Close closes the underlying connection. Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// Raw returns the underlying net.Conn, for callers (e.g. a one-shot
// query client) that need to read a reply directly rather than
// driving a full CommsInterface.
func (c *Conn) Raw() net.Conn { return c.conn }

// Listener accepts inbound TCP connections, one per peer, each driving
// its own depacketize loop and its own reply channel back through the
// owning CommsInterface's RX delivery.
type Listener struct {
	ln       net.Listener
	shutdown chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// Listen binds addr (host:port, "" host means all interfaces).
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, shutdown: make(chan struct{})}, nil
}

// Addr returns the bound address, including the OS-assigned port when
// addr was given with port 0.
func (l *Listener) Addr() string { return l.ln.Addr().String() }

// Serve accepts connections until Close is called, invoking handle once
// per accepted connection in its own goroutine.
func (l *Listener) Serve(handle func(conn net.Conn)) {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.shutdown:
				return
			default:
				logger.Debug("tcp: accept error", "error", err)
				return
			}
		}
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			handle(conn)
		}()
	}
}

// Close stops accepting and waits for in-flight handlers to return.
func (l *Listener) Close() {
	l.once.Do(func() {
		close(l.shutdown)
		_ = l.ln.Close()
	})
	l.wg.Wait()
}

// ReadLoop runs a depacketize loop over conn, invoking deliver for each
// fully-framed ActionMessage received, until conn is closed or an
// unrecoverable read error occurs.
func ReadLoop(conn net.Conn, route ids.RouteID, deliver func(ids.RouteID, *action.Message)) error {
	var buf []byte
	chunk := bufpool.Get(bufpool.DefaultMediumSize)
	defer bufpool.Put(chunk)

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				msg, consumed, perr := action.Depacketize(buf)
				if perr != nil {
					return perr
				}
				if msg == nil {
					break
				}
				buf = buf[consumed:]
				deliver(route, msg)
			}
		}
		if err != nil {
			return err
		}
	}
}

// QueueFuncs returns the comms.QueueFuncs for an interface whose
// routes are keyed by destination address, dialing on first use.
// Messages received through ln are delivered on ParentRouteID.
func QueueFuncs(dial func(addr string) (*Conn, error), routeAddr func(ids.RouteID) string, ln *Listener) comms.QueueFuncs {
	conns := make(map[string]*Conn)
	var mu sync.Mutex

	getConn := func(addr string) (*Conn, error) {
		mu.Lock()
		defer mu.Unlock()
		if c, ok := conns[addr]; ok {
			return c, nil
		}
		c, err := dial(addr)
		if err != nil {
			return nil, err
		}
		conns[addr] = c
		return c, nil
	}

	return comms.QueueFuncs{
		QueueTx: func(q comms.TxSource, done <-chan struct{}) error {
			for {
				item, ok := q.Pop()
				if !ok {
					return nil
				}
				addr := routeAddr(item.Route)
				if addr == "" {
					continue
				}
				c, err := getConn(addr)
				if err != nil {
					logger.Error("tcp: dial failed", "addr", addr, "error", err)
					continue
				}
				if err := c.Send(item.Msg); err != nil {
					logger.Error("tcp: send failed", "addr", addr, "error", err)
					mu.Lock()
					delete(conns, addr)
					mu.Unlock()
				}
			}
		},
		QueueRx: func(deliver func(ids.RouteID, *action.Message), done <-chan struct{}) error {
			if ln == nil {
				<-done
				return nil
			}
			go ln.Serve(func(conn net.Conn) {
				_ = ReadLoop(conn, ids.ParentRouteID, deliver)
			})
			<-done
			ln.Close()
			return nil
		},
		CloseTransmitter: func() {
			mu.Lock()
			defer mu.Unlock()
			for addr, c := range conns {
				_ = c.Close()
				delete(conns, addr)
			}
		},
		CloseReceiver: func() {
			if ln != nil {
				ln.Close()
			}
		},
	}
}

// ServerQueueFuncs returns comms.QueueFuncs for a single accepted
// connection, used when a broker dynamically admits a new child: every
// inbound and outbound message on this link is tagged with the route
// the broker already allocated for it, rather than being dialed by
// address.
func ServerQueueFuncs(c *Conn, route ids.RouteID) comms.QueueFuncs {
	return comms.QueueFuncs{
		QueueTx: func(q comms.TxSource, done <-chan struct{}) error {
			for {
				item, ok := q.Pop()
				if !ok {
					return nil
				}
				if err := c.Send(item.Msg); err != nil {
					logger.Error("tcp: server send failed", "route", route, "error", err)
					return err
				}
			}
		},
		QueueRx: func(deliver func(ids.RouteID, *action.Message), done <-chan struct{}) error {
			errCh := make(chan error, 1)
			go func() { errCh <- ReadLoop(c.conn, route, deliver) }()
			select {
			case <-done:
				_ = c.Close()
				return nil
			case err := <-errCh:
				return err
			}
		},
		CloseReceiver:    func() { _ = c.Close() },
		CloseTransmitter: func() { _ = c.Close() },
	}
}
