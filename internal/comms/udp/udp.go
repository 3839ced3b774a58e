// Package udp implements the UDP transport binding (C7): each
// datagram carries exactly one ActionMessage (no packetize framing). A
// 5-byte "close" datagram signals shutdown, matching the close
// convention observed server-side by listeners on this transport.
package udp

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

// closeDatagram is the literal 5-byte shutdown signal this transport
// recognizes on its receive loop.
const closeDatagram = "close"

// maxDatagramSize bounds a single UDP read, matching the practical
// ceiling for a fragmentation-free ActionMessage payload.
const maxDatagramSize = 65535

// Conn wraps a UDP socket used for both send and receive.
type Conn struct {
	pc net.PacketConn
}

// Listen binds addr for UDP receive (and send, since UDP sockets are
// bidirectional once bound).
func Listen(addr string) (*Conn, error) {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}
	return &Conn{pc: pc}, nil
}

// Addr returns the bound local address.
func (c *Conn) Addr() string { return c.pc.LocalAddr().String() }

// SendTo serializes msg with ToVector (no framing) and sends it to
// addr.
func (c *Conn) SendTo(addr string, msg *action.Message) error {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	_, err = c.pc.WriteTo(msg.ToVector(), raddr)
	return err
}

// ReadLoop reads datagrams until the close datagram arrives or done
// fires, delivering each as a single ActionMessage.
func ReadLoop(c *Conn, route ids.RouteID, deliver func(ids.RouteID, *action.Message), done <-chan struct{}) error {
	buf := bufpool.Get(maxDatagramSize)
	defer bufpool.Put(buf)
	for {
		select {
		case <-done:
			return nil
		default:
		}

		if err := c.pc.SetReadDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
			return err
		}
		n, _, err := c.pc.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		if n == len(closeDatagram) && string(buf[:n]) == closeDatagram {
			return nil
		}

		msg, perr := action.FromVector(buf[:n])
		if perr != nil {
			logger.Debug("udp: malformed datagram", "error", perr)
			continue
		}
		deliver(route, msg)
	}
}

// Close closes the socket.
func (c *Conn) Close() error { return c.pc.Close() }

// QueueFuncs returns the comms.QueueFuncs for a UDP-backed interface.
// conn is shared by both TX and RX since a UDP socket is bidirectional.
func QueueFuncs(conn *Conn, routeAddr func(ids.RouteID) string) comms.QueueFuncs {
	var closeOnce sync.Once

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
				if err := conn.SendTo(addr, item.Msg); err != nil {
					logger.Error("udp: send failed", "addr", addr, "error", err)
				}
			}
		},
		QueueRx: func(deliver func(ids.RouteID, *action.Message), done <-chan struct{}) error {
			return ReadLoop(conn, ids.ParentRouteID, deliver, done)
		},
		CloseReceiver: func() {
			closeOnce.Do(func() { _ = conn.Close() })
		},
		CloseTransmitter: func() {
			closeOnce.Do(func() { _ = conn.Close() })
		},
	}
}
