// Package brokerserver implements BrokerServer (C9): the well-known
// bootstrap endpoint new cores and brokers negotiate ports against
// before establishing their real comms.Interface connection. It listens
// on both TCP and UDP, mirroring the narrowed C7 transport scope.
package brokerserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/logger"
	"github.com/fedcore/corefed/internal/network"
)

// DefaultTCPPort and DefaultUDPPort are the well-known bootstrap ports
// a BrokerServer listens on absent explicit configuration.
const (
	DefaultTCPPort = 24160
	DefaultUDPPort = 23901
)

// portDataSize is the number of candidate ports BrokerServer reserves
// starting at defaultPort+4, for cores/brokers that need a block of
// ports rather than a single one.
const portDataSize = 20

// Config holds BrokerServer's listen addresses and the allocator it
// hands out ports from.
type Config struct {
	TCPPort      int
	UDPPort      int
	DefaultPort  int // base port for the 20-entry portData block
	StartingPort int // seed for the PortAllocator; 0 uses its default
}

// Server is BrokerServer (C9): a dual TCP/UDP listener answering the
// port-negotiation protocol for new cores and brokers joining a
// federation.
type Server struct {
	cfg       Config
	allocator *network.PortAllocator

	tcpListener net.Listener
	udpConn     *net.UDPConn

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	portData []int
}

// NewServer returns a Server with cfg's ports defaulted when zero, and
// its candidate portData block precomputed.
func NewServer(cfg Config) *Server {
	if cfg.TCPPort == 0 {
		cfg.TCPPort = DefaultTCPPort
	}
	if cfg.UDPPort == 0 {
		cfg.UDPPort = DefaultUDPPort
	}
	if cfg.DefaultPort == 0 {
		cfg.DefaultPort = DefaultTCPPort
	}

	portData := make([]int, portDataSize)
	for i := range portData {
		portData[i] = cfg.DefaultPort + 4 + i
	}

	return &Server{
		cfg:       cfg,
		allocator: network.NewPortAllocator(cfg.StartingPort),
		shutdown:  make(chan struct{}),
		portData:  portData,
	}
}

// Serve starts the TCP and UDP listeners and blocks until ctx is
// canceled or Stop is called.
func (s *Server) Serve(ctx context.Context) error {
	tcpAddr := fmt.Sprintf(":%d", s.cfg.TCPPort)
	tcpListener, err := net.Listen("tcp", tcpAddr)
	if err != nil {
		return fmt.Errorf("brokerserver: listen TCP %s: %w", tcpAddr, err)
	}
	s.tcpListener = tcpListener

	udpAddr := fmt.Sprintf(":%d", s.cfg.UDPPort)
	resolvedUDP, err := net.ResolveUDPAddr("udp", udpAddr)
	if err != nil {
		_ = s.tcpListener.Close()
		return fmt.Errorf("brokerserver: resolve UDP %s: %w", udpAddr, err)
	}
	udpConn, err := net.ListenUDP("udp", resolvedUDP)
	if err != nil {
		_ = s.tcpListener.Close()
		return fmt.Errorf("brokerserver: listen UDP %s: %w", udpAddr, err)
	}
	s.udpConn = udpConn

	logger.Info("BrokerServer started", "tcp", tcpAddr, "udp", udpAddr)

	s.wg.Add(2)
	go s.serveTCP()
	go s.serveUDP()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.shutdown:
		}
	}()

	s.wg.Wait()
	return nil
}

// serveTCP accepts connections and frames each with
// action.Packetize/Depacketize.
func (s *Server) serveTCP() {
	defer s.wg.Done()

	for {
		conn, err := s.tcpListener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				logger.Debug("brokerserver: TCP accept error", "error", err)
				return
			}
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer func() { _ = c.Close() }()
			s.handleTCPConn(c)
		}(conn)
	}
}

// handleTCPConn services one client connection: a loop of
// depacketize/reply until the peer disconnects.
func (s *Server) handleTCPConn(conn net.Conn) {
	clientAddr := conn.RemoteAddr().String()
	var buf []byte
	chunk := make([]byte, 65536)

	for {
		if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				msg, consumed, perr := action.Depacketize(buf)
				if perr != nil {
					logger.Debug("brokerserver: depacketize error", "client", clientAddr, "error", perr)
					return
				}
				if msg == nil {
					break
				}
				buf = buf[consumed:]

				reply := s.generateMessageResponse(msg, hostOf(clientAddr))
				if reply == nil {
					continue
				}
				if _, werr := conn.Write(reply.Packetize()); werr != nil {
					logger.Debug("brokerserver: TCP write error", "client", clientAddr, "error", werr)
					return
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				logger.Debug("brokerserver: TCP read error", "client", clientAddr, "error", err)
			}
			return
		}
	}
}

// serveUDP reads one-shot request datagrams and replies in kind.
func (s *Server) serveUDP() {
	defer s.wg.Done()
	buf := make([]byte, 1024)

	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		if err := s.udpConn.SetReadDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
			continue
		}
		n, clientAddr, err := s.udpConn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-s.shutdown:
				return
			default:
				logger.Debug("brokerserver: UDP read error", "error", err)
				continue
			}
		}

		msg, perr := action.FromVector(buf[:n])
		if perr != nil {
			logger.Debug("brokerserver: malformed UDP datagram", "client", clientAddr.String(), "error", perr)
			continue
		}

		reply := s.generateMessageResponse(msg, clientAddr.IP.String())
		if reply == nil {
			continue
		}
		if _, werr := s.udpConn.WriteToUDP(reply.ToVector(), clientAddr); werr != nil {
			logger.Debug("brokerserver: UDP write error", "client", clientAddr.String(), "error", werr)
		}
	}
}

// generateMessageResponse answers the port-negotiation protocol
// directly: QUERY_PORTS, REQUEST_PORTS, CONNECTION_REQUEST. Anything
// else gets no reply (the bootstrap endpoint only ever fields these
// three request kinds).
func (s *Server) generateMessageResponse(msg *action.Message, peerHost string) *action.Message {
	switch msg.ActionCode {
	case action.CodeQueryPorts:
		reply := action.New(action.CodePortDefinitions)
		reply.ActionTime = float64(s.cfg.DefaultPort)
		return reply

	case action.CodeRequestPorts:
		count := int(msg.Counter)
		if count <= 0 {
			count = 1
		}
		port := s.allocator.FindOpenPort(count, peerHost)
		reply := action.New(action.CodePortDefinitions)
		reply.ActionTime = float64(port)
		reply.Counter = msg.Counter
		return reply

	case action.CodeConnectionRequest:
		return action.New(action.CodeConnectionAck)

	default:
		return nil
	}
}

// hostOf strips the port from a "host:port" remote address string.
func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// Stop gracefully shuts down both listeners. Idempotent.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		if s.tcpListener != nil {
			_ = s.tcpListener.Close()
		}
		if s.udpConn != nil {
			_ = s.udpConn.Close()
		}
	})
}

// TCPAddr and UDPAddr return the bound listener addresses, or empty
// strings before Serve has started.
func (s *Server) TCPAddr() string {
	if s.tcpListener != nil {
		return s.tcpListener.Addr().String()
	}
	return ""
}

func (s *Server) UDPAddr() string {
	if s.udpConn != nil {
		return s.udpConn.LocalAddr().String()
	}
	return ""
}

// PortData returns the 20-entry candidate port block reserved for
// clients needing more than one assigned port.
func (s *Server) PortData() []int {
	out := make([]int, len(s.portData))
	copy(out, s.portData)
	return out
}
