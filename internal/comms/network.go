package comms

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/logger"
	"github.com/fedcore/corefed/internal/network"
	"github.com/fedcore/corefed/pkg/ids"
)

// NetworkConfig carries the fields NetworkCommsInterface needs beyond
// the base Interface: whether a broker parent exists, and retry/port
// tuning.
type NetworkConfig struct {
	HasParentBroker     bool
	BrokerName          string
	BrokerInitString    string
	BrokerAddress       string // host:port of the broker's priority endpoint
	LocalPort           int    // 0 means "request from broker"
	ForceConnection     bool
	AppendNameToAddress bool
	MaxRetries          int

	// ForceConnectionLinger is how long ForceConnect waits after
	// evicting whatever currently holds a port before rebinding to it.
	// Zero uses defaultForceConnectionLinger.
	ForceConnectionLinger time.Duration
}

// defaultMaxRetries matches the bounded retry count for broker
// redirects and delayed connections.
const defaultMaxRetries = 5

// defaultForceConnectionLinger is the pause between evicting a port's
// current holder and rebinding to it, giving the holder's OS socket
// time to actually release the port.
const defaultForceConnectionLinger = 1050 * time.Millisecond

// Network is NetworkCommsInterface (C6): adds port negotiation to
// Interface. It owns a PortAllocator for the server side of the
// handshake and the retry/redirect logic for the client side.
type Network struct {
	*Interface

	cfg       NetworkConfig
	allocator *network.PortAllocator

	boundPort int
}

// NewNetwork wraps base with network port-negotiation behavior. alloc
// may be nil for a comms interface that never serves REQUEST_PORTS
// (a pure client-side core with a preassigned port).
func NewNetwork(base *Interface, cfg NetworkConfig, alloc *network.PortAllocator) *Network {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.ForceConnectionLinger <= 0 {
		cfg.ForceConnectionLinger = defaultForceConnectionLinger
	}
	return &Network{
		Interface: base,
		cfg:       cfg,
		allocator: alloc,
		boundPort: cfg.LocalPort,
	}
}

// NegotiatePort performs the client-side handshake: if a parent broker
// exists and no local port was preassigned, send REQUEST_PORTS to the
// broker's priority endpoint and wait for PORT_DEFINITIONS. send is the
// caller's transport-specific delivery of a single priority message to
// host:port, returning the decoded reply message (or an error).
func (n *Network) NegotiatePort(
	send func(hostPort string, msg *action.Message) (*action.Message, error),
) (port int, err error) {
	if !n.cfg.HasParentBroker || n.boundPort != 0 {
		return n.boundPort, nil
	}

	addr := n.cfg.BrokerAddress
	for attempt := 0; attempt < n.cfg.MaxRetries; attempt++ {
		req := action.New(action.CodeRequestPorts)
		req.StringData = []string{n.cfg.BrokerName, n.cfg.BrokerInitString}
		req.Counter = 1

		reply, sendErr := send(addr, req)
		if sendErr != nil {
			return 0, fmt.Errorf("comms: request ports to %s: %w", addr, sendErr)
		}

		switch reply.ActionCode {
		case action.CodePortDefinitions:
			n.boundPort = int(reply.ActionTime)
			return n.boundPort, nil

		case action.CodeNewBrokerInfo:
			addr = reply.Name
			logger.Info("comms: broker redirected connection", "newAddress", addr)
			continue

		case action.CodeDelayConnection:
			time.Sleep(2 * time.Second)
			continue

		default:
			return 0, fmt.Errorf("comms: unexpected reply to port request: code %d", reply.ActionCode)
		}
	}
	return 0, fmt.Errorf("comms: port negotiation exhausted %d retries", n.cfg.MaxRetries)
}

// ForceConnect implements the ForceConnection contract: when a port
// this side needs is already held by a stale peer, send it
// CMD_GLOBAL_ERROR over the existing connection to force it to
// release the port, wait ForceConnectionLinger for that teardown to
// actually free the socket, then invoke bind to claim it. bind is the
// transport-specific listen call (e.g. tcp.Listen); send delivers the
// eviction notice to the existing holder and may fail silently if that
// peer has already gone away.
func (n *Network) ForceConnect(
	existingHolder string,
	send func(hostPort string, msg *action.Message) error,
	bind func() error,
) error {
	if !n.cfg.ForceConnection {
		return bind()
	}

	if existingHolder != "" {
		evict := action.New(action.CodeGlobalError)
		evict.Name = "port in use: forcing reconnection"
		if err := send(existingHolder, evict); err != nil {
			logger.Debug("comms: force-connect eviction notice failed, proceeding anyway", "target", existingHolder, "error", err)
		}
	}

	time.Sleep(n.cfg.ForceConnectionLinger)
	return bind()
}

// GenerateReplyToIncomingMessage implements the server side of the
// port-negotiation protocol: the response this comms interface gives
// to a peer's protocol-level request. Returns nil for CMD_IGNORE (the
// caller must forward the original message unmodified).
func (n *Network) GenerateReplyToIncomingMessage(msg *action.Message, peerHost string) *action.Message {
	switch msg.ActionCode {
	case action.CodeQueryPorts:
		reply := action.New(action.CodePortDefinitions)
		reply.ActionTime = float64(n.boundPort)
		return reply

	case action.CodeRequestPorts:
		if n.allocator == nil {
			return nil
		}
		count := int(msg.Counter)
		if count <= 0 {
			count = 1
		}
		openPort := n.allocator.FindOpenPort(count, peerHost)

		reply := action.New(action.CodePortDefinitions)
		reply.ActionTime = float64(openPort)
		reply.Counter = msg.Counter
		reply.SourceID = ids.GlobalFederateId(openPort)
		return reply

	case action.CodeConnectionRequest:
		return action.New(action.CodeConnectionAck)

	default:
		return nil // CMD_IGNORE: caller forwards the original message.
	}
}

// GetAddress formats addr for advertisement to peers: wildcard bind
// addresses are rewritten to the loopback address, and the interface
// name is appended when AppendNameToAddress is set.
func (n *Network) GetAddress(addr string) string {
	out := addr
	switch addr {
	case "*", "0.0.0.0", "tcp://*":
		out = "127.0.0.1"
	}
	if n.cfg.AppendNameToAddress && n.Name() != "" {
		out = out + "/" + n.Name()
	}
	return out
}

// SplitHostPort parses a "host:port" pair, tolerating a scheme prefix
// (e.g. "tcp://host:port") the way broker-redirect addresses and
// configuration strings carry it.
func SplitHostPort(addr string) (host string, port int, err error) {
	addr = strings.TrimPrefix(addr, "tcp://")
	addr = strings.TrimPrefix(addr, "udp://")
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	portNum, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("comms: invalid port %q: %w", p, err)
	}
	return h, portNum, nil
}

// BoundPort returns the port this interface is bound to, once known.
func (n *Network) BoundPort() int { return n.boundPort }
