package kernel

import (
	"context"
	"fmt"
	"sync"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/comms"
	brokeradapter "github.com/fedcore/corefed/internal/comms/broker"
	"github.com/fedcore/corefed/internal/logger"
	"github.com/fedcore/corefed/pkg/ids"
	"github.com/fedcore/corefed/pkg/metrics"
)

// Broker is the tree-forwarding kernel: it has no federates or
// TimeCoordinators of its own, only a set of downstream links (child
// cores or brokers) and, unless it is the root, one upstream link
// toward its own parent. A message whose destination isn't one of its
// direct children is forwarded up ParentRouteID; everything else is
// routed to the downstream link the destination federate registered
// through.
type Broker struct {
	name string
	disp *Dispatcher

	routes   *RouteTable
	registry *Registry
	query    *QueryEngine

	linkMu sync.RWMutex
	links  map[ids.RouteID]*brokeradapter.CommsBroker
	parent *brokeradapter.CommsBroker // nil for the root broker

	isRoot bool

	kernelMetrics metrics.KernelMetrics
	actionMetrics metrics.ActionMetrics
	commsMetrics  metrics.CommsMetrics
}

// BrokerOption configures Broker construction.
type BrokerOption func(*Broker)

// WithBrokerActionMetrics attaches an ActionMetrics sink.
func WithBrokerActionMetrics(m metrics.ActionMetrics) BrokerOption {
	return func(b *Broker) { b.actionMetrics = m }
}

// WithBrokerKernelMetrics attaches a KernelMetrics sink.
func WithBrokerKernelMetrics(m metrics.KernelMetrics) BrokerOption {
	return func(b *Broker) { b.kernelMetrics = m }
}

// WithBrokerCommsMetrics attaches a CommsMetrics sink, used to report
// route table size as routes are added and removed.
func WithBrokerCommsMetrics(m metrics.CommsMetrics) BrokerOption {
	return func(b *Broker) { b.commsMetrics = m }
}

// NewRootBroker returns a Broker with no parent: the top of a
// federation's broker tree.
func NewRootBroker(name string, opts ...BrokerOption) *Broker {
	return newBroker(name, true, opts...)
}

// NewChildBroker returns a Broker that forwards anything not addressed
// to one of its own children up through parentIface.
func NewChildBroker(name string, parentIface *comms.Interface, opts ...BrokerOption) *Broker {
	b := newBroker(name, false, opts...)
	b.parent = brokeradapter.New(parentIface, b.disp)
	return b
}

func newBroker(name string, isRoot bool, opts ...BrokerOption) *Broker {
	b := &Broker{
		name:     name,
		registry: NewRegistry(),
		routes:   NewRouteTable(),
		links:    make(map[ids.RouteID]*brokeradapter.CommsBroker),
		isRoot:   isRoot,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.query = NewQueryEngine(b.answerQuery)

	handlers := DispatcherHandlers{
		Protocol: b.handleProtocol,
		Timing:   b.handleForward,
		Data:     b.handleForward,
		Query:    b.handleQuery,
	}
	b.disp = NewDispatcher(handlers, b.actionMetrics)
	return b
}

// AddChild attaches a downstream link (a core or a sub-broker) on
// routeID, the route that child was assigned when it connected.
func (b *Broker) AddChild(routeID ids.RouteID, childIface *comms.Interface) {
	b.linkMu.Lock()
	defer b.linkMu.Unlock()
	b.links[routeID] = brokeradapter.New(childIface, b.disp)
}

// NextRoute allocates a route ID for a child joining dynamically (a
// listener accepting a new connection, rather than a link wired up
// before Connect was called).
func (b *Broker) NextRoute(target RouteTarget) ids.RouteID {
	id := b.routes.AddRoute(target)
	b.reportRouteCount()
	return id
}

// AddChildAndConnect attaches a downstream link like AddChild, then
// immediately brings it up. Unlike AddChild, this is safe to call
// after Connect's dispatch loop is already running, which is the
// normal case for a child admitted after broker startup.
func (b *Broker) AddChildAndConnect(routeID ids.RouteID, childIface *comms.Interface) error {
	link := brokeradapter.New(childIface, b.disp)
	b.linkMu.Lock()
	b.links[routeID] = link
	b.linkMu.Unlock()

	if _, err := link.Connect(); err != nil {
		return fmt.Errorf("kernel: broker %q child connect: %w", b.name, err)
	}
	return nil
}

// RegisterChildFederate records that federate id (and name) is reached
// through routeID, so later timing/data traffic addressed to id is
// forwarded down that link instead of up to the parent. A broker learns
// this mapping out of band, from whatever registration exchange
// accompanies a child's first connection.
func (b *Broker) RegisterChildFederate(id ids.GlobalFederateId, name string, route ids.RouteID) {
	b.registry.RegisterFederate(&FederateInfo{ID: id, Name: name, Route: route})
}

// Connect brings every downstream link and the upstream link (if any)
// up, then runs the dispatch loop until ctx is canceled.
func (b *Broker) Connect(ctx context.Context, workers int) error {
	b.linkMu.RLock()
	children := make([]*brokeradapter.CommsBroker, 0, len(b.links))
	for _, l := range b.links {
		children = append(children, l)
	}
	b.linkMu.RUnlock()

	for _, l := range children {
		if _, err := l.Connect(); err != nil {
			return fmt.Errorf("kernel: broker %q child connect: %w", b.name, err)
		}
	}
	if b.parent != nil {
		if _, err := b.parent.Connect(); err != nil {
			return fmt.Errorf("kernel: broker %q parent connect: %w", b.name, err)
		}
	}

	return b.disp.Run(ctx, workers)
}

// Disconnect tears down every link this broker owns.
func (b *Broker) Disconnect() {
	b.linkMu.RLock()
	defer b.linkMu.RUnlock()
	for _, l := range b.links {
		l.BrokerDisconnect()
	}
	if b.parent != nil {
		b.parent.BrokerDisconnect()
	}
}

// handleProtocol processes route allocation and global disconnect
// notices, same as Core's.
func (b *Broker) handleProtocol(route ids.RouteID, msg *action.Message) {
	switch msg.ActionCode {
	case action.CodeNewRoute:
		target := RouteTarget{}
		if len(msg.StringData) > 0 {
			target.Address = msg.StringData[0]
		}
		b.routes.AddRoute(target)
		b.reportRouteCount()
	case action.CodeRemoveRoute:
		b.routes.RemoveRoute(route)
		b.reportRouteCount()
	case action.CodeNewBrokerInfo:
		logger.Info("broker: redirected to new parent", "broker", b.name, "info", msg.Name)
	case action.CodeDisconnect, action.CodeDisconnectErr, action.CodeGlobalError:
		if msg.SourceID != ids.InvalidFederateId {
			b.registry.RemoveFederate(msg.SourceID)
		}
		b.forwardUp(route, msg)
	default:
		logger.Debug("broker: unhandled protocol command", "broker", b.name, "code", msg.ActionCode)
	}
}

func (b *Broker) reportRouteCount() {
	if b.commsMetrics != nil {
		b.commsMetrics.SetRouteCount(b.routes.Count())
	}
}

// handleForward routes timing and data commands toward their
// destination: down to a registered child if the destination federate
// was seen on one of this broker's routes, otherwise up to the parent
// (a root broker with no match simply drops the message, since there
// is nowhere higher to send it).
func (b *Broker) handleForward(route ids.RouteID, msg *action.Message) {
	if fed := b.registry.FederateByID(msg.DestID); fed != nil {
		b.linkMu.RLock()
		link, ok := b.links[fed.Route]
		b.linkMu.RUnlock()
		if ok {
			link.Transmit(fed.Route, msg)
			return
		}
	}
	b.forwardUp(route, msg)
}

func (b *Broker) forwardUp(route ids.RouteID, msg *action.Message) {
	if b.parent == nil {
		if !b.isRoot {
			logger.Warn("broker: no parent link to forward to", "broker", b.name)
		}
		return
	}
	b.parent.Transmit(ids.ParentRouteID, msg)
}

// handleQuery answers a query about this broker's subtree.
func (b *Broker) handleQuery(route ids.RouteID, msg *action.Message) {
	if msg.ActionCode == action.CodeQueryReply {
		b.forwardUp(route, msg)
		return
	}

	mode := QueryFast
	if msg.IsIteration() {
		mode = QueryOrdered
	}

	result, err := b.query.Execute(msg.Name, msg.Payload.ToStringView(), mode)
	if err != nil {
		result = fmt.Sprintf("{\"error\":%q}", err.Error())
	}

	reply := action.New(action.CodeQueryReply)
	reply.DestID = msg.SourceID
	if aerr := reply.Payload.Assign([]byte(result)); aerr != nil {
		logger.Warn("broker: query reply payload assign failed", "error", aerr)
	}
	b.forwardUp(route, reply)
}

func (b *Broker) answerQuery(target, query string) (string, error) {
	switch query {
	case "federates":
		names := make([]string, 0)
		for _, f := range b.registry.Federates() {
			names = append(names, f.Name)
		}
		return fmt.Sprintf("%q", names), nil
	case "isconnected":
		return "true", nil
	default:
		return "", fmt.Errorf("kernel: unrecognized query %q for target %q", query, target)
	}
}
