package kernel

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/comms"
	"github.com/fedcore/corefed/internal/comms/broker"
	"github.com/fedcore/corefed/internal/logger"
	"github.com/fedcore/corefed/internal/timecoord"
	"github.com/fedcore/corefed/pkg/ids"
	"github.com/fedcore/corefed/pkg/metrics"
)

// Core is the federate-facing kernel: it owns one TimeCoordinator per
// locally connected federate, a filter/translator registry for their
// endpoints and publications, and a single CommsBroker link upward to
// a Broker (or, for a single-core federation, to nothing at all — the
// core is its own root).
type Core struct {
	name  string
	comms *broker.CommsBroker
	disp  *Dispatcher

	registry *Registry
	routes   *RouteTable
	query    *QueryEngine

	coordMu      sync.RWMutex
	coordinators map[ids.GlobalFederateId]*timecoord.Coordinator

	filterMu    sync.RWMutex
	filters     map[ids.GlobalHandle]*FilterChain
	translators map[ids.GlobalHandle]TranslatorOperator

	kernelMetrics metrics.KernelMetrics
	actionMetrics metrics.ActionMetrics
	commsMetrics  metrics.CommsMetrics
}

// CoreOption configures Core construction.
type CoreOption func(*Core)

// WithKernelMetrics attaches a KernelMetrics sink.
func WithKernelMetrics(m metrics.KernelMetrics) CoreOption {
	return func(c *Core) { c.kernelMetrics = m }
}

// WithActionMetrics attaches an ActionMetrics sink.
func WithActionMetrics(m metrics.ActionMetrics) CoreOption {
	return func(c *Core) { c.actionMetrics = m }
}

// WithCommsMetrics attaches a CommsMetrics sink, used to report route
// table size as routes are added and removed.
func WithCommsMetrics(m metrics.CommsMetrics) CoreOption {
	return func(c *Core) { c.commsMetrics = m }
}

// NewCore wires a Core around iface, an already-constructed
// comms.Interface (plain or wrapped in a comms.Network for port
// negotiation), adapted through a CommsBroker.
func NewCore(name string, iface *comms.Interface, opts ...CoreOption) *Core {
	c := &Core{
		name:         name,
		registry:     NewRegistry(),
		routes:       NewRouteTable(),
		coordinators: make(map[ids.GlobalFederateId]*timecoord.Coordinator),
		filters:      make(map[ids.GlobalHandle]*FilterChain),
		translators:  make(map[ids.GlobalHandle]TranslatorOperator),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.query = NewQueryEngine(c.answerQuery)

	handlers := DispatcherHandlers{
		Protocol: c.handleProtocol,
		Timing:   c.handleTiming,
		Data:     c.handleData,
		Query:    c.handleQuery,
	}
	c.disp = NewDispatcher(handlers, c.actionMetrics)
	c.comms = broker.New(iface, c.disp)
	return c
}

// Connect brings the Core's upstream comms link up and starts its
// dispatch workers. Blocks until ctx is canceled.
func (c *Core) Connect(ctx context.Context, workers int) error {
	if _, err := c.comms.Connect(); err != nil {
		return fmt.Errorf("kernel: core %q connect: %w", c.name, err)
	}
	return c.disp.Run(ctx, workers)
}

// Disconnect tears down the Core's comms link.
func (c *Core) Disconnect() {
	c.comms.BrokerDisconnect()
}

// TransmitUp sends msg toward the core's parent broker, the route a
// registered federate's TimeCoordinator broadcast uses to announce its
// timing state to dependents elsewhere in the federation.
func (c *Core) TransmitUp(msg *action.Message) {
	c.comms.Transmit(ids.ParentRouteID, msg)
}

// RegisterFederate adds a new federate under cfg, creating its
// TimeCoordinator. broadcast is supplied by the caller because only
// the owner knows whether a given dependent is local (direct call) or
// remote (needs a Transmit over a route).
func (c *Core) RegisterFederate(id ids.GlobalFederateId, name string, cfg timecoord.Config, broadcast timecoord.BroadcastFunc) error {
	if !c.registry.RegisterFederate(&FederateInfo{ID: id, Name: name}) {
		return fmt.Errorf("kernel: federate name %q already registered", name)
	}

	c.coordMu.Lock()
	c.coordinators[id] = timecoord.New(id, cfg, broadcast)
	c.coordMu.Unlock()
	return nil
}

// Coordinator returns the TimeCoordinator for a locally registered
// federate, or nil.
func (c *Core) Coordinator(id ids.GlobalFederateId) *timecoord.Coordinator {
	c.coordMu.RLock()
	defer c.coordMu.RUnlock()
	return c.coordinators[id]
}

// PlaceFilter attaches a filter to handle.
func (c *Core) PlaceFilter(p FilterPlacement) {
	c.filterMu.Lock()
	defer c.filterMu.Unlock()
	chain, ok := c.filters[p.Handle]
	if !ok {
		chain = &FilterChain{}
		c.filters[p.Handle] = chain
	}
	chain.Add(p)
}

// PlaceTranslator attaches translator to handle, replacing any prior
// translator on that handle (an endpoint has at most one).
func (c *Core) PlaceTranslator(handle ids.GlobalHandle, translator TranslatorOperator) {
	c.filterMu.Lock()
	defer c.filterMu.Unlock()
	c.translators[handle] = translator
}

// handleProtocol processes protocol-category ActionMessages: route
// allocation and teardown. Connection-level negotiation (port
// assignment) belongs to NetworkCommsInterface, upstream of dispatch.
func (c *Core) handleProtocol(route ids.RouteID, msg *action.Message) {
	switch msg.ActionCode {
	case action.CodeNewRoute:
		target := RouteTarget{}
		if len(msg.StringData) > 0 {
			target.Address = msg.StringData[0]
		}
		c.routes.AddRoute(target)
		c.reportRouteCount()
	case action.CodeRemoveRoute:
		c.routes.RemoveRoute(route)
		c.reportRouteCount()
	case action.CodeDisconnect, action.CodeDisconnectErr, action.CodeGlobalError:
		if msg.SourceID != ids.InvalidFederateId {
			c.registry.RemoveFederate(msg.SourceID)
			c.coordMu.Lock()
			delete(c.coordinators, msg.SourceID)
			c.coordMu.Unlock()
		}
	case action.CodeReconnectTx, action.CodeReconnectRx:
		if msg.SourceID != ids.InvalidFederateId {
			coord := c.Coordinator(msg.SourceID)
			if coord == nil {
				logger.Debug("core: reconnect for unknown federate dropped", "core", c.name, "federate", msg.SourceID)
				return
			}
			coord.ResetForReconnect()
			logger.Info("core: federate reconnected, time state reset", "core", c.name, "federate", msg.SourceID)
		}
	default:
		logger.Debug("core: unhandled protocol command", "core", c.name, "code", msg.ActionCode)
	}
}

func (c *Core) reportRouteCount() {
	if c.commsMetrics != nil {
		c.commsMetrics.SetRouteCount(c.routes.Count())
	}
}

// handleTiming routes a timing command to the addressed federate's
// TimeCoordinator.
func (c *Core) handleTiming(_ ids.RouteID, msg *action.Message) {
	coord := c.Coordinator(msg.DestID)
	if coord == nil {
		logger.Debug("core: timing command for unknown federate dropped", "core", c.name, "federate", msg.DestID)
		return
	}

	switch {
	case msg.ActionCode.IsTimingCommand() && msg.ActionCode >= action.CodeUpdateOutputDelay && msg.ActionCode <= action.CodeUpdateFlag:
		coord.ProcessConfigUpdateMessage(msg)
	default:
		coord.ProcessTimeMessage(msg)
	}

	if c.kernelMetrics != nil {
		c.kernelMetrics.RecordTimeGranted(int32(msg.DestID), coord.TimeGranted())
		c.kernelMetrics.RecordTimeExec(int32(msg.DestID), coord.TimeExec())
		c.kernelMetrics.RecordIteration(int32(msg.DestID), coord.Iteration())
	}
}

// handleData forwards a value or message-endpoint command through any
// placed filters and translators before delivery, then transmits it
// toward its destination's route.
func (c *Core) handleData(route ids.RouteID, msg *action.Message) {
	dest := ids.GlobalHandle{Federate: msg.DestID}
	kind := FilterDestination

	c.filterMu.RLock()
	chain := c.filters[dest]
	translator := c.translators[dest]
	c.filterMu.RUnlock()

	results := []*action.Message{msg}
	if chain != nil {
		results = chain.Apply(kind, msg)
	}

	for _, m := range results {
		if translator != nil {
			converted, err := translator.ToValue(m)
			if err != nil {
				logger.Warn("core: translator error", "core", c.name, "error", err)
				continue
			}
			m = converted
		}
		c.comms.Transmit(route, m)
	}
}

// handleQuery answers or forwards a query command.
func (c *Core) handleQuery(route ids.RouteID, msg *action.Message) {
	if msg.ActionCode == action.CodeQueryReply {
		return
	}

	mode := QueryFast
	if msg.IsIteration() {
		mode = QueryOrdered
	}

	target := msg.Name
	queryStr := msg.Payload.ToStringView()
	result, err := c.query.Execute(target, queryStr, mode)
	if err != nil {
		result = fmt.Sprintf("{\"error\":%q}", err.Error())
	}

	reply := action.New(action.CodeQueryReply)
	reply.DestID = msg.SourceID
	if aerr := reply.Payload.Assign([]byte(result)); aerr != nil {
		logger.Warn("core: query reply payload assign failed", "error", aerr)
	}
	c.comms.Transmit(route, reply)
}

// answerQuery is the QueryEngine's default handler, serving the
// built-in queries a core supports, matched case-insensitively:
// "federates" lists registered federate names, "isinit" reports true,
// and "name" returns the core's name. Any other query is an error.
func (c *Core) answerQuery(target, query string) (string, error) {
	switch strings.ToLower(query) {
	case "federates":
		names := make([]string, 0)
		for _, f := range c.registry.Federates() {
			names = append(names, f.Name)
		}
		return fmt.Sprintf("%q", names), nil
	case "isinit":
		return "true", nil
	case "name":
		return fmt.Sprintf("%q", c.name), nil
	default:
		return "", fmt.Errorf("kernel: unrecognized query %q for target %q", query, target)
	}
}
