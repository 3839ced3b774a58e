package kernel

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/logger"
	"github.com/fedcore/corefed/pkg/ids"
	"github.com/fedcore/corefed/pkg/metrics"
)

// inboundAction pairs a received ActionMessage with the route it
// arrived on, the unit of work the dispatch loop processes.
type inboundAction struct {
	route ids.RouteID
	msg   *action.Message
}

// Dispatcher is the shared message-processing loop both Core and
// Broker embed: an inbound queue fed by comms callbacks (EnqueueAction
// satisfies broker.Role) and a pool of worker goroutines that classify
// and route each ActionMessage. Protocol commands are handled inline
// by the owning kernel; timing, data, and query commands are delegated
// to callbacks the owner installs.
type Dispatcher struct {
	inbox  chan inboundAction
	action metrics.ActionMetrics

	handleProtocol func(route ids.RouteID, msg *action.Message)
	handleTiming   func(route ids.RouteID, msg *action.Message)
	handleData     func(route ids.RouteID, msg *action.Message)
	handleQuery    func(route ids.RouteID, msg *action.Message)
}

// DispatcherHandlers bundles the per-category callbacks a Dispatcher
// owner installs. A nil handler drops messages of that category.
type DispatcherHandlers struct {
	Protocol func(route ids.RouteID, msg *action.Message)
	Timing   func(route ids.RouteID, msg *action.Message)
	Data     func(route ids.RouteID, msg *action.Message)
	Query    func(route ids.RouteID, msg *action.Message)
}

// defaultQueueDepth sizes the inbound channel generously enough to
// absorb a burst of protocol traffic (route setup, port negotiation)
// without the comms RX thread blocking on a slow worker.
const defaultQueueDepth = 256

// NewDispatcher returns a Dispatcher ready to have its workers started
// with Run.
func NewDispatcher(h DispatcherHandlers, m metrics.ActionMetrics) *Dispatcher {
	return &Dispatcher{
		inbox:          make(chan inboundAction, defaultQueueDepth),
		action:         m,
		handleProtocol: h.Protocol,
		handleTiming:   h.Timing,
		handleData:     h.Data,
		handleQuery:    h.Query,
	}
}

// EnqueueAction implements broker.Role: it is the callback
// comms.Interface invokes for every message delivered off the wire.
func (d *Dispatcher) EnqueueAction(route ids.RouteID, msg *action.Message) {
	d.inbox <- inboundAction{route: route, msg: msg}
}

// Run starts workerCount goroutines draining the inbound queue, and
// blocks until ctx is canceled or a worker returns an error. Workers
// are fanned out with an errgroup so a panic-free worker error
// propagates and tears down the rest.
func (d *Dispatcher) Run(ctx context.Context, workerCount int) error {
	if workerCount < 1 {
		workerCount = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workerCount; i++ {
		g.Go(func() error {
			return d.worker(gctx)
		})
	}
	return g.Wait()
}

func (d *Dispatcher) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item := <-d.inbox:
			d.dispatch(item.route, item.msg)
		}
	}
}

// dispatch classifies one message by its action code and routes it to
// the installed handler, recording metrics along the way.
func (d *Dispatcher) dispatch(route ids.RouteID, msg *action.Message) {
	if d.action != nil {
		d.action.RecordActionMessage(int(msg.ActionCode))
		d.action.RecordActionMessageSize(int(msg.ActionCode), msg.Payload.Len())
	}

	switch {
	case msg.IsIgnoreableCommand():
		return

	case msg.ActionCode == action.CodeQuery, msg.ActionCode == action.CodeQueryReply:
		if d.handleQuery != nil {
			d.handleQuery(route, msg)
		}

	case msg.IsProtocolCommand():
		if d.handleProtocol != nil {
			d.handleProtocol(route, msg)
		}

	case msg.ActionCode.IsTimingCommand():
		if d.handleTiming != nil {
			d.handleTiming(route, msg)
		}

	case msg.ActionCode == action.CodePublication, msg.ActionCode == action.CodeMessage:
		if d.handleData != nil {
			d.handleData(route, msg)
		}

	case msg.IsDisconnectCommand():
		if d.handleTiming != nil {
			d.handleTiming(route, msg)
		}
		if d.handleProtocol != nil {
			d.handleProtocol(route, msg)
		}

	default:
		logger.Debug("kernel: unclassified action code dropped", "code", msg.ActionCode)
	}
}
