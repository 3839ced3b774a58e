package comms

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/logger"
	"github.com/fedcore/corefed/internal/trigger"
	"github.com/fedcore/corefed/pkg/ids"
	"github.com/fedcore/corefed/pkg/metrics"
)

// ErrNoCallback is returned by Connect when no action callback has
// been installed.
var ErrNoCallback = errors.New("comms: connect requires an action callback")

// ActionCallback is invoked once per ActionMessage the RX loop
// receives, after any protocol short-circuit has already been applied.
type ActionCallback func(route ids.RouteID, msg *action.Message)

// QueueFuncs are the transport-specific duties a concrete binding
// (tcp, udp, inproc) supplies. CommsInterface drives them from its TX
// and RX loops; it never touches a socket directly.
type QueueFuncs struct {
	// QueueTx drains q, sending each item to its destination, until q
	// is closed or done is canceled.
	QueueTx func(q TxSource, done <-chan struct{}) error

	// QueueRx blocks receiving inbound messages and invokes deliver for
	// each until done is canceled.
	QueueRx func(deliver func(route ids.RouteID, msg *action.Message), done <-chan struct{}) error

	// CloseReceiver and CloseTransmitter release the transport-specific
	// resources for each side. Both must be safe to call more than
	// once.
	CloseReceiver    func()
	CloseTransmitter func()

	// ReconnectReceiver and ReconnectTransmitter attempt to
	// re-establish each side after a disconnect was detected.
	// Returning false leaves the side TERMINATED.
	ReconnectReceiver    func() bool
	ReconnectTransmitter func() bool
}

// Mode selects whether TX and RX run on independent threads (Dual) or
// share one (Single).
type Mode int

const (
	Dual Mode = iota
	Single
)

// Interface is CommsInterface (C5): the transport-agnostic TX/RX
// machinery a kernel uses to exchange ActionMessages with a peer.
// Concrete transports (tcp, udp, inproc) provide QueueFuncs; Interface
// supplies the connect/disconnect state machine, the TX queue with its
// priority band, and the reserved control-message channel.
type Interface struct {
	mode Mode

	// operating is the property lock: non-zero while a writer holds it.
	// Settable configuration may change only when txStatus is STARTUP
	// and operating is unheld.
	operating atomic.Bool

	txStatus *atomicStatus
	rxStatus *atomicStatus

	txTrigger *trigger.Variable
	rxTrigger *trigger.Variable

	name               string
	localTargetAddress string

	queue      QueueFuncs
	callback   ActionCallback
	callbackMu sync.RWMutex

	tx   *txQueue
	done chan struct{}

	requestDisconnect atomic.Bool
	wg                sync.WaitGroup
	stopOnce          sync.Once

	connID string

	metrics metrics.CommsMetrics
}

// New returns an Interface in the STARTUP/STARTUP state. queue supplies
// the transport-specific TX/RX duties; m may be nil to disable metrics.
func New(mode Mode, queue QueueFuncs, m metrics.CommsMetrics) *Interface {
	return &Interface{
		mode:      mode,
		txStatus:  newAtomicStatus(StatusStartup),
		rxStatus:  newAtomicStatus(StatusStartup),
		txTrigger: trigger.New(),
		rxTrigger: trigger.New(),
		queue:     queue,
		tx:        newTxQueue(),
		done:      make(chan struct{}),
		metrics:   m,
	}
}

// SetActionCallback installs the callback invoked for each inbound
// ActionMessage. Must be called before Connect.
func (c *Interface) SetActionCallback(cb ActionCallback) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.callback = cb
}

func (c *Interface) invokeCallback(route ids.RouteID, msg *action.Message) {
	c.callbackMu.RLock()
	cb := c.callback
	c.callbackMu.RUnlock()
	if cb != nil {
		cb(route, msg)
	}
}

// SetLocalTargetAddress sets the address this interface advertises.
// Only settable while not yet connected (the property lock).
func (c *Interface) SetLocalTargetAddress(addr string) bool {
	if !c.acquirePropertyLock() {
		return false
	}
	defer c.releasePropertyLock()
	c.localTargetAddress = addr
	return true
}

func (c *Interface) acquirePropertyLock() bool {
	if c.txStatus.Load() != StatusStartup {
		return false
	}
	return c.operating.CompareAndSwap(false, true)
}

func (c *Interface) releasePropertyLock() {
	c.operating.Store(false)
}

// TxStatus and RxStatus expose the current per-side connection state.
func (c *Interface) TxStatus() ConnectionStatus { return c.txStatus.Load() }
func (c *Interface) RxStatus() ConnectionStatus { return c.rxStatus.Load() }

// Connect brings the interface up, per the CommsInterface contract:
// returns true immediately if both sides are already CONNECTED, false
// if either side has moved past STARTUP without being CONNECTED (a
// stale or half-torn-down interface may not be reconnected via
// Connect; use the transport's reconnect hooks instead).
func (c *Interface) Connect() (bool, error) {
	if c.txStatus.Load() == StatusConnected && c.rxStatus.Load() == StatusConnected {
		return true, nil
	}
	if c.txStatus.Load() != StatusStartup || c.rxStatus.Load() != StatusStartup {
		return false, nil
	}

	c.callbackMu.RLock()
	hasCallback := c.callback != nil
	c.callbackMu.RUnlock()
	if !hasCallback {
		logger.Error("comms: connect attempted without an action callback")
		return false, ErrNoCallback
	}

	if !c.operating.CompareAndSwap(false, true) {
		return false, nil
	}
	if c.name == "" {
		c.name = c.localTargetAddress
	}
	if c.connID == "" {
		c.connID = xid.New().String()[:10]
	}
	c.operating.Store(false)

	if c.metrics != nil {
		c.metrics.SetConnectionStatus(c.connID, "connecting")
	}

	c.wg.Add(1)
	go c.runTx()

	if c.mode == Dual {
		c.wg.Add(1)
		go c.runRx()
	}

	c.txTrigger.Wait()
	if c.mode == Dual {
		c.rxTrigger.Wait()
	} else {
		c.rxTrigger.Trigger()
	}

	txOK := c.txStatus.Load() == StatusConnected
	rxOK := c.rxStatus.Load() == StatusConnected
	if !txOK || !rxOK {
		c.teardownPartial(txOK, rxOK)
		return false, nil
	}

	if c.metrics != nil {
		c.metrics.SetConnectionStatus(c.connID, "connected")
	}
	return true, nil
}

// teardownPartial closes whichever side did come up when the other
// side failed to connect.
func (c *Interface) teardownPartial(txOK, rxOK bool) {
	if txOK && c.queue.CloseTransmitter != nil {
		c.queue.CloseTransmitter()
	}
	if rxOK && c.queue.CloseReceiver != nil {
		c.queue.CloseReceiver()
	}
}

// runTx drains the outbound queue by calling the transport's QueueTx,
// marking the TX side CONNECTED once QueueTx is running and TERMINATED
// when it returns.
func (c *Interface) runTx() {
	defer c.wg.Done()
	c.txStatus.Store(StatusConnected)
	c.txTrigger.Activate()
	c.txTrigger.Trigger()

	if c.queue.QueueTx == nil {
		<-c.done
		c.txStatus.Store(StatusTerminated)
		return
	}

	if err := c.queue.QueueTx(c.tx, c.done); err != nil {
		logger.Error("comms: tx loop exited", "error", err)
		c.txStatus.Store(StatusErrored)
		return
	}
	c.txStatus.Store(StatusTerminated)
}

// runRx blocks in the transport's QueueRx, delivering inbound messages
// to invokeCallback after reserved-route messages are handled locally.
func (c *Interface) runRx() {
	defer c.wg.Done()
	c.rxStatus.Store(StatusConnected)
	c.rxTrigger.Activate()
	c.rxTrigger.Trigger()

	if c.queue.QueueRx == nil {
		<-c.done
		c.rxStatus.Store(StatusTerminated)
		return
	}

	deliver := func(route ids.RouteID, msg *action.Message) {
		if c.metrics != nil {
			c.metrics.RecordBytesTransferred(c.connID, "rx", uint64(msg.Payload.Len()))
		}
		c.invokeCallback(route, msg)
	}

	if err := c.queue.QueueRx(deliver, c.done); err != nil {
		logger.Error("comms: rx loop exited", "error", err)
		c.rxStatus.Store(StatusErrored)
		return
	}
	c.rxStatus.Store(StatusTerminated)
}

// Disconnect tears the interface down. Idempotent: a second call is a
// no-op. Blocks up to roughly 2400ms per retry for up to 14 retries
// (about 34s) waiting for in-flight activity to observe requestDisconnect,
// then logs and gives up rather than hanging forever.
func (c *Interface) Disconnect() {
	c.stopOnce.Do(func() {
		if c.txStatus.Load() == StatusStartup && c.rxStatus.Load() == StatusStartup {
			c.txStatus.Store(StatusTerminated)
			c.rxStatus.Store(StatusTerminated)
			close(c.done)
			c.tx.Close()
			return
		}

		c.requestDisconnect.Store(true)
		if c.queue.CloseTransmitter != nil {
			c.queue.CloseTransmitter()
		}
		if c.queue.CloseReceiver != nil {
			c.queue.CloseReceiver()
		}
		close(c.done)
		c.tx.Close()

		allStopped := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(allStopped)
		}()

		const maxRetries = 14
		const retryInterval = 2400 * time.Millisecond
		for i := 0; i < maxRetries; i++ {
			select {
			case <-allStopped:
				if c.metrics != nil {
					c.metrics.SetConnectionStatus(c.connID, "disconnected")
				}
				return
			case <-time.After(retryInterval):
			}
		}
		logger.Error("comms: disconnect timed out waiting for tx/rx shutdown", "name", c.name)
		if c.metrics != nil {
			c.metrics.SetConnectionStatus(c.connID, "disconnected")
		}
	})
}

// Transmit enqueues msg for delivery along route.
func (c *Interface) Transmit(route ids.RouteID, msg *action.Message) {
	c.tx.Push(route, msg)
	if c.metrics != nil {
		c.metrics.SetTxQueueDepth(c.connID, c.tx.Len())
	}
}

// AddRoute registers routeID as reachable via targetAddress, by
// pushing CMD_PROTOCOL_PRIORITY{NEW_ROUTE} onto the control route; the
// TX loop materializes the actual connection.
func (c *Interface) AddRoute(routeID ids.RouteID, targetAddress string) {
	msg := action.New(action.CodeProtocolPriority)
	msg.MessageID = int32(action.CodeNewRoute)
	msg.Name = targetAddress
	msg.SourceID = ids.GlobalFederateId(routeID)
	c.tx.Push(ids.ControlRoute, msg)
}

// RemoveRoute unregisters routeID, by pushing
// CMD_PROTOCOL{REMOVE_ROUTE} onto the control route.
func (c *Interface) RemoveRoute(routeID ids.RouteID) {
	msg := action.New(action.CodeProtocol)
	msg.MessageID = int32(action.CodeRemoveRoute)
	msg.SourceID = ids.GlobalFederateId(routeID)
	c.tx.Push(ids.ControlRoute, msg)
}

// Name returns the interface's configured name, defaulted to its
// local target address at connect time.
func (c *Interface) Name() string { return c.name }
