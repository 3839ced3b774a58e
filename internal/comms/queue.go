package comms

import (
	"sync"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/pkg/ids"
)

// TxItem pairs an outbound message with the route it is addressed to.
type TxItem struct {
	Route ids.RouteID
	Msg   *action.Message
}

// TxSource is the read side of a CommsInterface's outbound queue, the
// surface a transport binding's QueueTx implementation drains. Pop
// blocks until an item is ready or the queue closes, in which case ok
// is false and the transport's TX loop should return.
type TxSource interface {
	Pop() (item TxItem, ok bool)
}

// txQueue is the outbound message queue for one CommsInterface side. It
// keeps a priority band separate from the normal band: priority
// commands (port negotiation, queries, errors) always drain first.
type txQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	normal   []TxItem
	priority []TxItem
	closed   bool
}

func newTxQueue() *txQueue {
	q := &txQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues msg addressed to route. Priority commands (per
// action.Code.IsPriorityCommand) are routed to the priority band.
func (q *txQueue) Push(route ids.RouteID, msg *action.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	item := TxItem{Route: route, Msg: msg}
	if msg.ActionCode.IsPriorityCommand() {
		q.priority = append(q.priority, item)
	} else {
		q.normal = append(q.normal, item)
	}
	q.cond.Signal()
}

// Pop blocks until an item is available or the queue is closed. ok is
// false only when the queue is closed and drained.
func (q *txQueue) Pop() (item TxItem, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.priority) == 0 && len(q.normal) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.priority) > 0 {
		item, q.priority = q.priority[0], q.priority[1:]
		return item, true
	}
	if len(q.normal) > 0 {
		item, q.normal = q.normal[0], q.normal[1:]
		return item, true
	}
	return TxItem{}, false
}

// Close marks the queue closed and wakes any blocked Pop.
func (q *txQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len reports the combined depth of both bands, for metrics.
func (q *txQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.priority) + len(q.normal)
}
