package kernel

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// QueryMode selects which lane a query travels. Fast queries run
// immediately, concurrently with any other query. Ordered queries are
// serialized with one another through the engine's ordered lane; they
// are not sequenced against data commands already in the dispatch
// queue.
type QueryMode int

const (
	QueryFast QueryMode = iota
	QueryOrdered
)

func (m QueryMode) String() string {
	if m == QueryOrdered {
		return "ordered"
	}
	return "fast"
}

// QueryToken identifies one in-flight asynchronous query.
type QueryToken uint64

// QueryHandler answers a single (target, query) pair synchronously.
// It is called on the fast path directly, and on the ordered path once
// the ordered lane is free.
type QueryHandler func(target, query string) (string, error)

// QueryEngine dispatches queries to a QueryHandler, offering both a
// synchronous call and a token-based async/poll interface for callers
// that issue a query and continue other work while it resolves.
type QueryEngine struct {
	handler QueryHandler

	mu        sync.Mutex
	nextToken uint64
	pending   map[QueryToken]*pendingQuery

	orderedMu sync.Mutex // serializes ordered-mode execution only

	fastCount    atomic.Int64
	orderedCount atomic.Int64
}

type pendingQuery struct {
	done   chan struct{}
	result string
	err    error
}

// NewQueryEngine returns a QueryEngine backed by handler.
func NewQueryEngine(handler QueryHandler) *QueryEngine {
	return &QueryEngine{
		handler: handler,
		pending: make(map[QueryToken]*pendingQuery),
	}
}

// Execute runs the query synchronously and returns its result. Fast
// queries run immediately; ordered queries wait for the engine's
// ordered lane to be free first, so concurrent ordered queries don't
// interleave with each other out of sequence.
func (q *QueryEngine) Execute(target, query string, mode QueryMode) (string, error) {
	if mode == QueryOrdered {
		q.orderedMu.Lock()
		defer q.orderedMu.Unlock()
		q.orderedCount.Add(1)
	} else {
		q.fastCount.Add(1)
	}
	return q.handler(target, query)
}

// ExecuteAsync starts the query in a new goroutine and returns a token
// the caller can later pass to Wait or Poll.
func (q *QueryEngine) ExecuteAsync(target, query string, mode QueryMode) QueryToken {
	q.mu.Lock()
	q.nextToken++
	token := QueryToken(q.nextToken)
	pq := &pendingQuery{done: make(chan struct{})}
	q.pending[token] = pq
	q.mu.Unlock()

	go func() {
		result, err := q.Execute(target, query, mode)
		pq.result = result
		pq.err = err
		close(pq.done)
	}()

	return token
}

// Poll reports whether token has resolved, and if so, its result.
// Returns an error if token is unknown.
func (q *QueryEngine) Poll(token QueryToken) (result string, ready bool, err error) {
	q.mu.Lock()
	pq, ok := q.pending[token]
	q.mu.Unlock()
	if !ok {
		return "", false, fmt.Errorf("kernel: unknown query token %d", token)
	}

	select {
	case <-pq.done:
		return pq.result, true, pq.err
	default:
		return "", false, nil
	}
}

// Wait blocks until token resolves and returns its result, then
// forgets the token.
func (q *QueryEngine) Wait(token QueryToken) (string, error) {
	q.mu.Lock()
	pq, ok := q.pending[token]
	q.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("kernel: unknown query token %d", token)
	}

	<-pq.done

	q.mu.Lock()
	delete(q.pending, token)
	q.mu.Unlock()

	return pq.result, pq.err
}

// Counts returns the number of fast and ordered queries executed so
// far, for diagnostics.
func (q *QueryEngine) Counts() (fast, ordered int64) {
	return q.fastCount.Load(), q.orderedCount.Load()
}
