// Package inproc implements the inproc transport binding: a
// CommsInterface backed by a shared in-process queue rather than a
// socket, used for broker/core pairs sharing an address space and for
// tests.
package inproc

import (
	"sync"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/comms"
	"github.com/fedcore/corefed/pkg/ids"
)

// Registry is the process-wide directory of named inproc endpoints, the
// inproc transport's substitute for a network address space.
type Registry struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint
}

// NewRegistry returns an empty endpoint directory.
func NewRegistry() *Registry {
	return &Registry{endpoints: make(map[string]*Endpoint)}
}

// Endpoint is one named inproc mailbox. Messages sent to it arrive on
// its inbox channel regardless of which comms.Interface sent them.
type Endpoint struct {
	name  string
	inbox chan inprocItem
}

type inprocItem struct {
	route ids.RouteID
	msg   *action.Message
}

// Register creates and returns a new named endpoint. Panics if the
// name is already registered, the inproc equivalent of a bind()
// address-in-use error.
func (r *Registry) Register(name string) *Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.endpoints[name]; exists {
		panic("inproc: endpoint already registered: " + name)
	}
	ep := &Endpoint{name: name, inbox: make(chan inprocItem, 256)}
	r.endpoints[name] = ep
	return ep
}

// Unregister removes name from the directory. Safe to call more than
// once.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.endpoints, name)
}

// Lookup returns the endpoint registered under name, or nil.
func (r *Registry) Lookup(name string) *Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endpoints[name]
}

// QueueFuncs returns the comms.QueueFuncs for an endpoint named self
// that routes outbound traffic to peerName via reg. inproc ships whole
// ActionMessages per delivery (no packetize/depacketize framing).
func QueueFuncs(reg *Registry, self *Endpoint, peerName string) comms.QueueFuncs {
	return comms.QueueFuncs{
		QueueTx: func(q comms.TxSource, done <-chan struct{}) error {
			for {
				item, ok := q.Pop()
				if !ok {
					return nil
				}
				peer := reg.Lookup(peerName)
				if peer == nil {
					continue
				}
				select {
				case peer.inbox <- inprocItem{route: item.Route, msg: item.Msg}:
				case <-done:
					return nil
				}
			}
		},
		QueueRx: func(deliver func(ids.RouteID, *action.Message), done <-chan struct{}) error {
			for {
				select {
				case item := <-self.inbox:
					deliver(item.route, item.msg)
				case <-done:
					return nil
				}
			}
		},
	}
}
