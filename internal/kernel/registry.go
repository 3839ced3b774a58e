// Package kernel implements the Core and Broker kernels (C11): message
// dispatch, route allocation, the federate/interface registry, filter
// and translator placement, and the query subsystem, sitting on top of
// comms, action, and timecoord.
package kernel

import (
	"sync"

	"github.com/fedcore/corefed/pkg/ids"
)

// FederateInfo is what a kernel tracks about one registered federate.
type FederateInfo struct {
	ID    ids.GlobalFederateId
	Name  string
	Route ids.RouteID
}

// InterfaceInfo is what a kernel tracks about one registered
// publication, input, endpoint, filter, or translator.
type InterfaceInfo struct {
	Handle ids.GlobalHandle
	Name   string
	Kind   InterfaceKind
}

// InterfaceKind distinguishes the interface registry's entry types.
type InterfaceKind int

const (
	KindPublication InterfaceKind = iota
	KindInput
	KindEndpoint
	KindFilter
	KindTranslator
)

// Registry is the kernel's federate and interface directory.
type Registry struct {
	mu          sync.RWMutex
	federates   map[ids.GlobalFederateId]*FederateInfo
	byName      map[string]ids.GlobalFederateId
	interfaces  map[ids.GlobalHandle]*InterfaceInfo
	nextHandle  map[ids.GlobalFederateId]ids.InterfaceHandle
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		federates:  make(map[ids.GlobalFederateId]*FederateInfo),
		byName:     make(map[string]ids.GlobalFederateId),
		interfaces: make(map[ids.GlobalHandle]*InterfaceInfo),
		nextHandle: make(map[ids.GlobalFederateId]ids.InterfaceHandle),
	}
}

// RegisterFederate adds fed to the registry. Returns false if the name
// is already taken by a different federate.
func (r *Registry) RegisterFederate(fed *FederateInfo) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[fed.Name]; ok && existing != fed.ID {
		return false
	}
	r.federates[fed.ID] = fed
	r.byName[fed.Name] = fed.ID
	return true
}

// RemoveFederate drops fed.ID and all its registered interfaces.
func (r *Registry) RemoveFederate(id ids.GlobalFederateId) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fed, ok := r.federates[id]; ok {
		delete(r.byName, fed.Name)
	}
	delete(r.federates, id)
	delete(r.nextHandle, id)
	for h, info := range r.interfaces {
		if h.Federate == id {
			_ = info
			delete(r.interfaces, h)
		}
	}
}

// FederateByID returns the FederateInfo for id, or nil.
func (r *Registry) FederateByID(id ids.GlobalFederateId) *FederateInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.federates[id]
}

// FederateByName returns the FederateInfo registered under name, or
// nil.
func (r *Registry) FederateByName(name string) *FederateInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return nil
	}
	return r.federates[id]
}

// RegisterInterface allocates the next local handle for fed and
// registers info under it (info.Handle.Handle is assigned here;
// info.Handle.Federate must already be set).
func (r *Registry) RegisterInterface(info *InterfaceInfo) ids.GlobalHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	fed := info.Handle.Federate
	next := r.nextHandle[fed]
	info.Handle.Handle = next
	r.nextHandle[fed] = next + 1
	r.interfaces[info.Handle] = info
	return info.Handle
}

// Interface returns the InterfaceInfo for handle, or nil.
func (r *Registry) Interface(handle ids.GlobalHandle) *InterfaceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.interfaces[handle]
}

// Federates returns a snapshot of all registered federates.
func (r *Registry) Federates() []*FederateInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*FederateInfo, 0, len(r.federates))
	for _, f := range r.federates {
		out = append(out, f)
	}
	return out
}
