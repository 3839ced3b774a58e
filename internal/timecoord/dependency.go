package timecoord

import (
	"math"
	"sort"

	"github.com/fedcore/corefed/pkg/ids"
)

// TimeState is the phase an upstream dependency is in with respect to
// its current time request.
type TimeState int

const (
	TimeStateGranted TimeState = iota
	TimeStateRequested
	TimeStateRequestedIterative
	TimeStateExecRequestedIterative
)

// Dependency tracks what is known about one upstream federate the
// owning federate depends on.
type Dependency struct {
	FederateID ids.GlobalFederateId

	Tnext  float64 // earliest time the dependency may next produce an event
	Te     float64 // earliest-event time
	Tdemin float64 // minimum dependent-event time

	State TimeState
}

// NewDependency returns a Dependency in the granted state with all
// time fields at +infinity, the state before any request is observed.
func NewDependency(id ids.GlobalFederateId) *Dependency {
	return &Dependency{
		FederateID: id,
		Tnext:      math.MaxFloat64,
		Te:         math.MaxFloat64,
		Tdemin:     math.MaxFloat64,
		State:      TimeStateGranted,
	}
}

// tdeminValid reports whether d's invariant Tdemin >= Tnext holds.
func (d *Dependency) tdeminValid() bool {
	return d.Tdemin >= d.Tnext
}

// readyForExecEntry reports whether d has signaled readiness to enter
// execution mode (granted, or requested at/after time zero having
// passed init).
func (d *Dependency) readyForExecEntry() bool {
	return d.State == TimeStateGranted || d.State == TimeStateRequested ||
		d.State == TimeStateRequestedIterative
}

// DependencySet maintains a federate's upstream dependencies keyed by
// federate id. The set itself is unordered; Sorted returns the
// dependencies in federate-id order for deterministic iteration.
type DependencySet struct {
	byID map[ids.GlobalFederateId]*Dependency
}

// NewDependencySet returns an empty dependency set.
func NewDependencySet() *DependencySet {
	return &DependencySet{byID: make(map[ids.GlobalFederateId]*Dependency)}
}

// Add registers id as a dependency. No-op if already present.
func (s *DependencySet) Add(id ids.GlobalFederateId) {
	if _, ok := s.byID[id]; ok {
		return
	}
	s.byID[id] = NewDependency(id)
}

// Remove drops id from the dependency set.
func (s *DependencySet) Remove(id ids.GlobalFederateId) {
	delete(s.byID, id)
}

// Get returns the dependency for id, or nil if not present.
func (s *DependencySet) Get(id ids.GlobalFederateId) *Dependency {
	return s.byID[id]
}

// Len returns the number of tracked dependencies.
func (s *DependencySet) Len() int {
	return len(s.byID)
}

// Sorted returns dependencies ordered by federate id, the order used
// for deterministic broadcast.
func (s *DependencySet) Sorted() []*Dependency {
	out := make([]*Dependency, 0, len(s.byID))
	for _, d := range s.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FederateID < out[j].FederateID })
	return out
}

// allReadyForExecEntry reports whether every dependency has signaled
// readiness to enter execution mode.
func (s *DependencySet) allReadyForExecEntry() bool {
	for _, d := range s.byID {
		if !d.readyForExecEntry() {
			return false
		}
	}
	return true
}

// minNext returns the minimum Tnext across all dependencies, or
// +infinity if there are none.
func (s *DependencySet) minNext() float64 {
	min := math.MaxFloat64
	for _, d := range s.byID {
		if d.Tnext < min {
			min = d.Tnext
		}
	}
	return min
}

// aggregateMinminDe computes min(timeValue, timeMessage, d.Tdemin) over
// dependencies with a valid Tdemin (Tdemin >= Tnext), and reports
// whether any dependency had an invalid entry.
func (s *DependencySet) aggregateMinminDe(timeValue, timeMessage float64) (minminDe float64, anyInvalid bool) {
	minminDe = math.Min(timeValue, timeMessage)
	for _, d := range s.byID {
		if !d.tdeminValid() {
			anyInvalid = true
			continue
		}
		if d.Tdemin < minminDe {
			minminDe = d.Tdemin
		}
	}
	return minminDe, anyInvalid
}

// aggregateMinDe computes min(timeValue, timeMessage, d.Te) over all
// dependencies.
func (s *DependencySet) aggregateMinDe(timeValue, timeMessage float64) float64 {
	minDe := math.Min(timeValue, timeMessage)
	for _, d := range s.byID {
		if d.Te < minDe {
			minDe = d.Te
		}
	}
	return minDe
}

// resetIteratingExecRequests clears the iterating-exec-requested state
// on every dependency, called when this federate begins a fresh
// exec-mode iteration round.
func (s *DependencySet) resetIteratingExecRequests() {
	for _, d := range s.byID {
		if d.State == TimeStateExecRequestedIterative {
			d.State = TimeStateRequested
		}
	}
}
