package timecoord

import (
	"math"
	"sort"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/pkg/ids"
)

// GrantResult reports the outcome of a grant-decision pass.
type GrantResult int

const (
	// ResultNoGrant means neither a grant nor an iteration occurred;
	// the federate continues waiting.
	ResultNoGrant GrantResult = iota
	// ResultGranted means execution may proceed to TimeExec.
	ResultGranted
	// ResultIterating means an iterative grant was issued at the same
	// instant.
	ResultIterating
	// ResultHalted means the federation has terminated; TimeGranted is
	// now +infinity.
	ResultHalted
)

// BroadcastFunc sends msg to a single dependent federate. The
// TimeCoordinator calls it once per sorted dependent for every
// broadcast (CMD_TIME_REQUEST, CMD_TIME_GRANT, CMD_EXEC_GRANT,
// CMD_DISCONNECT).
type BroadcastFunc func(dest ids.GlobalFederateId, msg *action.Message)

// Coordinator is the per-federate time-grant state machine.
type Coordinator struct {
	federateID ids.GlobalFederateId
	config     Config
	broadcast  BroadcastFunc
	dependents []ids.GlobalFederateId
	deps       *DependencySet
	blocks     blockList

	inExecMode bool
	iterating  bool
	iteration  uint32

	timeGranted   float64
	timeGrantBase float64
	timeRequested float64
	timeValue     float64
	timeMessage   float64
	timeExec      float64
	timeNext      float64
	timeAllow     float64
	timeMinDe     float64
	timeMinminDe  float64
}

// New returns a Coordinator for federateID with the given
// configuration. broadcast is invoked for every outbound timing
// message; it must not block indefinitely.
func New(federateID ids.GlobalFederateId, cfg Config, broadcast BroadcastFunc) *Coordinator {
	cfg.Normalize()
	return &Coordinator{
		federateID: federateID,
		config:     cfg,
		broadcast:  broadcast,
		deps:       NewDependencySet(),

		timeGranted:   0,
		timeGrantBase: 0,
		timeRequested: math.MaxFloat64,
		timeValue:     math.MaxFloat64,
		timeMessage:   math.MaxFloat64,
		timeExec:      math.MaxFloat64,
		timeNext:      math.MaxFloat64,
		timeAllow:     math.MaxFloat64,
		timeMinDe:     math.MaxFloat64,
		timeMinminDe:  math.MaxFloat64,
	}
}

// AddDependency registers id as an upstream dependency.
func (c *Coordinator) AddDependency(id ids.GlobalFederateId) { c.deps.Add(id) }

// RemoveDependency drops id as an upstream dependency.
func (c *Coordinator) RemoveDependency(id ids.GlobalFederateId) { c.deps.Remove(id) }

// AddDependent registers id as a downstream federate to receive
// broadcasts.
func (c *Coordinator) AddDependent(id ids.GlobalFederateId) {
	for _, existing := range c.dependents {
		if existing == id {
			return
		}
	}
	c.dependents = append(c.dependents, id)
}

// TimeGranted returns the last time granted to this federate.
func (c *Coordinator) TimeGranted() float64 { return c.timeGranted }

// broadcastSorted sends msg to every dependent. Dependents are not
// kept pre-sorted since they change rarely; sort at send time for a
// deterministic order under identical inputs.
func (c *Coordinator) broadcastSorted(msg *action.Message) {
	if c.broadcast == nil {
		return
	}
	sorted := append([]ids.GlobalFederateId(nil), c.dependents...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, dest := range sorted {
		c.broadcast(dest, msg)
	}
}

// generateAllowedTime projects t onto the period grid anchored at
// timeGrantBase. Identity when period <= Epsilon.
func (c *Coordinator) generateAllowedTime(t float64) float64 {
	period := c.config.Period
	if period <= Epsilon {
		return t
	}
	if t == math.MaxFloat64 {
		return t
	}
	if t-c.timeGrantBase <= period {
		return c.timeGrantBase + period
	}
	k := math.Ceil((t - c.timeGrantBase) / period)
	return c.timeGrantBase + k*period
}

// nextPossibleTime computes the earliest time this federate may next
// request, per the table in spec 4.10.
func (c *Coordinator) nextPossibleTime() float64 {
	if c.timeGranted == 0 {
		offset, delta, period := c.config.Offset, c.config.TimeDelta, c.config.Period
		switch {
		case offset > delta:
			return offset
		case offset == 0:
			return c.generateAllowedTime(math.Max(delta, period))
		case period <= Epsilon:
			return delta
		default:
			k := math.Ceil((delta - offset) / period)
			return offset + k*period
		}
	}
	return c.generateAllowedTime(c.timeGrantBase + math.Max(c.config.TimeDelta, c.config.Period))
}

// updateNextExecutionTime recomputes timeExec per spec 4.10. Returns
// whether the value changed.
func (c *Coordinator) updateNextExecutionTime() bool {
	before := c.timeExec

	exec := math.Min(c.timeMessage, c.timeValue) + c.config.InputDelay
	exec = math.Min(c.timeRequested, exec)

	if exec <= c.timeGranted {
		if c.iterating {
			exec = c.timeGranted
		} else {
			exec = c.nextPossibleTime()
		}
	} else {
		exec = c.generateAllowedTime(exec)
	}

	c.timeExec = exec
	return before != c.timeExec
}

// updateNextPossibleEventTime recomputes timeNext per spec 4.10.
func (c *Coordinator) updateNextPossibleEventTime() {
	var next float64
	if c.iterating {
		next = c.timeGranted
	} else {
		next = c.nextPossibleTime()
	}

	if c.timeMinminDe+c.config.InputDelay > next {
		next = c.generateAllowedTime(c.timeMinminDe + c.config.InputDelay)
	}

	c.timeNext = math.Min(next, c.timeExec) + c.config.OutputDelay
}

// updateTimeFactors recomputes all derived time factors from the
// current dependency set, per spec 4.10's aggregation rules.
func (c *Coordinator) updateTimeFactors() bool {
	minNext := c.deps.minNext()
	minminDe, invalid := c.deps.aggregateMinminDe(c.timeValue, c.timeMessage)
	minDe := c.deps.aggregateMinDe(c.timeValue, c.timeMessage)

	if invalid {
		minminDe = math.MaxFloat64
	}

	c.timeMinminDe = math.Min(minDe, minminDe)

	changed := c.updateNextExecutionTime()
	c.updateNextPossibleEventTime()

	c.timeMinDe = c.generateAllowedTime(minDe) + c.config.OutputDelay

	if len(c.deps.byID) == 0 {
		c.timeAllow = math.MaxFloat64
	} else {
		c.timeAllow = c.config.InputDelay + minNext
	}

	return changed
}

// TimeBlock returns the current block floor, or +infinity when no
// barriers are outstanding.
func (c *Coordinator) TimeBlock() float64 { return c.blocks.min() }

// InsertTimeBlock adds a barrier at the given time and index (CMD_TIME_BLOCK).
func (c *Coordinator) InsertTimeBlock(time float64, index int32) {
	c.blocks.insert(time, index)
}

// RemoveTimeBlock removes the barrier with the given index
// (CMD_TIME_UNBLOCK). Returns whether the minimum barrier changed,
// signaling a re-scan of grant eligibility is warranted.
func (c *Coordinator) RemoveTimeBlock(index int32) bool {
	return c.blocks.remove(index)
}
