package timecoord

import (
	"math"

	"github.com/fedcore/corefed/internal/action"
)

// EnterExecMode begins the transition into execution mode. iterating
// marks that the caller intends to iterate rather than take a single
// entry. Idempotent: a federate already in execution mode is a no-op.
func (c *Coordinator) EnterExecMode(iterating bool) {
	if c.inExecMode {
		return
	}
	c.iterating = iterating

	msg := action.New(action.CodeExecRequest)
	msg.SourceID = c.federateID
	msg.SetFlag(action.FlagIterationRequested, iterating)
	msg.Counter = c.iteration
	c.broadcastSorted(msg)
}

// CheckExecEntry evaluates whether execution mode may be entered now.
// Returns ResultIterating when another initialization iteration is
// granted, ResultGranted when execution mode is entered (time granted
// resets to zero), and ResultNoGrant while a time block at or below
// zero or an unready dependency holds entry back.
func (c *Coordinator) CheckExecEntry(updatesArrivedDuringInit bool) GrantResult {
	if c.blocks.min() <= 0 {
		return ResultNoGrant
	}
	if !c.deps.allReadyForExecEntry() {
		return ResultNoGrant
	}

	if c.iterating {
		if updatesArrivedDuringInit && c.iteration < c.config.MaxIterations {
			c.deps.resetIteratingExecRequests()
			c.iteration++

			msg := action.New(action.CodeExecGrant)
			msg.SourceID = c.federateID
			msg.SetFlag(action.FlagIterationRequested, true)
			msg.Counter = c.iteration
			c.broadcastSorted(msg)
			return ResultIterating
		}

		c.inExecMode = true
		c.iterating = false
		c.iteration = 0
		c.timeGranted = 0
		c.timeGrantBase = 0

		msg := action.New(action.CodeExecGrant)
		msg.SourceID = c.federateID
		c.broadcastSorted(msg)
		return ResultGranted
	}

	c.inExecMode = true
	c.timeGranted = 0
	c.timeGrantBase = 0

	msg := action.New(action.CodeExecGrant)
	msg.SourceID = c.federateID
	c.broadcastSorted(msg)
	return ResultGranted
}

// TimeRequest records a new request for requestedTime, along with the
// next pending value-update and message-arrival times, and broadcasts
// CMD_TIME_REQUEST if this federate has dependents.
func (c *Coordinator) TimeRequest(requestedTime float64, iterating bool, nextValueTime, nextMessageTime float64) {
	floor := c.timeGranted
	if !iterating {
		floor = c.nextPossibleTime()
	}
	if requestedTime < floor {
		requestedTime = floor
	}

	c.timeRequested = requestedTime
	c.iterating = iterating
	c.timeValue = nextValueTime
	c.timeMessage = nextMessageTime

	c.updateTimeFactors()

	if len(c.dependents) > 0 {
		c.sendTimeRequest()
	}
}

// sendTimeRequest broadcasts the current outbound time request to
// every dependent.
func (c *Coordinator) sendTimeRequest() {
	msg := action.New(action.CodeTimeRequest)
	msg.SourceID = c.federateID
	msg.ActionTime = c.timeNext

	if c.timeExec == math.MaxFloat64 {
		msg.Te = math.MaxFloat64
	} else {
		msg.Te = c.timeExec + c.config.OutputDelay
	}
	msg.Tdemin = math.Max(c.timeNext, c.timeMinDe)
	msg.SetFlag(action.FlagIterationRequested, c.iterating)
	msg.Counter = c.iteration

	c.broadcastSorted(msg)
}

// CheckTimeGrant evaluates whether a grant, iteration, or halt should
// occur now, per spec 4.10's checkTimeGrant contract.
func (c *Coordinator) CheckTimeGrant() GrantResult {
	if c.timeExec == math.MaxFloat64 && c.timeAllow == math.MaxFloat64 {
		c.timeGranted = math.MaxFloat64
		c.broadcastDisconnect()
		return ResultHalted
	}

	if c.blocks.min() <= c.timeExec {
		return ResultNoGrant
	}

	if !c.iterating || c.timeExec > c.timeGranted {
		switch {
		case c.timeAllow > c.timeExec:
			c.grantAt(c.timeExec)
			return ResultGranted
		case c.timeAllow == c.timeExec && (c.timeRequested <= c.timeExec || c.dependenciesReadyAt(c.timeExec)):
			c.grantAt(c.timeExec)
			return ResultGranted
		}
		return c.maybeResendRequest()
	}

	// Iterating at the same instant as the last grant.
	switch {
	case c.timeAllow > c.timeExec:
		c.iterateAt()
		return ResultIterating
	case c.timeAllow == c.timeExec && c.dependenciesReadyAt(c.timeExec):
		c.iterateAt()
		return ResultIterating
	}

	return c.maybeResendRequest()
}

// dependenciesReadyAt reports whether every dependency has produced
// enough information to proceed at time t (its Tnext is at or beyond
// t, i.e. it will not retroactively invalidate the grant).
func (c *Coordinator) dependenciesReadyAt(t float64) bool {
	for _, d := range c.deps.Sorted() {
		if d.Tnext < t {
			return false
		}
	}
	return true
}

// grantAt finalizes a non-iterating grant at t and broadcasts
// CMD_TIME_GRANT.
func (c *Coordinator) grantAt(t float64) {
	c.timeGranted = t
	c.timeGrantBase = t
	c.iterating = false
	c.iteration = 0

	msg := action.New(action.CodeTimeGrant)
	msg.SourceID = c.federateID
	msg.ActionTime = t
	c.broadcastSorted(msg)
}

// iterateAt issues an iterative grant at the current instant, without
// advancing time_granted.
func (c *Coordinator) iterateAt() {
	c.iteration++

	msg := action.New(action.CodeTimeGrant)
	msg.SourceID = c.federateID
	msg.ActionTime = c.timeExec
	msg.SetFlag(action.FlagIterationRequested, true)
	msg.Counter = c.iteration
	c.broadcastSorted(msg)
}

// maybeResendRequest re-broadcasts CMD_TIME_REQUEST if the time
// factors changed since the last broadcast and there are dependents to
// notify; otherwise this is a pure continuation (ResultNoGrant).
func (c *Coordinator) maybeResendRequest() GrantResult {
	if c.updateTimeFactors() && len(c.dependents) > 0 {
		c.sendTimeRequest()
	}
	return ResultNoGrant
}

// broadcastDisconnect sends CMD_DISCONNECT to every dependent,
// signaling federation-wide halt.
func (c *Coordinator) broadcastDisconnect() {
	msg := action.New(action.CodeDisconnect)
	msg.SourceID = c.federateID
	c.broadcastSorted(msg)
}

// TimeExec exposes the current computed exec time, the candidate a
// caller evaluates a grant decision against.
func (c *Coordinator) TimeExec() float64 { return c.timeExec }

// TimeNext exposes the current computed next-request time.
func (c *Coordinator) TimeNext() float64 { return c.timeNext }

// TimeAllow exposes the current computed allow time.
func (c *Coordinator) TimeAllow() float64 { return c.timeAllow }

// IsIterating reports whether the coordinator is mid-iteration.
func (c *Coordinator) IsIterating() bool { return c.iterating }

// Iteration returns the current iteration counter.
func (c *Coordinator) Iteration() uint32 { return c.iteration }
