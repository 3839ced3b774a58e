package timecoord

import (
	"math"

	"github.com/fedcore/corefed/internal/action"
)

// ProcessTimeMessage updates dependency state from an inbound message
// originating at msg.SourceID, and reports whether any time factor
// changed as a result (the caller should then re-run CheckTimeGrant).
//
// delayed reports that msg must NOT be applied now: the sender's
// pending Tnext lies beyond time_exec, or the sender is iterating at
// exactly time_exec while this coordinator is also iterating. The
// caller must re-submit msg on the next round instead of dropping it.
func (c *Coordinator) ProcessTimeMessage(msg *action.Message) (changed, delayed bool) {
	switch msg.ActionCode {
	case action.CodeTimeGrant, action.CodeExecGrant:
		if c.isDelayableGrant(msg) {
			return false, true
		}
		dep := c.deps.Get(msg.SourceID)
		if dep == nil {
			return false, false
		}
		c.applyDependencyUpdate(dep, msg)
		return c.updateTimeFactors(), false

	case action.CodeTimeRequest, action.CodeExecRequest:
		dep := c.deps.Get(msg.SourceID)
		if dep == nil {
			return false, false
		}
		c.applyDependencyUpdate(dep, msg)
		return c.updateTimeFactors(), false

	case action.CodeTimeBlock:
		c.InsertTimeBlock(msg.ActionTime, int32(msg.SourceID))
		return true, false

	case action.CodeTimeUnblock:
		return c.RemoveTimeBlock(int32(msg.SourceID)), false

	case action.CodeDisconnect, action.CodeDisconnectErr, action.CodeGlobalError:
		c.RemoveDependency(msg.SourceID)
		return c.updateTimeFactors(), false

	default:
		return false, false
	}
}

// isDelayableGrant reports whether an inbound grant from another
// federate must be held back rather than applied immediately: its
// sender's known Tnext sits beyond our time_exec (applying it now
// would retroactively invalidate work already scheduled at time_exec),
// or the sender is iterating at exactly time_exec while we are too.
func (c *Coordinator) isDelayableGrant(msg *action.Message) bool {
	dep := c.deps.Get(msg.SourceID)
	if dep == nil {
		return false
	}
	if dep.Tnext > c.timeExec {
		return true
	}
	if msg.IsIteration() && msg.ActionTime == c.timeExec && c.iterating {
		return true
	}
	return false
}

// applyDependencyUpdate folds an inbound timing message into the
// sender's tracked Dependency state.
func (c *Coordinator) applyDependencyUpdate(dep *Dependency, msg *action.Message) {
	switch msg.ActionCode {
	case action.CodeTimeRequest:
		dep.Tnext = msg.ActionTime
		dep.Te = msg.Te
		dep.Tdemin = msg.Tdemin
		if msg.IsIteration() {
			dep.State = TimeStateRequestedIterative
		} else {
			dep.State = TimeStateRequested
		}

	case action.CodeTimeGrant:
		dep.Tnext = msg.ActionTime
		dep.Te = msg.ActionTime
		dep.Tdemin = msg.ActionTime
		dep.State = TimeStateGranted

	case action.CodeExecRequest:
		if msg.IsIteration() {
			dep.State = TimeStateExecRequestedIterative
		} else {
			dep.State = TimeStateRequested
		}

	case action.CodeExecGrant:
		dep.Tnext = 0
		dep.Te = 0
		dep.Tdemin = 0
		dep.State = TimeStateGranted
	}
}

// ProcessConfigUpdateMessage applies a live configuration change
// delivered as an ActionMessage, routed here because its code
// satisfies Code.IsTimingCommand() but is not one of the core grant
// messages. Returns whether the update could change a future grant
// decision.
func (c *Coordinator) ProcessConfigUpdateMessage(msg *action.Message) bool {
	switch msg.ActionCode {
	case action.CodeUpdateOutputDelay:
		c.config.OutputDelay = msg.ActionTime
	case action.CodeUpdateInputDelay:
		c.config.InputDelay = msg.ActionTime
	case action.CodeUpdateMinDelta:
		delta := msg.ActionTime
		if delta < Epsilon {
			delta = Epsilon
		}
		c.config.TimeDelta = delta
	case action.CodeUpdatePeriod:
		c.config.Period = msg.ActionTime
	case action.CodeUpdateOffset:
		c.config.Offset = msg.ActionTime
	case action.CodeUpdateMaxIteration:
		c.config.MaxIterations = msg.Counter
	case action.CodeUpdateLogLevel:
		// Log level carried for uniformity with the federate config
		// channel; TimeCoordinator itself has no log level to apply.
		return false
	case action.CodeUpdateFlag:
		c.applyFlagUpdate(msg)
	default:
		return false
	}
	c.updateTimeFactors()
	return true
}

// applyFlagUpdate toggles one of the boolean federate-timing flags
// named by msg.Name, with msg.ActionTime != 0 meaning "set".
func (c *Coordinator) applyFlagUpdate(msg *action.Message) {
	set := msg.ActionTime != 0
	switch msg.Name {
	case "uninterruptible":
		c.config.Uninterruptible = set
	case "only_transmit_on_change":
		c.config.OnlyTransmitOnChange = set
	case "only_update_on_change":
		c.config.OnlyUpdateOnChange = set
	case "wait_for_current_time_updates":
		c.config.WaitForCurrentTimeUpdates = set
	case "source_only":
		c.config.SourceOnly = set
	case "observer":
		c.config.Observer = set
	}
}

// ResetForReconnect restores a Coordinator to its pre-init time state,
// used when a federate drops its connection and rejoins under the
// same id rather than being torn down and re-registered from scratch.
func (c *Coordinator) ResetForReconnect() {
	c.inExecMode = false
	c.iterating = false
	c.iteration = 0
	c.timeGranted = 0
	c.timeGrantBase = 0
	c.timeRequested = math.MaxFloat64
	c.timeValue = math.MaxFloat64
	c.timeMessage = math.MaxFloat64
	c.timeExec = math.MaxFloat64
	c.timeNext = math.MaxFloat64
	c.timeAllow = math.MaxFloat64
	c.timeMinDe = math.MaxFloat64
	c.timeMinminDe = math.MaxFloat64
}
