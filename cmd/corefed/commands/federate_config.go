package commands

import (
	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/timecoord"
	"github.com/fedcore/corefed/pkg/config"
)

// toTimecoordConfig converts the YAML-facing federate defaults into the
// TimeCoordinator's own Config type.
func toTimecoordConfig(fc config.FederateConfig) timecoord.Config {
	return timecoord.Config{
		TimeDelta:                 fc.TimeDelta,
		InputDelay:                fc.InputDelay,
		OutputDelay:               fc.OutputDelay,
		Period:                    fc.Period,
		Offset:                    fc.Offset,
		MaxIterations:             fc.MaxIterations,
		Uninterruptible:           fc.Uninterruptible,
		OnlyTransmitOnChange:      fc.OnlyTransmitOnChange,
		OnlyUpdateOnChange:        fc.OnlyUpdateOnChange,
		WaitForCurrentTimeUpdates: fc.WaitForCurrentTimeUpdates,
		SourceOnly:                fc.SourceOnly,
		Observer:                  fc.Observer,
	}
}

// federateConfigUpdateMessages diffs two FederateConfig snapshots and
// returns the CMD_UPDATE_* messages that bring a running TimeCoordinator
// from the old values to the new ones, the same commands a CLI
// config.Watcher callback feeds into Coordinator.ProcessConfigUpdateMessage
// on a hot reload. Returns nil if nothing timing-relevant changed.
func federateConfigUpdateMessages(old, updated config.FederateConfig) []*action.Message {
	var msgs []*action.Message

	add := func(code action.Code, t float64) {
		m := action.New(code)
		m.ActionTime = t
		msgs = append(msgs, m)
	}
	addFlag := func(name string, set bool) {
		m := action.New(action.CodeUpdateFlag)
		m.Name = name
		m.ActionTime = 0
		if set {
			m.ActionTime = 1
		}
		msgs = append(msgs, m)
	}

	if old.TimeDelta != updated.TimeDelta {
		add(action.CodeUpdateMinDelta, updated.TimeDelta)
	}
	if old.InputDelay != updated.InputDelay {
		add(action.CodeUpdateInputDelay, updated.InputDelay)
	}
	if old.OutputDelay != updated.OutputDelay {
		add(action.CodeUpdateOutputDelay, updated.OutputDelay)
	}
	if old.Period != updated.Period {
		add(action.CodeUpdatePeriod, updated.Period)
	}
	if old.Offset != updated.Offset {
		add(action.CodeUpdateOffset, updated.Offset)
	}
	if old.MaxIterations != updated.MaxIterations {
		m := action.New(action.CodeUpdateMaxIteration)
		m.Counter = updated.MaxIterations
		msgs = append(msgs, m)
	}
	if old.Uninterruptible != updated.Uninterruptible {
		addFlag("uninterruptible", updated.Uninterruptible)
	}
	if old.OnlyTransmitOnChange != updated.OnlyTransmitOnChange {
		addFlag("only_transmit_on_change", updated.OnlyTransmitOnChange)
	}
	if old.OnlyUpdateOnChange != updated.OnlyUpdateOnChange {
		addFlag("only_update_on_change", updated.OnlyUpdateOnChange)
	}
	if old.WaitForCurrentTimeUpdates != updated.WaitForCurrentTimeUpdates {
		addFlag("wait_for_current_time_updates", updated.WaitForCurrentTimeUpdates)
	}
	if old.SourceOnly != updated.SourceOnly {
		addFlag("source_only", updated.SourceOnly)
	}
	if old.Observer != updated.Observer {
		addFlag("observer", updated.Observer)
	}

	return msgs
}
