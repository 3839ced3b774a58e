package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/comms"
	"github.com/fedcore/corefed/internal/comms/inproc"
	"github.com/fedcore/corefed/internal/timecoord"
	"github.com/fedcore/corefed/pkg/ids"
)

func newTestCore(name string) *Core {
	reg := inproc.NewRegistry()
	self := reg.Register(name)
	iface := comms.New(comms.Dual, inproc.QueueFuncs(reg, self, "parent"), nil)
	return NewCore(name, iface)
}

func TestCore_ReconnectResetsCoordinatorTimeState(t *testing.T) {
	c := newTestCore("core1")
	const fed ids.GlobalFederateId = 1

	require.NoError(t, c.RegisterFederate(fed, "fed1", timecoord.Config{TimeDelta: 1}, func(ids.GlobalFederateId, *action.Message) {}))

	coord := c.Coordinator(fed)
	require.NotNil(t, coord)
	require.Equal(t, timecoord.ResultGranted, coord.CheckExecEntry(false))

	msg := action.New(action.CodeReconnectTx)
	msg.SourceID = fed
	c.handleProtocol(ids.ParentRouteID, msg)

	coord = c.Coordinator(fed)
	require.NotNil(t, coord, "reconnect must reset the coordinator in place, not remove it")
	assert.Equal(t, 0.0, coord.TimeGranted())
	assert.Equal(t, timecoord.ResultGranted, coord.CheckExecEntry(false), "federate must be able to re-enter exec mode after reconnecting")
}

func TestCore_ReconnectForUnknownFederateIsIgnored(t *testing.T) {
	c := newTestCore("core1")

	msg := action.New(action.CodeReconnectRx)
	msg.SourceID = 99
	c.handleProtocol(ids.ParentRouteID, msg)

	assert.Nil(t, c.Coordinator(99))
}

func TestCore_DisconnectRemovesCoordinator(t *testing.T) {
	c := newTestCore("core1")
	const fed ids.GlobalFederateId = 1

	require.NoError(t, c.RegisterFederate(fed, "fed1", timecoord.Config{TimeDelta: 1}, func(ids.GlobalFederateId, *action.Message) {}))
	require.NotNil(t, c.Coordinator(fed))

	msg := action.New(action.CodeDisconnect)
	msg.SourceID = fed
	c.handleProtocol(ids.ParentRouteID, msg)

	assert.Nil(t, c.Coordinator(fed))
}
