package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsProtocolCommand(t *testing.T) {
	assert.True(t, CodeNewRoute.IsProtocolCommand())
	assert.True(t, CodeQueryPorts.IsProtocolCommand())
	assert.False(t, CodeTimeRequest.IsProtocolCommand())
	assert.False(t, CodePublication.IsProtocolCommand())
}

func TestIsPriorityCommand(t *testing.T) {
	assert.True(t, CodeRequestPorts.IsPriorityCommand())
	assert.True(t, CodeQuery.IsPriorityCommand())
	assert.False(t, CodePublication.IsPriorityCommand())
}

func TestIsValidCommand(t *testing.T) {
	assert.False(t, CodeInvalid.IsValidCommand())
	assert.True(t, CodeTimeGrant.IsValidCommand())
}

func TestIsDisconnectCommand(t *testing.T) {
	assert.True(t, CodeDisconnect.IsDisconnectCommand())
	assert.True(t, CodeGlobalError.IsDisconnectCommand())
	assert.False(t, CodeTimeGrant.IsDisconnectCommand())
}

func TestIsIgnoreableCommand(t *testing.T) {
	assert.True(t, CodeIgnore.IsIgnoreableCommand())
	assert.False(t, CodeTimeGrant.IsIgnoreableCommand())
}

func TestIsTimingCommand(t *testing.T) {
	assert.True(t, CodeExecRequest.IsTimingCommand())
	assert.True(t, CodeUpdatePeriod.IsTimingCommand())
	assert.False(t, CodeNewRoute.IsTimingCommand())
}

func TestMessageClassifiersDelegateToCode(t *testing.T) {
	m := New(CodeDisconnect)

	assert.True(t, m.IsDisconnectCommand())
	assert.True(t, m.IsValidCommand())
	assert.False(t, m.IsIgnoreableCommand())
}

func TestMessageFlagHelpers(t *testing.T) {
	m := New(CodeTimeRequest)

	assert.False(t, m.IsIteration())

	m.SetFlag(FlagIterationRequested, true)
	assert.True(t, m.IsIteration())

	m.SetFlag(FlagIterationRequested, false)
	assert.False(t, m.IsIteration())
}
