package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/timecoord"
	"github.com/fedcore/corefed/pkg/config"
	"github.com/fedcore/corefed/pkg/ids"
)

func TestFederateConfigUpdateMessages_NoChangeProducesNothing(t *testing.T) {
	fc := config.FederateConfig{TimeDelta: 1, MaxIterations: 5}
	msgs := federateConfigUpdateMessages(fc, fc)
	assert.Empty(t, msgs)
}

func TestFederateConfigUpdateMessages_DetectsEachField(t *testing.T) {
	old := config.FederateConfig{}
	updated := config.FederateConfig{
		TimeDelta:       2,
		InputDelay:      0.5,
		OutputDelay:     0.25,
		Period:          10,
		Offset:          1,
		MaxIterations:   7,
		Uninterruptible: true,
		SourceOnly:      true,
	}

	msgs := federateConfigUpdateMessages(old, updated)
	codes := make(map[action.Code]*action.Message)
	for _, m := range msgs {
		codes[m.ActionCode] = m
	}

	require.Contains(t, codes, action.CodeUpdateMinDelta)
	assert.Equal(t, 2.0, codes[action.CodeUpdateMinDelta].ActionTime)

	require.Contains(t, codes, action.CodeUpdateInputDelay)
	assert.Equal(t, 0.5, codes[action.CodeUpdateInputDelay].ActionTime)

	require.Contains(t, codes, action.CodeUpdateOutputDelay)
	assert.Equal(t, 0.25, codes[action.CodeUpdateOutputDelay].ActionTime)

	require.Contains(t, codes, action.CodeUpdatePeriod)
	assert.Equal(t, 10.0, codes[action.CodeUpdatePeriod].ActionTime)

	require.Contains(t, codes, action.CodeUpdateOffset)
	assert.Equal(t, 1.0, codes[action.CodeUpdateOffset].ActionTime)

	require.Contains(t, codes, action.CodeUpdateMaxIteration)
	assert.Equal(t, uint32(7), codes[action.CodeUpdateMaxIteration].Counter)

	var flags []*action.Message
	for _, m := range msgs {
		if m.ActionCode == action.CodeUpdateFlag {
			flags = append(flags, m)
		}
	}
	require.Len(t, flags, 2)
}

// TestFederateConfigUpdateMessages_ApplyAgainstCoordinator confirms the
// diff messages actually change a live TimeCoordinator the way a
// config.Watcher-triggered hot reload depends on.
func TestFederateConfigUpdateMessages_ApplyAgainstCoordinator(t *testing.T) {
	c := timecoord.New(ids.GlobalFederateId(1), timecoord.Config{}, func(ids.GlobalFederateId, *action.Message) {})

	old := config.FederateConfig{}
	updated := config.FederateConfig{TimeDelta: 3, MaxIterations: 9}

	msgs := federateConfigUpdateMessages(old, updated)
	require.NotEmpty(t, msgs)
	for _, msg := range msgs {
		changed := c.ProcessConfigUpdateMessage(msg)
		assert.True(t, changed, "expected %v to be recognized as a timing-relevant update", msg.ActionCode)
	}
}
