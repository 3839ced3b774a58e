package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/pkg/ids"
)

func uppercasePayload(msg *action.Message) []*action.Message {
	out := msg.Clone()
	_ = out.Payload.Assign([]byte(out.Payload.ToStringView() + "!"))
	return []*action.Message{out}
}

func TestFilterChain_Apply_RunsInRegistrationOrder(t *testing.T) {
	chain := &FilterChain{}
	chain.Add(FilterPlacement{Kind: FilterDestination, Op: FilterOperatorFunc(uppercasePayload)})
	chain.Add(FilterPlacement{Kind: FilterDestination, Op: FilterOperatorFunc(uppercasePayload)})

	msg := action.New(action.CodeMessage)
	require.NoError(t, msg.Payload.Assign([]byte("x")))

	out := chain.Apply(FilterDestination, msg)
	require.Len(t, out, 1)
	assert.Equal(t, "x!!", out[0].Payload.ToStringView())
}

func TestFilterChain_Apply_DropReturnsNoResults(t *testing.T) {
	chain := &FilterChain{}
	chain.Add(FilterPlacement{Kind: FilterDestination, Op: FilterOperatorFunc(func(*action.Message) []*action.Message {
		return nil
	})})

	out := chain.Apply(FilterDestination, action.New(action.CodeMessage))
	assert.Nil(t, out)
}

func TestFilterChain_Apply_CloningFansOut(t *testing.T) {
	chain := &FilterChain{}
	chain.Add(FilterPlacement{Kind: FilterCloning, Op: FilterOperatorFunc(func(msg *action.Message) []*action.Message {
		return []*action.Message{msg.Clone(), msg.Clone()}
	})})

	out := chain.Apply(FilterCloning, action.New(action.CodeMessage))
	assert.Len(t, out, 2)
}

func TestFilterChain_Apply_IgnoresOtherKinds(t *testing.T) {
	chain := &FilterChain{}
	chain.Add(FilterPlacement{Handle: ids.GlobalHandle{Federate: 1}, Kind: FilterSource, Op: FilterOperatorFunc(func(*action.Message) []*action.Message {
		return nil
	})})

	out := chain.Apply(FilterDestination, action.New(action.CodeMessage))
	require.Len(t, out, 1)
}
