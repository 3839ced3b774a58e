package comms

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/network"
)

func newTestNetwork(cfg NetworkConfig) *Network {
	base := New(Dual, QueueFuncs{}, nil)
	return NewNetwork(base, cfg, network.NewPortAllocator(0))
}

func TestNegotiatePort_SkippedWithoutParentBroker(t *testing.T) {
	n := newTestNetwork(NetworkConfig{HasParentBroker: false})
	port, err := n.NegotiatePort(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, port)
}

func TestNegotiatePort_SkippedWithPreassignedPort(t *testing.T) {
	n := newTestNetwork(NetworkConfig{HasParentBroker: true, LocalPort: 9999})
	port, err := n.NegotiatePort(nil)
	require.NoError(t, err)
	assert.Equal(t, 9999, port)
}

func TestNegotiatePort_ReceivesPortDefinitions(t *testing.T) {
	n := newTestNetwork(NetworkConfig{HasParentBroker: true, BrokerAddress: "127.0.0.1:23404"})

	port, err := n.NegotiatePort(func(hostPort string, msg *action.Message) (*action.Message, error) {
		assert.Equal(t, "127.0.0.1:23404", hostPort)
		assert.Equal(t, action.CodeRequestPorts, msg.ActionCode)
		reply := action.New(action.CodePortDefinitions)
		reply.ActionTime = 24000
		return reply, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 24000, port)
}

func TestNegotiatePort_FollowsBrokerRedirectThenSucceeds(t *testing.T) {
	n := newTestNetwork(NetworkConfig{HasParentBroker: true, BrokerAddress: "127.0.0.1:23404"})

	calls := 0
	port, err := n.NegotiatePort(func(hostPort string, msg *action.Message) (*action.Message, error) {
		calls++
		if calls == 1 {
			redirect := action.New(action.CodeNewBrokerInfo)
			redirect.Name = "127.0.0.1:24999"
			return redirect, nil
		}
		assert.Equal(t, "127.0.0.1:24999", hostPort)
		reply := action.New(action.CodePortDefinitions)
		reply.ActionTime = 24001
		return reply, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 24001, port)
	assert.Equal(t, 2, calls)
}

func TestNegotiatePort_PropagatesSendError(t *testing.T) {
	n := newTestNetwork(NetworkConfig{HasParentBroker: true, BrokerAddress: "127.0.0.1:23404"})

	_, err := n.NegotiatePort(func(hostPort string, msg *action.Message) (*action.Message, error) {
		return nil, errors.New("connection refused")
	})
	assert.Error(t, err)
}

func TestGenerateReplyToIncomingMessage_QueryPorts(t *testing.T) {
	n := newTestNetwork(NetworkConfig{})
	n.boundPort = 24000

	reply := n.GenerateReplyToIncomingMessage(action.New(action.CodeQueryPorts), "127.0.0.1")
	require.NotNil(t, reply)
	assert.Equal(t, action.CodePortDefinitions, reply.ActionCode)
	assert.Equal(t, float64(24000), reply.ActionTime)
}

func TestGenerateReplyToIncomingMessage_RequestPortsAllocates(t *testing.T) {
	n := newTestNetwork(NetworkConfig{})

	req := action.New(action.CodeRequestPorts)
	req.Counter = 1
	req.StringData = []string{"broker", "init"}

	reply := n.GenerateReplyToIncomingMessage(req, "127.0.0.1")
	require.NotNil(t, reply)
	assert.Equal(t, action.CodePortDefinitions, reply.ActionCode)
	assert.Greater(t, reply.ActionTime, float64(0))
}

func TestGenerateReplyToIncomingMessage_ConnectionRequestAcks(t *testing.T) {
	n := newTestNetwork(NetworkConfig{})
	reply := n.GenerateReplyToIncomingMessage(action.New(action.CodeConnectionRequest), "127.0.0.1")
	require.NotNil(t, reply)
	assert.Equal(t, action.CodeConnectionAck, reply.ActionCode)
}

func TestGenerateReplyToIncomingMessage_UnknownYieldsNilForIgnore(t *testing.T) {
	n := newTestNetwork(NetworkConfig{})
	reply := n.GenerateReplyToIncomingMessage(action.New(action.CodeMessage), "127.0.0.1")
	assert.Nil(t, reply)
}

func TestGetAddress_RewritesWildcard(t *testing.T) {
	n := newTestNetwork(NetworkConfig{})
	assert.Equal(t, "127.0.0.1", n.GetAddress("*"))
	assert.Equal(t, "127.0.0.1", n.GetAddress("0.0.0.0"))
	assert.Equal(t, "10.0.0.5", n.GetAddress("10.0.0.5"))
}

func TestGetAddress_AppendsName(t *testing.T) {
	n := newTestNetwork(NetworkConfig{AppendNameToAddress: true})
	n.name = "fed1"
	assert.Equal(t, "10.0.0.5/fed1", n.GetAddress("10.0.0.5"))
}

func TestForceConnect_SkipsEvictionWhenDisabled(t *testing.T) {
	n := newTestNetwork(NetworkConfig{ForceConnection: false})

	bound := false
	err := n.ForceConnect("127.0.0.1:24000",
		func(hostPort string, msg *action.Message) error {
			t.Fatal("send should not be called when ForceConnection is disabled")
			return nil
		},
		func() error { bound = true; return nil },
	)
	require.NoError(t, err)
	assert.True(t, bound)
}

func TestForceConnect_EvictsThenBinds(t *testing.T) {
	n := newTestNetwork(NetworkConfig{ForceConnection: true, ForceConnectionLinger: 1})

	var evicted string
	err := n.ForceConnect("127.0.0.1:24000",
		func(hostPort string, msg *action.Message) error {
			evicted = hostPort
			assert.Equal(t, action.CodeGlobalError, msg.ActionCode)
			return nil
		},
		func() error { return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:24000", evicted)
}

func TestForceConnect_ProceedsEvenIfEvictionSendFails(t *testing.T) {
	n := newTestNetwork(NetworkConfig{ForceConnection: true, ForceConnectionLinger: 1})

	bound := false
	err := n.ForceConnect("127.0.0.1:24000",
		func(hostPort string, msg *action.Message) error { return errors.New("peer gone") },
		func() error { bound = true; return nil },
	)
	require.NoError(t, err)
	assert.True(t, bound)
}

func TestSplitHostPort_StripsScheme(t *testing.T) {
	host, port, err := SplitHostPort("tcp://127.0.0.1:24000")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 24000, port)
}
