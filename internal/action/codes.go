package action

// Code enumerates the kind of command an ActionMessage carries. Codes
// are grouped by the dispatch category a kernel uses to route them:
// protocol (handled locally by a comms layer or kernel), timing
// (routed to a federate's TimeCoordinator), registration (registry
// mutation), data (forwarded along the value/message fabric), and
// query.
type Code int32

const (
	// CodeInvalid marks an unset or malformed action code.
	CodeInvalid Code = 0

	// Protocol commands, handled locally without reaching federate logic.
	CodeProtocol         Code = 1
	CodeProtocolPriority Code = 2
	CodeIgnore           Code = 3

	// Registration / lifecycle.
	CodeNewRoute       Code = 10
	CodeRemoveRoute    Code = 11
	CodeDisconnect     Code = 12
	CodeDisconnectErr  Code = 13
	CodeGlobalError    Code = 14
	CodeCloseReceiver  Code = 15
	CodeReconnectTx    Code = 16
	CodeReconnectRx    Code = 17

	// Port negotiation (NetworkCommsInterface, C6).
	CodeConnectionInfo    Code = 20
	CodeConnectionRequest Code = 21
	CodeConnectionAck     Code = 22
	CodeQueryPorts        Code = 23
	CodeRequestPorts      Code = 24
	CodePortDefinitions   Code = 25
	CodeNewBrokerInfo     Code = 26
	CodeDelayConnection   Code = 27
	CodeNameNotFound      Code = 28

	// Timing protocol (TimeCoordinator, C10).
	CodeExecRequest  Code = 30
	CodeExecGrant    Code = 31
	CodeTimeRequest  Code = 32
	CodeTimeGrant    Code = 33
	CodeTimeBlock    Code = 34
	CodeTimeUnblock  Code = 35

	// Configuration updates, routed into a federate's TimeCoordinator.
	CodeUpdateOutputDelay Code = 40
	CodeUpdateInputDelay  Code = 41
	CodeUpdateMinDelta    Code = 42
	CodeUpdatePeriod      Code = 43
	CodeUpdateOffset      Code = 44
	CodeUpdateMaxIteration Code = 45
	CodeUpdateLogLevel    Code = 46
	CodeUpdateFlag        Code = 47

	// Data plane.
	CodePublication Code = 50
	CodeMessage     Code = 51

	// Query subsystem.
	CodeQuery      Code = 60
	CodeQueryReply Code = 61
)

// IsProtocolCommand reports whether c is handled by the comms/kernel
// protocol layer rather than forwarded to federate logic.
func (c Code) IsProtocolCommand() bool {
	switch c {
	case CodeProtocol, CodeProtocolPriority, CodeIgnore,
		CodeNewRoute, CodeRemoveRoute, CodeCloseReceiver,
		CodeReconnectTx, CodeReconnectRx,
		CodeConnectionInfo, CodeConnectionRequest, CodeConnectionAck,
		CodeQueryPorts, CodeRequestPorts, CodePortDefinitions,
		CodeNewBrokerInfo, CodeDelayConnection, CodeNameNotFound:
		return true
	default:
		return false
	}
}

// IsPriorityCommand reports whether c must bypass the normal data
// queue on transports that expose a priority channel.
func (c Code) IsPriorityCommand() bool {
	switch c {
	case CodeProtocolPriority, CodeQueryPorts, CodeRequestPorts,
		CodePortDefinitions, CodeConnectionRequest, CodeConnectionAck,
		CodeQuery, CodeQueryReply, CodeGlobalError:
		return true
	default:
		return false
	}
}

// IsValidCommand reports whether c is a recognized, non-zero action
// code.
func (c Code) IsValidCommand() bool {
	return c != CodeInvalid
}

// IsDisconnectCommand reports whether c signals teardown of a
// federate, core, or broker.
func (c Code) IsDisconnectCommand() bool {
	switch c {
	case CodeDisconnect, CodeDisconnectErr, CodeGlobalError:
		return true
	default:
		return false
	}
}

// IsIgnoreableCommand reports whether c carries no actionable content
// and may be dropped by a receiver with no further processing.
func (c Code) IsIgnoreableCommand() bool {
	return c == CodeIgnore
}

// IsTimingCommand reports whether c belongs to the time coordination
// protocol and should be routed to a federate's TimeCoordinator.
func (c Code) IsTimingCommand() bool {
	switch c {
	case CodeExecRequest, CodeExecGrant, CodeTimeRequest, CodeTimeGrant,
		CodeTimeBlock, CodeTimeUnblock,
		CodeUpdateOutputDelay, CodeUpdateInputDelay, CodeUpdateMinDelta,
		CodeUpdatePeriod, CodeUpdateOffset, CodeUpdateMaxIteration,
		CodeUpdateLogLevel, CodeUpdateFlag:
		return true
	default:
		return false
	}
}
