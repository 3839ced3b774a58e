package action

import (
	"math"

	"github.com/fedcore/corefed/internal/buffer"
	"github.com/fedcore/corefed/pkg/ids"
)

// Flag bits carried in ActionMessage.Flags.
const (
	// FlagIterationRequested marks a timing command as requesting an
	// iterative (non-advancing) grant rather than a final one.
	FlagIterationRequested uint32 = 1 << 0

	// FlagUseJSONSerialization marks a message whose Payload, when
	// serialized, should use the JSON form instead of the binary form.
	FlagUseJSONSerialization uint32 = 1 << 1

	// FlagIndicator is a generic single-bit signal whose meaning is
	// action-code-specific (e.g. "has converged" for query replies).
	FlagIndicator uint32 = 1 << 2
)

// MaxTime is the sentinel returned for halted federations and used as
// the +infinity value throughout the timing protocol.
const MaxTime = math.MaxFloat64

// Message is the universal command record exchanged between comms
// layers, cores, and brokers.
type Message struct {
	ActionCode Code

	SourceID ids.GlobalFederateId
	DestID   ids.GlobalFederateId

	// MessageID carries a protocol sub-code when ActionCode is
	// CodeProtocol or CodeProtocolPriority (e.g. CodeNewRoute).
	MessageID int32

	ActionTime float64 // logical time the action applies at
	Te         float64 // earliest-event time
	Tdemin     float64 // minimum dependent-event time

	Counter uint32 // iteration counter
	Flags   uint32

	Payload    buffer.SmallBuffer
	StringData []string
	Name       string
}

// New returns a Message with sentinel +infinity time fields, matching
// the zero-information state before any timing data is known.
func New(code Code) *Message {
	return &Message{
		ActionCode: code,
		ActionTime: MaxTime,
		Te:         MaxTime,
		Tdemin:     MaxTime,
	}
}

// HasFlag reports whether bit is set in m.Flags.
func (m *Message) HasFlag(bit uint32) bool {
	return m.Flags&bit != 0
}

// SetFlag sets or clears bit in m.Flags.
func (m *Message) SetFlag(bit uint32, on bool) {
	if on {
		m.Flags |= bit
	} else {
		m.Flags &^= bit
	}
}

// IsIteration reports whether the message requests an iterative grant.
func (m *Message) IsIteration() bool {
	return m.HasFlag(FlagIterationRequested)
}

// Clone returns an independent deep copy of m, including its payload
// bytes and string data.
func (m *Message) Clone() *Message {
	out := *m
	out.Payload = *m.Payload.Clone()
	if m.StringData != nil {
		out.StringData = append([]string(nil), m.StringData...)
	}
	return &out
}

// IsProtocolCommand, IsPriorityCommand, IsValidCommand,
// IsDisconnectCommand, and IsIgnoreableCommand classify the message by
// its ActionCode; see Code's methods of the same name.
func (m *Message) IsProtocolCommand() bool  { return m.ActionCode.IsProtocolCommand() }
func (m *Message) IsPriorityCommand() bool  { return m.ActionCode.IsPriorityCommand() }
func (m *Message) IsValidCommand() bool     { return m.ActionCode.IsValidCommand() }
func (m *Message) IsDisconnectCommand() bool { return m.ActionCode.IsDisconnectCommand() }
func (m *Message) IsIgnoreableCommand() bool { return m.ActionCode.IsIgnoreableCommand() }
