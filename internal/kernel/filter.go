package kernel

import (
	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/pkg/ids"
)

// FilterKind distinguishes where along a message's path a filter is
// attached.
type FilterKind int

const (
	// FilterSource runs on messages leaving an endpoint, before
	// they're placed on the wire.
	FilterSource FilterKind = iota
	// FilterDestination runs on messages arriving at an endpoint,
	// before delivery to the receiving federate.
	FilterDestination
	// FilterCloning runs like FilterDestination but produces
	// additional copies rather than replacing the original.
	FilterCloning
)

// FilterOperator is the contract a filter implementation satisfies: it
// maps one inbound ActionMessage to zero or more outbound ones. A
// non-cloning filter returning zero messages drops the message;
// returning more than one is only meaningful for cloning filters.
type FilterOperator interface {
	Process(msg *action.Message) []*action.Message
}

// FilterOperatorFunc adapts a plain function to FilterOperator.
type FilterOperatorFunc func(msg *action.Message) []*action.Message

func (f FilterOperatorFunc) Process(msg *action.Message) []*action.Message { return f(msg) }

// FilterPlacement records one filter's attachment point and kind.
type FilterPlacement struct {
	Handle ids.GlobalHandle
	Kind   FilterKind
	Op     FilterOperator
}

// FilterChain holds the filters attached to a single endpoint handle,
// applied in registration order.
type FilterChain struct {
	placements []FilterPlacement
}

// Add appends a filter to the chain.
func (c *FilterChain) Add(p FilterPlacement) {
	c.placements = append(c.placements, p)
}

// Apply runs msg through every filter of kind in registration order.
// Non-cloning filters feed the prior filter's sole surviving message
// into the next; a message dropped (zero results) short-circuits the
// rest of the chain. Cloning filters fan the message out, and every
// resulting copy continues independently through the remainder of the
// chain.
func (c *FilterChain) Apply(kind FilterKind, msg *action.Message) []*action.Message {
	current := []*action.Message{msg}

	for _, p := range c.placements {
		if p.Kind != kind {
			continue
		}
		var next []*action.Message
		for _, m := range current {
			results := p.Op.Process(m)
			next = append(next, results...)
		}
		current = next
		if len(current) == 0 {
			return nil
		}
	}
	return current
}
