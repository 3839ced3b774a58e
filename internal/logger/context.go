package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single ActionMessage
// as it moves from comms RX through kernel dispatch to comms TX.
type LogContext struct {
	TraceID    string    // OpenTelemetry trace ID
	SpanID     string    // OpenTelemetry span ID
	FederateID int32     // Global federate id this message concerns
	BrokerID   int32     // Global broker id this message concerns
	Route      int32     // Route the message traveled on
	ActionCode int       // ActionMessage action code
	ActionTime float64   // Logical action time carried by the message
	StartTime  time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a federate
func NewLogContext(federateID int32) *LogContext {
	return &LogContext{
		FederateID: federateID,
		StartTime:  time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:    lc.TraceID,
		SpanID:     lc.SpanID,
		FederateID: lc.FederateID,
		BrokerID:   lc.BrokerID,
		Route:      lc.Route,
		ActionCode: lc.ActionCode,
		ActionTime: lc.ActionTime,
		StartTime:  lc.StartTime,
	}
}

// WithAction returns a copy with the action code and time set
func (lc *LogContext) WithAction(code int, actionTime float64) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ActionCode = code
		clone.ActionTime = actionTime
	}
	return clone
}

// WithRoute returns a copy with the route set
func (lc *LogContext) WithRoute(route int32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Route = route
	}
	return clone
}

// WithBroker returns a copy with the broker id set
func (lc *LogContext) WithBroker(brokerID int32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.BrokerID = brokerID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
