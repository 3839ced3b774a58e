package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Federation identity
	// ========================================================================
	KeyFederate = "federate"  // Global federate id
	KeyBroker   = "broker"    // Global broker id
	KeyCore     = "core"      // Global core id
	KeyRoute    = "route"     // Route id a message traveled on
	KeyHandle   = "handle"    // Interface handle (publication/input/endpoint)

	// ========================================================================
	// ActionMessage envelope
	// ========================================================================
	KeyAction      = "action"      // Action code (CMD_*)
	KeyActionName  = "action_name" // Human-readable action code name
	KeySource      = "source"      // Source federate/core id
	KeyDest        = "dest"        // Destination federate/core id
	KeyIteration   = "iteration"   // Message counter / iteration number
	KeyPayloadSize = "payload_size"

	// ========================================================================
	// Logical time
	// ========================================================================
	KeyActionTime = "action_time"
	KeyTimeExec   = "time_exec"
	KeyTimeGrant  = "time_grant"
	KeyTimeNext   = "time_next"
	KeyTimeAllow  = "time_allow"

	// ========================================================================
	// Comms / transport
	// ========================================================================
	KeyCommsMode    = "comms_mode"    // tcp, udp, inproc
	KeyCommsStatus  = "comms_status"  // ConnectionStatus string
	KeyLocalAddr    = "local_addr"
	KeyRemoteAddr   = "remote_addr"
	KeyConnectionID = "connection_id"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric error code
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Federate returns a slog.Attr for a global federate id
func Federate(id int32) slog.Attr {
	return slog.Int64(KeyFederate, int64(id))
}

// Broker returns a slog.Attr for a global broker id
func Broker(id int32) slog.Attr {
	return slog.Int64(KeyBroker, int64(id))
}

// Core returns a slog.Attr for a global core id
func Core(id int32) slog.Attr {
	return slog.Int64(KeyCore, int64(id))
}

// Route returns a slog.Attr for a route id
func Route(id int32) slog.Attr {
	return slog.Int64(KeyRoute, int64(id))
}

// Handle returns a slog.Attr for an interface handle
func Handle(h int32) slog.Attr {
	return slog.Int64(KeyHandle, int64(h))
}

// Action returns a slog.Attr for an ActionMessage action code
func Action(code int) slog.Attr {
	return slog.Int(KeyAction, code)
}

// ActionName returns a slog.Attr for a human-readable action code name
func ActionName(name string) slog.Attr {
	return slog.String(KeyActionName, name)
}

// Source returns a slog.Attr for a message source id
func Source(id int32) slog.Attr {
	return slog.Int64(KeySource, int64(id))
}

// Dest returns a slog.Attr for a message destination id
func Dest(id int32) slog.Attr {
	return slog.Int64(KeyDest, int64(id))
}

// Iteration returns a slog.Attr for a message counter / iteration number
func Iteration(n uint32) slog.Attr {
	return slog.Uint64(KeyIteration, uint64(n))
}

// PayloadSize returns a slog.Attr for an ActionMessage payload size
func PayloadSize(n int) slog.Attr {
	return slog.Int(KeyPayloadSize, n)
}

// ActionTime returns a slog.Attr for a message's logical action time
func ActionTime(t float64) slog.Attr {
	return slog.Float64(KeyActionTime, t)
}

// TimeExec returns a slog.Attr for the federate's execution time
func TimeExec(t float64) slog.Attr {
	return slog.Float64(KeyTimeExec, t)
}

// TimeGrant returns a slog.Attr for a granted time
func TimeGrant(t float64) slog.Attr {
	return slog.Float64(KeyTimeGrant, t)
}

// TimeNext returns a slog.Attr for the next possible time
func TimeNext(t float64) slog.Attr {
	return slog.Float64(KeyTimeNext, t)
}

// TimeAllow returns a slog.Attr for the allowed send time
func TimeAllow(t float64) slog.Attr {
	return slog.Float64(KeyTimeAllow, t)
}

// CommsMode returns a slog.Attr for the transport kind (tcp, udp, inproc)
func CommsMode(mode string) slog.Attr {
	return slog.String(KeyCommsMode, mode)
}

// CommsStatus returns a slog.Attr for a ConnectionStatus value
func CommsStatus(status string) slog.Attr {
	return slog.String(KeyCommsStatus, status)
}

// LocalAddr returns a slog.Attr for a local network address
func LocalAddr(addr string) slog.Attr {
	return slog.String(KeyLocalAddr, addr)
}

// RemoteAddr returns a slog.Attr for a remote network address
func RemoteAddr(addr string) slog.Attr {
	return slog.String(KeyRemoteAddr, addr)
}

// ConnectionID returns a slog.Attr for a connection identifier
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Attempt returns a slog.Attr for a retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for the maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}
