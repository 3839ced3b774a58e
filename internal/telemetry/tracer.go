package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ============================================================================
// Attribute Keys
// ============================================================================
//
// These keys are shared across the comms, kernel, and time-coordinator
// subsystems so that a trace backend can correlate a single ActionMessage's
// path through the system from RX thread to kernel dispatch to TX thread.

const (
	// Federation identity
	AttrFederate = "federate.id"
	AttrBroker   = "broker.id"
	AttrRoute    = "route.id"

	// ActionMessage envelope
	AttrAction      = "action.code"
	AttrMessageID   = "action.message_id"
	AttrSource      = "action.source_id"
	AttrDest        = "action.dest_id"
	AttrIteration   = "action.counter"
	AttrPriority    = "action.priority"
	AttrPayloadSize = "action.payload_size"

	// Logical time
	AttrActionTime = "time.action"
	AttrTimeExec   = "time.exec"
	AttrTimeGrant  = "time.granted"
	AttrTimeNext   = "time.next"
	AttrTimeAllow  = "time.allow"

	// Comms / transport
	AttrCommsMode   = "comms.transport"
	AttrCommsStatus = "comms.connection_status"
	AttrLocalAddr   = "comms.local_address"
	AttrRemoteAddr  = "comms.remote_address"
)

// ============================================================================
// Span Names
// ============================================================================

const (
	SpanCommsConnect    = "comms.connect"
	SpanCommsDisconnect = "comms.disconnect"
	SpanCommsTransmit   = "comms.transmit"
	SpanCommsReceive    = "comms.receive"

	SpanKernelDispatch  = "kernel.dispatch"
	SpanKernelRegister  = "kernel.register_federate"
	SpanKernelRoute     = "kernel.route_message"
	SpanKernelQuery     = "kernel.query"
	SpanTimeCoordGrant  = "timecoord.check_grant"
	SpanTimeCoordReq    = "timecoord.time_request"
	SpanTimeCoordFactor = "timecoord.update_factors"
)

// ============================================================================
// Attribute helpers
// ============================================================================

func Federate(id int32) attribute.KeyValue { return attribute.Int64(AttrFederate, int64(id)) }
func Broker(id int32) attribute.KeyValue   { return attribute.Int64(AttrBroker, int64(id)) }
func Route(id int32) attribute.KeyValue    { return attribute.Int64(AttrRoute, int64(id)) }

func ActionCode(code int) attribute.KeyValue    { return attribute.Int(AttrAction, code) }
func MessageID(id int32) attribute.KeyValue     { return attribute.Int64(AttrMessageID, int64(id)) }
func SourceID(id int32) attribute.KeyValue      { return attribute.Int64(AttrSource, int64(id)) }
func DestID(id int32) attribute.KeyValue        { return attribute.Int64(AttrDest, int64(id)) }
func Counter(n uint32) attribute.KeyValue       { return attribute.Int64(AttrIteration, int64(n)) }
func Priority(isPriority bool) attribute.KeyValue { return attribute.Bool(AttrPriority, isPriority) }
func PayloadSize(n int) attribute.KeyValue      { return attribute.Int(AttrPayloadSize, n) }

func ActionTime(t float64) attribute.KeyValue { return attribute.Float64(AttrActionTime, t) }
func TimeExec(t float64) attribute.KeyValue   { return attribute.Float64(AttrTimeExec, t) }
func TimeGrant(t float64) attribute.KeyValue  { return attribute.Float64(AttrTimeGrant, t) }
func TimeNext(t float64) attribute.KeyValue   { return attribute.Float64(AttrTimeNext, t) }
func TimeAllow(t float64) attribute.KeyValue  { return attribute.Float64(AttrTimeAllow, t) }

func CommsMode(mode string) attribute.KeyValue     { return attribute.String(AttrCommsMode, mode) }
func CommsStatus(status string) attribute.KeyValue { return attribute.String(AttrCommsStatus, status) }
func LocalAddr(addr string) attribute.KeyValue     { return attribute.String(AttrLocalAddr, addr) }
func RemoteAddr(addr string) attribute.KeyValue    { return attribute.String(AttrRemoteAddr, addr) }

// StartActionSpan starts a span for processing a single ActionMessage,
// tagging it with its envelope fields so the trace backend can follow one
// command across comms RX, kernel dispatch, and comms TX.
func StartActionSpan(ctx context.Context, name string, actionCode int, source, dest int32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{
		ActionCode(actionCode),
		SourceID(source),
		DestID(dest),
	}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}
