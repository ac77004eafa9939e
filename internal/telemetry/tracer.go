package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys for Blaze traffic.
const (
	AttrClientAddr = "client.address"
	AttrSessionID  = "session.id"

	AttrBlazeComponent = "blaze.component"
	AttrBlazeCommand   = "blaze.command"
	AttrBlazePacketID  = "blaze.packet_id"
	AttrBlazeQType     = "blaze.qtype"
	AttrBlazeError     = "blaze.error"
	AttrBlazeLength    = "blaze.content_length"
	AttrBlazeFields    = "blaze.fields"
	AttrTdfErrorKind   = "tdf.error_kind"
)

// SpanPacket is the name of the span covering one inbound packet.
const SpanPacket = "blaze.packet"

func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

func Component(c uint16) attribute.KeyValue {
	return attribute.String(AttrBlazeComponent, fmt.Sprintf("0x%04x", c))
}

func Command(c uint16) attribute.KeyValue {
	return attribute.String(AttrBlazeCommand, fmt.Sprintf("0x%04x", c))
}

func PacketID(id uint16) attribute.KeyValue {
	return attribute.Int(AttrBlazePacketID, int(id))
}

func QType(q uint16) attribute.KeyValue {
	return attribute.Int(AttrBlazeQType, int(q))
}

func ContentLength(n int) attribute.KeyValue {
	return attribute.Int(AttrBlazeLength, n)
}

// FieldCount is the number of top-level labeled values decoded.
func FieldCount(n int) attribute.KeyValue {
	return attribute.Int(AttrBlazeFields, n)
}

// ErrorKind classifies a decode failure (truncated, unknown_type, ...).
func ErrorKind(kind string) attribute.KeyValue {
	return attribute.String(AttrTdfErrorKind, kind)
}

// StartPacketSpan starts the span for one packet of a session.
func StartPacketSpan(ctx context.Context, sessionID string, component, command, id uint16, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, 4+len(attrs))
	all = append(all,
		SessionID(sessionID),
		Component(component),
		Command(command),
		PacketID(id),
	)
	all = append(all, attrs...)

	return StartSpan(ctx, SpanPacket,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(all...),
	)
}
