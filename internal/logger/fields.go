package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys. Use these so log lines can be queried consistently.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Sessions
	KeySessionID  = "session_id"
	KeyClientAddr = "client_addr"
	KeyListenAddr = "listen_addr"

	// Packet routing
	KeyComponent = "component"
	KeyCommand   = "command"
	KeyPacketID  = "packet_id"
	KeyQType     = "qtype"
	KeyLength    = "length"
	KeyMaxLength = "max_length"

	// Decoded content
	KeyLabel     = "label"
	KeyTdfType   = "tdf_type"
	KeyFields    = "fields"
	KeyErrorKind = "error_kind"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyCount      = "count"
)

func hex16(v uint16) string {
	return fmt.Sprintf("0x%04x", v)
}

func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

func ClientAddr(addr string) slog.Attr {
	return slog.String(KeyClientAddr, addr)
}

// Component renders a component id as hex, the form used in protocol docs.
func Component(c uint16) slog.Attr {
	return slog.String(KeyComponent, hex16(c))
}

// Command renders a command id as hex.
func Command(c uint16) slog.Attr {
	return slog.String(KeyCommand, hex16(c))
}

func PacketID(id uint16) slog.Attr {
	return slog.Int(KeyPacketID, int(id))
}

func QType(q uint16) slog.Attr {
	return slog.String(KeyQType, hex16(q))
}

func Length(n int) slog.Attr {
	return slog.Int(KeyLength, n)
}

func Label(l string) slog.Attr {
	return slog.String(KeyLabel, l)
}

// TdfType accepts anything with a String method so this package does not
// depend on the codec.
func TdfType(t fmt.Stringer) slog.Attr {
	return slog.String(KeyTdfType, t.String())
}

// ErrorKind is the metric-style classification of a failure
// (truncated, invalid_encoding, timeout, ...).
func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}

func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns an error attribute. A nil error yields an empty attribute,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
