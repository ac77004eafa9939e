package metrics

import "time"

// BlazeMetrics records Blaze server activity. A nil BlazeMetrics disables
// recording; callers check for nil before each call.
type BlazeMetrics interface {
	// RecordPacket records one packet that was read and decoded.
	// errorKind is empty on success, otherwise a tdf error code name such
	// as "truncated" or "unknown_type".
	RecordPacket(component, command uint16, contentBytes int, decode time.Duration, errorKind string)

	// RecordReadError records a connection-level read failure
	// (timeout, reset, limit_exceeded, ...).
	RecordReadError(kind string)

	// RecordBytesSent records bytes written to clients.
	RecordBytesSent(n int)

	SetActiveConnections(count int32)
	RecordConnectionAccepted()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
	RecordConnectionRejected()
}
