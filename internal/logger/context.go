package logger

import (
	"context"
	"time"
)

type contextKey struct{}

// LogContext carries per-session and per-packet fields that every log line
// of a connection should include.
type LogContext struct {
	TraceID    string
	SpanID     string
	SessionID  string
	ClientAddr string

	// Packet fields are only emitted when HasPacket is set.
	HasPacket bool
	Component uint16
	Command   uint16
	PacketID  uint16

	StartTime time.Time
}

// WithContext attaches lc to ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, contextKey{}, lc)
}

// FromContext returns the LogContext of ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(contextKey{}).(*LogContext)
	return lc
}

// NewLogContext starts a LogContext for a session.
func NewLogContext(sessionID, clientAddr string) *LogContext {
	return &LogContext{
		SessionID:  sessionID,
		ClientAddr: clientAddr,
		StartTime:  time.Now(),
	}
}

// Clone returns a copy of lc.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithPacket returns a copy carrying the packet routing fields.
func (lc *LogContext) WithPacket(component, command, id uint16) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.HasPacket = true
		c.Component = component
		c.Command = command
		c.PacketID = id
		c.StartTime = time.Now()
	}
	return c
}

// WithTrace returns a copy with trace identifiers set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.TraceID = traceID
		c.SpanID = spanID
	}
	return c
}

// DurationMs returns the milliseconds since StartTime.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}
