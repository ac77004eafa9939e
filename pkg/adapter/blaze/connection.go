package blaze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"time"

	"github.com/jacobtread/rme3/internal/logger"
	"github.com/jacobtread/rme3/internal/protocol/packet"
	"github.com/jacobtread/rme3/internal/protocol/tdf"
	"github.com/jacobtread/rme3/internal/telemetry"
	"github.com/jacobtread/rme3/pkg/adapter"
)

// Connection serves one Blaze client. Packets are read, decoded and handled
// strictly in order; the first protocol violation closes the connection.
type Connection struct {
	server  *Adapter
	conn    net.Conn
	session *Session
	reader  *packet.Reader
}

// NewConnection registers a session for conn and prepares its reader.
func NewConnection(server *Adapter, conn net.Conn) *Connection {
	c := &Connection{
		server:  server,
		conn:    conn,
		session: server.sessions.Open(conn.RemoteAddr().String()),
	}
	c.reader = packet.NewReader(conn, uint32(server.config.MaxPacketSize.Uint64()))
	c.reader.OnHeader = c.onHeader
	return c
}

// Session returns the session bound to this connection.
func (c *Connection) Session() *Session {
	return c.session
}

// Serve reads packets until the client disconnects, a deadline expires, a
// packet violates the protocol, or ctx is cancelled.
func (c *Connection) Serve(ctx context.Context) {
	defer c.handleConnectionClose()

	lc := logger.NewLogContext(c.session.ID, c.session.RemoteAddr)
	ctx = logger.WithContext(ctx, lc)
	logger.InfoCtx(ctx, "Blaze session started")

	for {
		select {
		case <-ctx.Done():
			logger.DebugCtx(ctx, "Blaze connection closed due to context cancellation")
			return
		case <-c.server.Shutdown:
			logger.DebugCtx(ctx, "Blaze connection closed due to server shutdown")
			return
		default:
		}

		c.setReadDeadline(c.server.config.Timeouts.Idle)

		pkt, err := c.reader.ReadPacket()
		if err != nil {
			c.handleReadError(ctx, err)
			return
		}

		err = c.processPacket(ctx, lc, pkt)
		pkt.Release()
		if err != nil {
			logger.WarnCtx(ctx, "Closing Blaze connection", logger.Err(err))
			return
		}
	}
}

// onHeader switches from the idle deadline to the read deadline once a
// header has arrived.
func (c *Connection) onHeader(h packet.Header) error {
	c.setReadDeadline(c.server.config.Timeouts.Read)
	if logger.IsDebug() {
		logger.Debug("Blaze header",
			logger.KeySessionID, c.session.ID,
			logger.Component(h.Component),
			logger.Command(h.Command),
			logger.PacketID(h.ID),
			logger.Length(int(h.ContentLength)))
	}
	return nil
}

// setReadDeadline arms the next read. Once shutdown has begun no read may
// block past ShutdownReadGrace, even when shutdown interrupted reads just
// before this deadline was armed.
func (c *Connection) setReadDeadline(d time.Duration) {
	var deadline time.Time
	if d > 0 {
		deadline = time.Now().Add(d)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		logger.Debug("Failed to set read deadline", logger.KeyClientAddr, c.session.RemoteAddr, logger.KeyError, err)
		return
	}

	select {
	case <-c.server.Shutdown:
		if d <= 0 || d > adapter.ShutdownReadGrace {
			_ = c.conn.SetReadDeadline(time.Now().Add(adapter.ShutdownReadGrace))
		}
	default:
	}
}

func (c *Connection) processPacket(ctx context.Context, lc *logger.LogContext, pkt *packet.Packet) error {
	ctx, span := telemetry.StartPacketSpan(ctx, c.session.ID, pkt.Component, pkt.Command, pkt.ID,
		telemetry.ClientAddr(c.session.RemoteAddr),
		telemetry.QType(pkt.QType),
		telemetry.ContentLength(len(pkt.Content)))
	defer span.End()

	plc := lc.WithPacket(pkt.Component, pkt.Command, pkt.ID)
	if telemetry.IsEnabled() {
		plc = plc.WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	}
	ctx = logger.WithContext(ctx, plc)

	c.session.recordIn(len(pkt.Content))

	start := time.Now()
	fields, err := pkt.Decode(c.server.decode...)
	elapsed := time.Since(start)

	if err != nil {
		kind := tdf.CodeOf(err).String()
		c.session.decodeErrors.Add(1)
		c.recordPacket(pkt, elapsed, kind)

		telemetry.SetAttributes(ctx, telemetry.ErrorKind(kind))
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "Blaze packet decode failed",
			logger.ErrorKind(kind),
			logger.QType(pkt.QType),
			logger.Length(len(pkt.Content)),
			logger.Err(err))
		return fmt.Errorf("decode packet: %w", err)
	}

	c.recordPacket(pkt, elapsed, "")
	telemetry.SetAttributes(ctx, telemetry.FieldCount(len(fields)))

	if logger.IsDebug() {
		logger.DebugCtx(ctx, "Blaze packet decoded",
			logger.QType(pkt.QType),
			logger.Length(len(pkt.Content)),
			logger.KeyFields, len(fields),
			logger.DurationMs(float64(elapsed.Microseconds())/1000),
			"content", tdf.Format(fields))
	}

	reply, err := c.server.handler.HandlePacket(ctx, c.session, pkt, fields)
	if err != nil {
		var perr adapter.ProtocolError
		if !errors.As(err, &perr) {
			telemetry.RecordError(ctx, err)
			return fmt.Errorf("handle packet: %w", err)
		}
		logger.DebugCtx(ctx, "Blaze handler returned protocol error",
			"code", fmt.Sprintf("0x%04x", perr.Code()), logger.Err(err))
		reply = pkt.ErrorReply(perr.Code())
	}

	if reply == nil {
		return nil
	}
	return c.writePacket(ctx, reply)
}

func (c *Connection) recordPacket(pkt *packet.Packet, elapsed time.Duration, errorKind string) {
	if c.server.metrics != nil {
		c.server.metrics.RecordPacket(pkt.Component, pkt.Command, len(pkt.Content), elapsed, errorKind)
	}
}

func (c *Connection) writePacket(ctx context.Context, p *packet.Packet) error {
	data, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}

	if d := c.server.config.Timeouts.Write; d > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(d)); err != nil {
			logger.DebugCtx(ctx, "Failed to set write deadline", logger.Err(err))
		}
	}

	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}

	c.session.recordOut(len(data))
	if c.server.metrics != nil {
		c.server.metrics.RecordBytesSent(len(data))
	}
	logger.DebugCtx(ctx, "Blaze reply sent",
		logger.QType(p.QType),
		"error_code", p.Error,
		logger.Length(len(p.Content)))
	return nil
}

// handleReadError logs why reading stopped and records it.
func (c *Connection) handleReadError(ctx context.Context, err error) {
	kind := classifyReadError(ctx, err)

	switch kind {
	case "eof":
		logger.DebugCtx(ctx, "Blaze connection closed by client")
		return
	case "cancelled", "closed":
		logger.DebugCtx(ctx, "Blaze connection stopped", logger.ErrorKind(kind))
		return
	case "timeout":
		logger.DebugCtx(ctx, "Blaze connection timed out", logger.Err(err))
	case "io":
		logger.DebugCtx(ctx, "Error reading Blaze packet", logger.Err(err))
	default:
		logger.WarnCtx(ctx, "Blaze protocol violation", logger.ErrorKind(kind), logger.Err(err))
		c.session.decodeErrors.Add(1)
	}

	if c.server.metrics != nil {
		c.server.metrics.RecordReadError(kind)
	}
}

// classifyReadError maps a packet read failure to a short label. Codec
// failures (truncated, limit_exceeded, ...) use their tdf error code name.
func classifyReadError(ctx context.Context, err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		return "eof"
	case ctx.Err() != nil:
		return "cancelled"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(err, net.ErrClosed):
		return "closed"
	}
	if code := tdf.CodeOf(err); code != 0 {
		return code.String()
	}
	return "io"
}

// handleConnectionClose recovers a panicking serve loop and closes the
// socket.
func (c *Connection) handleConnectionClose() {
	if r := recover(); r != nil {
		logger.Error("Panic in Blaze connection handler",
			logger.KeySessionID, c.session.ID,
			logger.KeyClientAddr, c.session.RemoteAddr,
			logger.KeyError, r,
			"stack", string(debug.Stack()))
	}

	_ = c.conn.Close()
}
