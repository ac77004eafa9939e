package blaze

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jacobtread/rme3/internal/protocol/packet"
	"github.com/jacobtread/rme3/internal/protocol/tdf"
	"github.com/jacobtread/rme3/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// startServer runs an adapter on a loopback port until the test ends.
func startServer(t *testing.T, cfg Config, opts ...Option) *Adapter {
	t.Helper()
	cfg.BindAddress = "127.0.0.1"
	cfg.Port = freePort(t)
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = time.Second
	}

	a, err := New(cfg, opts...)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- a.Serve(context.Background()) }()
	require.NotEmpty(t, a.GetListenerAddr())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.Stop(ctx)
		<-errCh
	})
	return a
}

func dial(t *testing.T, a *Adapter) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", a.GetListenerAddr())
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func request(t *testing.T, id uint16, fields ...tdf.Labeled) *packet.Packet {
	t.Helper()
	p, err := packet.New(0x0001, 0x0028, id, fields...)
	require.NoError(t, err)
	return p
}

// expectClosed asserts the server closes conn without sending anything.
func expectClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	_, err := conn.Read(make([]byte, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || isReset(err), "unexpected error: %v", err)
}

func isReset(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && !opErr.Timeout()
}

// echoHandler replies with the decoded fields.
var echoHandler = HandlerFunc(func(_ context.Context, _ *Session, req *packet.Packet, fields []tdf.Labeled) (*packet.Packet, error) {
	return req.Reply(fields...)
})

type recordingMetrics struct {
	mu         sync.Mutex
	packets    int
	errorKinds []string
	readErrors []string
	bytesSent  int
	accepted   int
}

func (m *recordingMetrics) RecordPacket(_, _ uint16, _ int, _ time.Duration, errorKind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packets++
	if errorKind != "" {
		m.errorKinds = append(m.errorKinds, errorKind)
	}
}

func (m *recordingMetrics) RecordReadError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrors = append(m.readErrors, kind)
}

func (m *recordingMetrics) RecordBytesSent(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytesSent += n
}

func (m *recordingMetrics) RecordConnectionAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted++
}

func (m *recordingMetrics) SetActiveConnections(int32)   {}
func (m *recordingMetrics) RecordConnectionClosed()      {}
func (m *recordingMetrics) RecordConnectionForceClosed() {}
func (m *recordingMetrics) RecordConnectionRejected()    {}

type metricsSnapshot struct {
	packets    int
	errorKinds []string
	readErrors []string
	bytesSent  int
	accepted   int
}

func (m *recordingMetrics) snapshot() metricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return metricsSnapshot{
		packets:    m.packets,
		errorKinds: append([]string(nil), m.errorKinds...),
		readErrors: append([]string(nil), m.readErrors...),
		bytesSent:  m.bytesSent,
		accepted:   m.accepted,
	}
}

// ============================================================================
// Round Trip Tests
// ============================================================================

func TestEchoRoundTrip(t *testing.T) {
	m := &recordingMetrics{}
	a := startServer(t, Config{}, WithHandler(echoHandler), WithMetrics(m))
	conn := dial(t, a)

	fields := []tdf.Labeled{
		tdf.Field("TEST", tdf.String("hello")),
		tdf.Field("NUM1", tdf.VarInt(1234)),
		tdf.Field("GRP", tdf.Group{Fields: []tdf.Labeled{
			tdf.Field("ID", tdf.VarInt(-7)),
		}}),
	}

	for id := uint16(1); id <= 2; id++ {
		require.NoError(t, packet.Write(conn, request(t, id, fields...)))

		reply, err := packet.Read(conn, 0)
		require.NoError(t, err)
		assert.Equal(t, packet.QTypeReply, reply.Kind())
		assert.Equal(t, id, reply.ID)
		assert.Equal(t, uint16(0x0028), reply.Command)

		got, err := reply.Decode()
		require.NoError(t, err)
		assert.Equal(t, fields, got)
	}

	// Counters are updated after the reply is written.
	require.Eventually(t, func() bool {
		s := a.Sessions()
		return len(s) == 1 && s[0].PacketsOut == 2
	}, 2*time.Second, 10*time.Millisecond)

	sessions := a.Sessions()
	assert.Equal(t, uint64(2), sessions[0].PacketsIn)
	assert.Equal(t, conn.LocalAddr().String(), sessions[0].RemoteAddr)
	assert.NotNil(t, sessions[0].LastPacketAt)

	require.Eventually(t, func() bool { return m.snapshot().bytesSent > 0 }, 2*time.Second, 10*time.Millisecond)
	snap := m.snapshot()
	assert.Equal(t, 2, snap.packets)
	assert.Equal(t, 1, snap.accepted)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return len(a.Sessions()) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestDiscardHandlerSendsNothing(t *testing.T) {
	a := startServer(t, Config{})
	conn := dial(t, a)

	require.NoError(t, packet.Write(conn, request(t, 1, tdf.Field("A", tdf.VarInt(1)))))
	require.Eventually(t, func() bool {
		s := a.Sessions()
		return len(s) == 1 && s[0].PacketsIn == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, err := conn.Read(make([]byte, 1))
	var netErr net.Error
	require.True(t, errors.As(err, &netErr))
	assert.True(t, netErr.Timeout())
}

func TestProtocolErrorReply(t *testing.T) {
	h := HandlerFunc(func(_ context.Context, _ *Session, req *packet.Packet, fields []tdf.Labeled) (*packet.Packet, error) {
		if _, ok := tdf.Find(fields, "FAIL"); ok {
			return nil, adapter.NewProtocolError(0x4001, nil, "rejected")
		}
		return req.Reply()
	})
	a := startServer(t, Config{}, WithHandler(h))
	conn := dial(t, a)

	require.NoError(t, packet.Write(conn, request(t, 3, tdf.Field("FAIL", tdf.VarInt(1)))))
	reply, err := packet.Read(conn, 0)
	require.NoError(t, err)
	assert.Equal(t, packet.QTypeErrorReply, reply.Kind())
	assert.Equal(t, uint16(0x4001), reply.Error)
	assert.Equal(t, uint16(3), reply.ID)

	// The connection stays usable.
	require.NoError(t, packet.Write(conn, request(t, 4)))
	reply, err = packet.Read(conn, 0)
	require.NoError(t, err)
	assert.Equal(t, packet.QTypeReply, reply.Kind())
	assert.Equal(t, uint16(4), reply.ID)
}

// ============================================================================
// Protocol Violation Tests
// ============================================================================

func TestDecodeFailureClosesConnection(t *testing.T) {
	m := &recordingMetrics{}
	a := startServer(t, Config{}, WithHandler(echoHandler), WithMetrics(m))
	conn := dial(t, a)

	// "TEST" tag followed by an undefined type byte.
	bad := &packet.Packet{Component: 1, Command: 1, ID: 1, Content: []byte{0xD2, 0x5C, 0xF4, 0x0B}}
	require.NoError(t, packet.Write(conn, bad))

	expectClosed(t, conn)
	require.Eventually(t, func() bool {
		return len(m.snapshot().errorKinds) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"unknown_type"}, m.snapshot().errorKinds)
}

func TestOversizedPacketRejected(t *testing.T) {
	m := &recordingMetrics{}
	a := startServer(t, Config{MaxPacketSize: 16}, WithHandler(echoHandler), WithMetrics(m))
	conn := dial(t, a)

	header := []byte{
		0x03, 0xE8, // 1000 bytes of content declared
		0x00, 0x01,
		0x00, 0x01,
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x01,
	}
	_, err := conn.Write(header)
	require.NoError(t, err)

	expectClosed(t, conn)
	require.Eventually(t, func() bool {
		return len(m.snapshot().readErrors) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"limit_exceeded"}, m.snapshot().readErrors)
}

func TestTruncatedPacketClosesConnection(t *testing.T) {
	m := &recordingMetrics{}
	a := startServer(t, Config{}, WithMetrics(m))
	conn := dial(t, a)

	_, err := conn.Write([]byte{0x00, 0x10, 0x00, 0x01})
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	require.Eventually(t, func() bool {
		return len(m.snapshot().readErrors) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"truncated"}, m.snapshot().readErrors)
}

func TestIdleTimeout(t *testing.T) {
	m := &recordingMetrics{}
	a := startServer(t, Config{Timeouts: TimeoutsConfig{Idle: 50 * time.Millisecond}}, WithMetrics(m))
	conn := dial(t, a)

	expectClosed(t, conn)
	require.Eventually(t, func() bool {
		return len(m.snapshot().readErrors) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"timeout"}, m.snapshot().readErrors)
}

func TestHandlerPanicIsContained(t *testing.T) {
	var calls sync.WaitGroup
	calls.Add(1)
	h := HandlerFunc(func(_ context.Context, _ *Session, req *packet.Packet, fields []tdf.Labeled) (*packet.Packet, error) {
		if _, ok := tdf.Find(fields, "BOOM"); ok {
			defer calls.Done()
			panic("boom")
		}
		return req.Reply(fields...)
	})
	a := startServer(t, Config{}, WithHandler(h))

	first := dial(t, a)
	require.NoError(t, packet.Write(first, request(t, 1, tdf.Field("BOOM", tdf.VarInt(1)))))
	calls.Wait()
	expectClosed(t, first)

	second := dial(t, a)
	require.NoError(t, packet.Write(second, request(t, 2, tdf.Field("OK", tdf.VarInt(1)))))
	reply, err := packet.Read(second, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), reply.ID)
}

func TestHandlerErrorClosesConnection(t *testing.T) {
	h := HandlerFunc(func(context.Context, *Session, *packet.Packet, []tdf.Labeled) (*packet.Packet, error) {
		return nil, errors.New("backend unavailable")
	})
	a := startServer(t, Config{}, WithHandler(h))
	conn := dial(t, a)

	require.NoError(t, packet.Write(conn, request(t, 1)))
	expectClosed(t, conn)
}

// ============================================================================
// Lifecycle Tests
// ============================================================================

func TestReadyAndStop(t *testing.T) {
	cfg := Config{BindAddress: "127.0.0.1", Port: freePort(t), ShutdownTimeout: time.Second}
	a, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, a.Ready())
	assert.Equal(t, "Blaze", a.Protocol())

	errCh := make(chan error, 1)
	go func() { errCh <- a.Serve(context.Background()) }()
	require.NotEmpty(t, a.GetListenerAddr())
	assert.True(t, a.Ready())

	conn, err := net.Dial("tcp", a.GetListenerAddr())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return len(a.Sessions()) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Stop(context.Background()))
	assert.NoError(t, <-errCh)
	assert.False(t, a.Ready())
	assert.Empty(t, a.Sessions())
}

func TestReadDeadlineBoundedAfterShutdown(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
	}{
		{"Idle", time.Hour},
		{"NoDeadline", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(Config{BindAddress: "127.0.0.1", Port: freePort(t), ShutdownTimeout: time.Second})
			require.NoError(t, err)

			server, client := net.Pipe()
			defer client.Close()
			defer server.Close()
			c := NewConnection(a, server)

			// Shutdown has already interrupted reads when the next deadline is armed.
			require.NoError(t, a.Stop(context.Background()))
			c.setReadDeadline(tt.d)

			start := time.Now()
			_, err = server.Read(make([]byte, 1))
			require.Error(t, err)
			assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
			assert.Less(t, time.Since(start), 2*time.Second)
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{Port: 70000})
	assert.Error(t, err)
}
