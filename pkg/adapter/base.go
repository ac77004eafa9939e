package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jacobtread/rme3/internal/logger"
)

// ConnectionHandler serves one accepted connection. Serve blocks until the
// connection is finished or ctx is cancelled.
type ConnectionHandler interface {
	Serve(ctx context.Context)
}

// ConnectionFactory creates the protocol handler for an accepted connection.
type ConnectionFactory interface {
	NewConnection(conn net.Conn) ConnectionHandler
}

// BaseConfig holds the settings every TCP adapter shares.
type BaseConfig struct {
	// BindAddress is the IP address to bind to. Empty binds all interfaces.
	BindAddress string

	// Port is the TCP port. 0 picks a free port (used by tests).
	Port int

	// MaxConnections caps concurrent connections. Connections beyond the cap
	// are accepted and closed immediately. 0 means unlimited.
	MaxConnections int

	// ShutdownTimeout bounds how long Serve waits for connections to drain
	// before force-closing them.
	ShutdownTimeout time.Duration

	// MetricsLogInterval enables a periodic log line with connection counts.
	MetricsLogInterval time.Duration
}

// ListenAddress returns the host:port the adapter binds.
func (c BaseConfig) ListenAddress() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.Port))
}

// MetricsRecorder receives connection lifecycle events. May be nil.
type MetricsRecorder interface {
	RecordConnectionAccepted()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
	RecordConnectionRejected()
	SetActiveConnections(count int32)
}

// OnConnectionClose runs after a connection's handler returns, before the
// connection slot is released.
type OnConnectionClose func(addr string)

// BaseAdapter owns the listener, the accept loop, connection tracking and
// shutdown for a protocol adapter. Protocol packages embed it and supply a
// ConnectionFactory.
//
// All exported methods are safe for concurrent use.
type BaseAdapter struct {
	Config  BaseConfig
	Metrics MetricsRecorder

	protocolName string

	listener   net.Listener
	listenerMu sync.RWMutex

	// ListenerReady is closed once Serve has bound (or failed to bind) the
	// listener.
	ListenerReady chan struct{}
	readyOnce     sync.Once

	// Shutdown is closed when shutdown begins.
	Shutdown     chan struct{}
	shutdownOnce sync.Once

	// ShutdownCtx is handed to every connection and cancelled on shutdown.
	ShutdownCtx    context.Context
	CancelRequests context.CancelFunc

	activeConns sync.WaitGroup
	ConnCount   atomic.Int32

	// ActiveConnections maps remote address to net.Conn for forced closure.
	ActiveConnections sync.Map

	connSemaphore chan struct{}
}

// NewBaseAdapter creates a stopped adapter.
func NewBaseAdapter(config BaseConfig, protocol string) *BaseAdapter {
	var sem chan struct{}
	if config.MaxConnections > 0 {
		sem = make(chan struct{}, config.MaxConnections)
		logger.Debug(protocol+" connection limit", "max_connections", config.MaxConnections)
	} else {
		logger.Debug(protocol+" connection limit", "max_connections", "unlimited")
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())

	return &BaseAdapter{
		Config:         config,
		protocolName:   protocol,
		ListenerReady:  make(chan struct{}),
		Shutdown:       make(chan struct{}),
		ShutdownCtx:    shutdownCtx,
		CancelRequests: cancel,
		connSemaphore:  sem,
	}
}

func (b *BaseAdapter) markReady() {
	b.readyOnce.Do(func() { close(b.ListenerReady) })
}

// ServeWithFactory binds the listener and runs the accept loop until
// shutdown. Each accepted connection is served on its own goroutine by the
// handler factory returns. onClose may be nil.
func (b *BaseAdapter) ServeWithFactory(ctx context.Context, factory ConnectionFactory, onClose OnConnectionClose) error {
	listener, err := net.Listen("tcp", b.Config.ListenAddress())
	if err != nil {
		b.markReady()
		return fmt.Errorf("create %s listener on %s: %w", b.protocolName, b.Config.ListenAddress(), err)
	}

	b.listenerMu.Lock()
	b.listener = listener
	b.listenerMu.Unlock()
	b.markReady()

	logger.Info(b.protocolName+" server listening", logger.KeyListenAddr, listener.Addr().String())

	go func() {
		select {
		case <-ctx.Done():
			logger.Info(b.protocolName+" shutdown signal received", logger.KeyError, ctx.Err())
			b.initiateShutdown()
		case <-b.Shutdown:
		}
	}()

	if b.Config.MetricsLogInterval > 0 {
		go b.logMetrics(ctx)
	}

	for {
		tcpConn, err := listener.Accept()
		if err != nil {
			select {
			case <-b.Shutdown:
				return b.gracefulShutdown()
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("%s listener closed: %w", b.protocolName, err)
			}
			logger.Debug("Error accepting "+b.protocolName+" connection", logger.KeyError, err)
			continue
		}

		if !b.acquireSlot() {
			logger.Warn(b.protocolName+" connection rejected: limit reached",
				logger.KeyClientAddr, tcpConn.RemoteAddr().String(),
				"max_connections", b.Config.MaxConnections)
			_ = tcpConn.Close()
			if b.Metrics != nil {
				b.Metrics.RecordConnectionRejected()
			}
			continue
		}

		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", logger.KeyError, err)
			}
		}

		b.track(tcpConn, factory.NewConnection(tcpConn), onClose)
	}
}

// acquireSlot takes a connection slot without blocking.
func (b *BaseAdapter) acquireSlot() bool {
	if b.connSemaphore == nil {
		return true
	}
	select {
	case b.connSemaphore <- struct{}{}:
		return true
	default:
		return false
	}
}

func (b *BaseAdapter) releaseSlot() {
	if b.connSemaphore != nil {
		<-b.connSemaphore
	}
}

func (b *BaseAdapter) track(tcpConn net.Conn, handler ConnectionHandler, onClose OnConnectionClose) {
	addr := tcpConn.RemoteAddr().String()

	b.activeConns.Add(1)
	active := b.ConnCount.Add(1)
	b.ActiveConnections.Store(addr, tcpConn)

	if b.Metrics != nil {
		b.Metrics.RecordConnectionAccepted()
		b.Metrics.SetActiveConnections(active)
	}
	logger.Debug(b.protocolName+" connection accepted", logger.KeyClientAddr, addr, "active", active)

	go func() {
		defer func() {
			if onClose != nil {
				onClose(addr)
			}
			b.ActiveConnections.Delete(addr)
			remaining := b.ConnCount.Add(-1)
			b.releaseSlot()
			b.activeConns.Done()

			if b.Metrics != nil {
				b.Metrics.RecordConnectionClosed()
				b.Metrics.SetActiveConnections(remaining)
			}
			logger.Debug(b.protocolName+" connection closed", logger.KeyClientAddr, addr, "active", remaining)
		}()

		handler.Serve(b.ShutdownCtx)
	}()
}

// initiateShutdown closes the listener, interrupts blocked reads and
// cancels ShutdownCtx. Safe to call repeatedly.
func (b *BaseAdapter) initiateShutdown() {
	b.shutdownOnce.Do(func() {
		logger.Debug(b.protocolName + " shutdown initiated")
		close(b.Shutdown)

		b.listenerMu.Lock()
		if b.listener != nil {
			if err := b.listener.Close(); err != nil {
				logger.Debug("Error closing "+b.protocolName+" listener", logger.KeyError, err)
			}
		}
		b.listenerMu.Unlock()

		b.interruptBlockingReads()
		b.CancelRequests()
	})
}

// ShutdownReadGrace is how long a read may still block once shutdown begins.
const ShutdownReadGrace = 100 * time.Millisecond

// interruptBlockingReads moves every read deadline close so that handlers
// blocked on the network notice the shutdown.
func (b *BaseAdapter) interruptBlockingReads() {
	deadline := time.Now().Add(ShutdownReadGrace)
	b.ActiveConnections.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			if err := conn.SetReadDeadline(deadline); err != nil {
				logger.Debug("Error setting shutdown deadline", logger.KeyClientAddr, key, logger.KeyError, err)
			}
		}
		return true
	})
}

// waitForConnections blocks until all handlers return or timeout fires.
func (b *BaseAdapter) waitForConnections(timeout <-chan time.Time) bool {
	done := make(chan struct{})
	go func() {
		b.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-timeout:
		return false
	}
}

func (b *BaseAdapter) gracefulShutdown() error {
	logger.Info(b.protocolName+" graceful shutdown: waiting for active connections",
		"active", b.ConnCount.Load(), "timeout", b.Config.ShutdownTimeout)

	var timeout <-chan time.Time
	if b.Config.ShutdownTimeout > 0 {
		timer := time.NewTimer(b.Config.ShutdownTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	if b.waitForConnections(timeout) {
		logger.Info(b.protocolName + " graceful shutdown complete")
		return nil
	}

	remaining := b.ConnCount.Load()
	logger.Warn(b.protocolName+" shutdown timeout exceeded, forcing closure",
		"active", remaining, "timeout", b.Config.ShutdownTimeout)
	b.forceCloseConnections()

	return fmt.Errorf("%s shutdown timeout: %d connections force-closed", b.protocolName, remaining)
}

func (b *BaseAdapter) forceCloseConnections() {
	closed := 0
	b.ActiveConnections.Range(func(key, value any) bool {
		conn := value.(net.Conn)
		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection", logger.KeyClientAddr, key, logger.KeyError, err)
			return true
		}
		closed++
		if b.Metrics != nil {
			b.Metrics.RecordConnectionForceClosed()
		}
		return true
	})
	logger.Info("Force-closed "+b.protocolName+" connections", logger.KeyCount, closed)
}

// Stop initiates shutdown and waits for connections until ctx is done.
func (b *BaseAdapter) Stop(ctx context.Context) error {
	b.initiateShutdown()

	if ctx == nil {
		return b.gracefulShutdown()
	}

	done := make(chan struct{})
	go func() {
		b.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		logger.Warn(b.protocolName+" shutdown context cancelled",
			"active", b.ConnCount.Load(), logger.KeyError, ctx.Err())
		return ctx.Err()
	}
}

func (b *BaseAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(b.Config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.Shutdown:
			return
		case <-ticker.C:
			logger.Info(b.protocolName+" metrics", "active_connections", b.ConnCount.Load())
		}
	}
}

// GetActiveConnections returns the number of open connections.
func (b *BaseAdapter) GetActiveConnections() int32 {
	return b.ConnCount.Load()
}

// IsListening reports whether the listener is bound and not shut down.
func (b *BaseAdapter) IsListening() bool {
	select {
	case <-b.Shutdown:
		return false
	default:
	}
	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()
	return b.listener != nil
}

// GetListenerAddr blocks until Serve has bound the listener and returns its
// address, or "" if binding failed.
func (b *BaseAdapter) GetListenerAddr() string {
	<-b.ListenerReady

	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

func (b *BaseAdapter) Port() int {
	return b.Config.Port
}

func (b *BaseAdapter) Protocol() string {
	return b.protocolName
}
