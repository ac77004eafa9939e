// Package blaze serves Blaze clients over TCP: it frames packets, decodes
// their TDF content and hands them to a Handler.
package blaze

import (
	"context"
	"fmt"
	"net"

	"github.com/jacobtread/rme3/internal/logger"
	"github.com/jacobtread/rme3/internal/protocol/tdf"
	"github.com/jacobtread/rme3/pkg/adapter"
	"github.com/jacobtread/rme3/pkg/metrics"
)

// Adapter implements adapter.Adapter for the Blaze protocol.
//
// Adapter embeds BaseAdapter for the listener, connection tracking and
// shutdown. The Blaze-specific parts are the per-connection serve loop,
// the session registry and the packet Handler.
type Adapter struct {
	*adapter.BaseAdapter

	config   Config
	handler  Handler
	sessions *SessionRegistry
	metrics  metrics.BlazeMetrics
	decode   []tdf.Option
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHandler sets the packet handler. Without one, packets are decoded,
// logged and dropped.
func WithHandler(h Handler) Option {
	return func(a *Adapter) { a.handler = h }
}

// WithMetrics sets the metrics sink. nil disables metrics.
func WithMetrics(m metrics.BlazeMetrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// New creates a stopped adapter. Zero config values take defaults.
func New(config Config, opts ...Option) (*Adapter, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid blaze config: %w", err)
	}

	base := adapter.NewBaseAdapter(adapter.BaseConfig{
		BindAddress:        config.BindAddress,
		Port:               config.Port,
		MaxConnections:     config.MaxConnections,
		ShutdownTimeout:    config.ShutdownTimeout,
		MetricsLogInterval: config.MetricsLogInterval,
	}, "Blaze")

	a := &Adapter{
		BaseAdapter: base,
		config:      config,
		handler:     discardHandler{},
		sessions:    NewSessionRegistry(),
		decode:      []tdf.Option{tdf.WithMaxDepth(config.MaxDepth)},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics != nil {
		a.BaseAdapter.Metrics = a.metrics
	}

	logger.Debug("Blaze adapter configured",
		logger.KeyListenAddr, config.BindAddress,
		"port", config.Port,
		logger.KeyMaxLength, config.MaxPacketSize.String(),
		"max_depth", config.MaxDepth,
		"read_timeout", config.Timeouts.Read,
		"idle_timeout", config.Timeouts.Idle)

	return a, nil
}

// Serve runs the server until ctx is cancelled.
func (a *Adapter) Serve(ctx context.Context) error {
	return a.ServeWithFactory(ctx, a, a.onConnectionClose)
}

// NewConnection implements adapter.ConnectionFactory.
func (a *Adapter) NewConnection(conn net.Conn) adapter.ConnectionHandler {
	return NewConnection(a, conn)
}

func (a *Adapter) onConnectionClose(addr string) {
	if s, ok := a.sessions.CloseAddr(addr); ok {
		info := s.Info()
		logger.Info("Blaze session ended",
			logger.KeySessionID, info.ID,
			logger.KeyClientAddr, addr,
			"packets_in", info.PacketsIn,
			"packets_out", info.PacketsOut)
	}
}

// Sessions returns snapshots of the live sessions.
func (a *Adapter) Sessions() []SessionInfo {
	return a.sessions.List()
}

// Ready reports whether the listener is accepting connections.
func (a *Adapter) Ready() bool {
	return a.IsListening()
}

// Settings returns the effective configuration.
func (a *Adapter) Settings() Config {
	return a.config
}

var _ adapter.Adapter = (*Adapter)(nil)
