package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jacobtread/rme3/internal/logger"
)

// Server is the control API HTTP server.
type Server struct {
	server       *http.Server
	config       APIConfig
	ready        chan struct{}
	addr         string
	shutdownOnce sync.Once
}

// NewServer creates a stopped server. blaze may be nil.
func NewServer(config APIConfig, blaze BlazeServer) *Server {
	config.ApplyDefaults()

	return &Server{
		server: &http.Server{
			Addr:         net.JoinHostPort(config.BindAddress, strconv.Itoa(config.Port)),
			Handler:      NewRouter(blaze),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		config: config,
		ready:  make(chan struct{}),
	}
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		close(s.ready)
		return fmt.Errorf("API server listen on %s: %w", s.server.Addr, err)
	}
	s.addr = ln.Addr().String()
	close(s.ready)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", logger.KeyListenAddr, s.addr)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop shuts the server down. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", logger.KeyError, err)
			return
		}
		logger.Info("API server stopped gracefully")
	})
	return shutdownErr
}

// Addr blocks until Start has bound the listener and returns its address,
// or "" if binding failed.
func (s *Server) Addr() string {
	<-s.ready
	return s.addr
}

func (s *Server) Port() int {
	return s.config.Port
}
