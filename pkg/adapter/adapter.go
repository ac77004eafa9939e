// Package adapter holds the TCP lifecycle shared by protocol servers.
package adapter

import "context"

// Adapter is a protocol server managed by the rme3 process.
//
// Lifecycle:
//  1. Creation with protocol-specific configuration
//  2. Serve() starts listening and blocks until shutdown
//  3. Stop() initiates graceful shutdown bounded by its context
//
// Stop may be called concurrently with Serve and more than once.
type Adapter interface {
	// Serve starts the protocol server and blocks until ctx is cancelled
	// or the listener fails. It returns nil after a graceful shutdown.
	Serve(ctx context.Context) error

	// Stop initiates shutdown and waits for active connections until ctx
	// expires.
	Stop(ctx context.Context) error

	// Protocol returns the protocol name used in logs and metrics.
	Protocol() string

	// Port returns the configured TCP port.
	Port() int
}
