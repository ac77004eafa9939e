package blaze

import (
	"fmt"
	"time"

	"github.com/jacobtread/rme3/internal/bytesize"
	"github.com/jacobtread/rme3/internal/protocol/packet"
	"github.com/jacobtread/rme3/internal/protocol/tdf"
)

// Defaults applied to zero-valued fields.
const (
	DefaultBindAddress   = "127.0.0.1"
	DefaultPort          = 14219
	DefaultMaxPacketSize = 4 * bytesize.MiB
	DefaultReadTimeout   = 5 * time.Minute
	DefaultWriteTimeout  = 30 * time.Second
	DefaultIdleTimeout   = 5 * time.Minute
)

// TimeoutsConfig groups the per-connection deadlines.
type TimeoutsConfig struct {
	// Read bounds how long the content of a packet may take to arrive once
	// its header has been read. 0 disables the limit.
	Read time.Duration `mapstructure:"read" yaml:"read" validate:"min=0"`

	// Write bounds a single reply write.
	Write time.Duration `mapstructure:"write" yaml:"write" validate:"min=0"`

	// Idle closes connections that send no packet header for this long.
	Idle time.Duration `mapstructure:"idle" yaml:"idle" validate:"min=0"`
}

// Config holds the Blaze server settings.
//
// Default values (applied by New if zero):
//   - BindAddress: 127.0.0.1
//   - Port: 14219
//   - MaxPacketSize: 4MiB
//   - MaxDepth: 64
//   - Timeouts.Read: 5m, Timeouts.Write: 30s, Timeouts.Idle: 5m
type Config struct {
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`
	Port        int    `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`

	// MaxConnections limits concurrent clients. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`

	// MaxPacketSize bounds the content length a header may declare. The
	// limit is checked before the content buffer is allocated.
	MaxPacketSize bytesize.ByteSize `mapstructure:"max_packet_size" yaml:"max_packet_size"`

	// MaxDepth bounds nesting of groups, lists, maps and unions.
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth" validate:"min=0"`

	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`

	// MetricsLogInterval enables a periodic connection count log line.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" yaml:"metrics_log_interval" validate:"min=0"`

	// ShutdownTimeout is taken from the top-level shutdown_timeout.
	ShutdownTimeout time.Duration `mapstructure:"-" yaml:"-"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.BindAddress == "" {
		c.BindAddress = DefaultBindAddress
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.MaxPacketSize == 0 {
		c.MaxPacketSize = DefaultMaxPacketSize
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = tdf.DefaultMaxDepth
	}
	if c.Timeouts.Read == 0 {
		c.Timeouts.Read = DefaultReadTimeout
	}
	if c.Timeouts.Write == 0 {
		c.Timeouts.Write = DefaultWriteTimeout
	}
	if c.Timeouts.Idle == 0 {
		c.Timeouts.Idle = DefaultIdleTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// Validate checks invariants the struct tags cannot express.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid max_connections %d: must be >= 0", c.MaxConnections)
	}
	if c.MaxPacketSize.Uint64() > packet.MaxContentLength {
		return fmt.Errorf("max_packet_size %s exceeds the largest encodable packet", c.MaxPacketSize)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("invalid max_depth %d: must be >= 0", c.MaxDepth)
	}
	if c.Timeouts.Read < 0 || c.Timeouts.Write < 0 || c.Timeouts.Idle < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}
