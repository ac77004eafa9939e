// Package bufpool provides tiered, reusable byte slices for packet content.
//
// Most Blaze packets are a few hundred bytes of TDF, a minority carry larger
// blobs or long lists. Three tiers cover that spread:
//   - Small (default 1KB): login, ping and most request/response content
//   - Medium (default 16KB): lists of groups, settings maps
//   - Large (default 256KB): bulk blobs
//
// Requests above the large tier are allocated directly and never pooled, so
// one oversized packet does not pin a large buffer for the process lifetime.
//
// All operations are safe for concurrent use.
//
//	buf := bufpool.Get(size)
//	defer bufpool.Put(buf)
package bufpool

import (
	"sync"
	"sync/atomic"
)

const (
	DefaultSmallSize  = 1 << 10
	DefaultMediumSize = 16 << 10
	DefaultLargeSize  = 256 << 10
)

// Config holds the tier sizes of a Pool. Zero values select the defaults.
type Config struct {
	SmallSize  int
	MediumSize int
	LargeSize  int
}

// DefaultConfig returns the default tier sizes.
func DefaultConfig() Config {
	return Config{
		SmallSize:  DefaultSmallSize,
		MediumSize: DefaultMediumSize,
		LargeSize:  DefaultLargeSize,
	}
}

// Stats is a snapshot of pool usage.
type Stats struct {
	// Pooled counts Get calls served from a tier.
	Pooled uint64
	// Direct counts Get calls that exceeded the large tier.
	Direct uint64
}

// Pool is a set of byte slice pools organised by size tier.
type Pool struct {
	tiers [3]tier

	pooled atomic.Uint64
	direct atomic.Uint64
}

type tier struct {
	size int
	pool sync.Pool
}

// NewPool creates a pool. A nil config uses DefaultConfig.
func NewPool(cfg *Config) *Pool {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.SmallSize > 0 {
			c.SmallSize = cfg.SmallSize
		}
		if cfg.MediumSize > 0 {
			c.MediumSize = cfg.MediumSize
		}
		if cfg.LargeSize > 0 {
			c.LargeSize = cfg.LargeSize
		}
	}

	p := &Pool{}
	for i, size := range []int{c.SmallSize, c.MediumSize, c.LargeSize} {
		t := &p.tiers[i]
		t.size = size
		t.pool.New = func() any {
			buf := make([]byte, t.size)
			return &buf
		}
	}
	return p
}

// Get returns a slice of length size. Its capacity is the tier size, or size
// itself when no tier is large enough.
//
// Callers must hand the slice back with Put once they no longer reference it.
func (p *Pool) Get(size int) []byte {
	for i := range p.tiers {
		t := &p.tiers[i]
		if size <= t.size {
			p.pooled.Add(1)
			buf := *t.pool.Get().(*[]byte)
			return buf[:size]
		}
	}

	p.direct.Add(1)
	return make([]byte, size)
}

// Put returns buf to the tier matching its capacity. Slices that do not
// match a tier exactly are left to the garbage collector.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}

	for i := range p.tiers {
		t := &p.tiers[i]
		if cap(buf) == t.size {
			full := buf[:cap(buf)]
			t.pool.Put(&full)
			return
		}
	}
}

// Stats returns usage counters since the pool was created.
func (p *Pool) Stats() Stats {
	return Stats{
		Pooled: p.pooled.Load(),
		Direct: p.direct.Load(),
	}
}

// =============================================================================
// Global Pool
// =============================================================================

var globalPool = NewPool(nil)

// Get returns a slice of length size from the global pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns a slice to the global pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}

// GetUint32 is Get for protocols that carry sizes as uint32.
func GetUint32(size uint32) []byte {
	return globalPool.Get(int(size))
}

// GlobalStats returns the usage counters of the global pool.
func GlobalStats() Stats {
	return globalPool.Stats()
}
