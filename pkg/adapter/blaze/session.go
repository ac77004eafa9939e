package blaze

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is the server-side state of one client connection.
type Session struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time

	packetsIn    atomic.Uint64
	packetsOut   atomic.Uint64
	bytesIn      atomic.Uint64
	bytesOut     atomic.Uint64
	decodeErrors atomic.Uint64
	lastPacketAt atomic.Int64
}

func newSession(remoteAddr string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
	}
}

func (s *Session) recordIn(contentBytes int) {
	s.packetsIn.Add(1)
	s.bytesIn.Add(uint64(contentBytes))
	s.lastPacketAt.Store(time.Now().UnixNano())
}

func (s *Session) recordOut(n int) {
	s.packetsOut.Add(1)
	s.bytesOut.Add(uint64(n))
}

// SessionInfo is a point-in-time copy of a session's counters.
type SessionInfo struct {
	ID           string     `json:"id" yaml:"id"`
	RemoteAddr   string     `json:"remote_addr" yaml:"remote_addr"`
	ConnectedAt  time.Time  `json:"connected_at" yaml:"connected_at"`
	LastPacketAt *time.Time `json:"last_packet_at,omitempty" yaml:"last_packet_at,omitempty"`
	PacketsIn    uint64     `json:"packets_in" yaml:"packets_in"`
	PacketsOut   uint64     `json:"packets_out" yaml:"packets_out"`
	BytesIn      uint64     `json:"bytes_in" yaml:"bytes_in"`
	BytesOut     uint64     `json:"bytes_out" yaml:"bytes_out"`
	DecodeErrors uint64     `json:"decode_errors" yaml:"decode_errors"`
}

// Info snapshots the session.
func (s *Session) Info() SessionInfo {
	info := SessionInfo{
		ID:           s.ID,
		RemoteAddr:   s.RemoteAddr,
		ConnectedAt:  s.ConnectedAt,
		PacketsIn:    s.packetsIn.Load(),
		PacketsOut:   s.packetsOut.Load(),
		BytesIn:      s.bytesIn.Load(),
		BytesOut:     s.bytesOut.Load(),
		DecodeErrors: s.decodeErrors.Load(),
	}
	if ns := s.lastPacketAt.Load(); ns != 0 {
		t := time.Unix(0, ns)
		info.LastPacketAt = &t
	}
	return info
}

// SessionRegistry tracks live sessions by ID and by remote address.
type SessionRegistry struct {
	mu     sync.RWMutex
	byID   map[string]*Session
	byAddr map[string]*Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byID:   make(map[string]*Session),
		byAddr: make(map[string]*Session),
	}
}

// Open creates and registers a session for remoteAddr.
func (r *SessionRegistry) Open(remoteAddr string) *Session {
	s := newSession(remoteAddr)

	r.mu.Lock()
	r.byID[s.ID] = s
	r.byAddr[remoteAddr] = s
	r.mu.Unlock()
	return s
}

// CloseAddr removes the session bound to remoteAddr, if any.
func (r *SessionRegistry) CloseAddr(remoteAddr string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byAddr[remoteAddr]
	if !ok {
		return nil, false
	}
	delete(r.byAddr, remoteAddr)
	delete(r.byID, s.ID)
	return s, true
}

func (r *SessionRegistry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// List returns snapshots of all sessions, oldest first.
func (r *SessionRegistry) List() []SessionInfo {
	r.mu.RLock()
	out := make([]SessionInfo, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s.Info())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}
