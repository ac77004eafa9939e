package apiclient

import (
	"context"
	"time"
)

// Session is one connected Blaze client as reported by the server.
type Session struct {
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

type sessionList struct {
	Count    int       `json:"count"`
	Sessions []Session `json:"sessions"`
}

// ListSessions returns every live session.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	list, err := getResource[sessionList](ctx, c, "/api/v1/sessions")
	if err != nil {
		return nil, err
	}
	return list.Sessions, nil
}

// GetSession returns one session by ID.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	return getResource[Session](ctx, c, resourcePath("/api/v1/sessions/%s", id))
}
