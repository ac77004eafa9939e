package blaze

import (
	"context"

	"github.com/jacobtread/rme3/internal/protocol/packet"
	"github.com/jacobtread/rme3/internal/protocol/tdf"
)

// Handler processes decoded packets for a session.
//
// The returned packet, if non-nil, is written back to the client. Returning
// an adapter.ProtocolError sends an error reply carrying its code and keeps
// the connection open; any other error closes the connection.
//
// The request packet and its content are only valid for the duration of
// the call.
type Handler interface {
	HandlePacket(ctx context.Context, s *Session, req *packet.Packet, fields []tdf.Labeled) (*packet.Packet, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, s *Session, req *packet.Packet, fields []tdf.Labeled) (*packet.Packet, error)

func (f HandlerFunc) HandlePacket(ctx context.Context, s *Session, req *packet.Packet, fields []tdf.Labeled) (*packet.Packet, error) {
	return f(ctx, s, req, fields)
}

// discardHandler accepts every packet without replying.
type discardHandler struct{}

func (discardHandler) HandlePacket(context.Context, *Session, *packet.Packet, []tdf.Labeled) (*packet.Packet, error) {
	return nil, nil
}
