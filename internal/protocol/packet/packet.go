// Package packet implements Blaze packet framing.
//
// Every packet starts with six big-endian uint16 fields:
//
//	length | component | command | error | qtype | id
//
// When qtype has the extended-length bit (0x10) set, a seventh uint16
// follows and supplies bits 16..31 of the content length. The content that
// follows the header is a sequence of TDF labeled values.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/jacobtread/rme3/internal/protocol/tdf"
	"github.com/jacobtread/rme3/pkg/bufpool"
)

const (
	// HeaderSize is the size of the fixed header.
	HeaderSize = 12

	// ExtendedHeaderSize is the header size when the length extension is present.
	ExtendedHeaderSize = HeaderSize + 2

	// QTypeExtendedLength marks a header carrying the length extension word.
	QTypeExtendedLength uint16 = 0x10

	// MaxContentLength is the largest length the header can describe.
	MaxContentLength = 0xFFFF + 0xFFFF<<16
)

// Message kinds, carried in the top nibble of qtype.
const (
	QTypeMessage    uint16 = 0x0000
	QTypeReply      uint16 = 0x1000
	QTypeNotify     uint16 = 0x2000
	QTypeErrorReply uint16 = 0x3000

	qtypeKindMask uint16 = 0xF000
)

// Header is the decoded fixed part of a packet.
type Header struct {
	ContentLength uint32
	Component     uint16
	Command       uint16
	Error         uint16
	QType         uint16
	ID            uint16
}

// Extended reports whether the header carries the length extension word.
func (h Header) Extended() bool {
	return h.QType&QTypeExtendedLength != 0
}

// Packet is one framed unit: a header plus its TDF content.
type Packet struct {
	Component uint16
	Command   uint16
	Error     uint16
	QType     uint16
	ID        uint16
	Content   []byte

	pooled bool
}

// New builds a packet whose content is the encoding of fields.
func New(component, command, id uint16, fields ...tdf.Labeled) (*Packet, error) {
	content, err := tdf.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return &Packet{
		Component: component,
		Command:   command,
		ID:        id,
		Content:   content,
	}, nil
}

// Header returns the header that Write emits for p.
func (p *Packet) Header() Header {
	h := Header{
		ContentLength: uint32(len(p.Content)),
		Component:     p.Component,
		Command:       p.Command,
		Error:         p.Error,
		QType:         p.QType,
		ID:            p.ID,
	}
	if len(p.Content) > 0xFFFF {
		h.QType |= QTypeExtendedLength
	}
	return h
}

// Kind returns the message kind bits of qtype.
func (p *Packet) Kind() uint16 {
	return p.QType & qtypeKindMask
}

// Reply builds the response to request p carrying fields.
func (p *Packet) Reply(fields ...tdf.Labeled) (*Packet, error) {
	r, err := New(p.Component, p.Command, p.ID, fields...)
	if err != nil {
		return nil, err
	}
	r.QType = QTypeReply
	return r, nil
}

// ErrorReply builds an error response to request p with an empty body.
func (p *Packet) ErrorReply(code uint16) *Packet {
	return &Packet{
		Component: p.Component,
		Command:   p.Command,
		Error:     code,
		QType:     QTypeErrorReply,
		ID:        p.ID,
	}
}

// Decode parses the content into labeled values. The whole content must
// decode; there is no partial result.
func (p *Packet) Decode(opts ...tdf.Option) ([]tdf.Labeled, error) {
	return tdf.Unmarshal(p.Content, opts...)
}

// Release hands pooled content back to the buffer pool. The packet must not
// be used afterwards.
func (p *Packet) Release() {
	if p.pooled {
		bufpool.Put(p.Content)
		p.pooled = false
	}
	p.Content = nil
}

func (p *Packet) String() string {
	return fmt.Sprintf("packet(component=0x%04x command=0x%04x error=0x%04x qtype=0x%04x id=%d len=%d)",
		p.Component, p.Command, p.Error, p.QType, p.ID, len(p.Content))
}

// ============================================================================
// Reading
// ============================================================================

// ReadHeader reads a packet header.
//
// A clean end of stream before the first header byte returns io.EOF
// unwrapped, so callers can tell a normal disconnect from a broken frame.
// Any later shortfall is a tdf.ErrTruncated error.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Header{}, io.EOF
		}
		return Header{}, shortRead(err, "read header")
	}

	h := Header{
		ContentLength: uint32(binary.BigEndian.Uint16(buf[0:2])),
		Component:     binary.BigEndian.Uint16(buf[2:4]),
		Command:       binary.BigEndian.Uint16(buf[4:6]),
		Error:         binary.BigEndian.Uint16(buf[6:8]),
		QType:         binary.BigEndian.Uint16(buf[8:10]),
		ID:            binary.BigEndian.Uint16(buf[10:12]),
	}

	if h.Extended() {
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Header{}, shortRead(err, "read length extension")
		}
		h.ContentLength += uint32(binary.BigEndian.Uint16(ext[:])) << 16
	}

	return h, nil
}

// ValidateContentLength rejects headers whose content would exceed max
// bytes. A max of 0 disables the check.
func ValidateContentLength(h Header, max uint32) error {
	if max > 0 && h.ContentLength > max {
		return tdf.NewError(tdf.ErrLimitExceeded, nil,
			"content length %d exceeds maximum %d", h.ContentLength, max)
	}
	return nil
}

// Read reads one packet, allocating its content directly.
func Read(r io.Reader, maxContent uint32) (*Packet, error) {
	return read(r, maxContent, false, nil)
}

func read(r io.Reader, maxContent uint32, pooled bool, onHeader func(Header) error) (*Packet, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if err := ValidateContentLength(h, maxContent); err != nil {
		return nil, err
	}
	if onHeader != nil {
		if err := onHeader(h); err != nil {
			return nil, err
		}
	}

	var content []byte
	if pooled {
		content = bufpool.GetUint32(h.ContentLength)
	} else {
		content = make([]byte, h.ContentLength)
	}

	if _, err := io.ReadFull(r, content); err != nil {
		if pooled {
			bufpool.Put(content)
		}
		return nil, shortRead(err, "read content")
	}

	return &Packet{
		Component: h.Component,
		Command:   h.Command,
		Error:     h.Error,
		QType:     h.QType,
		ID:        h.ID,
		Content:   content,
		pooled:    pooled,
	}, nil
}

// Reader reads packets from a stream using pooled content buffers. Callers
// release each packet once they have finished with it.
type Reader struct {
	r          io.Reader
	maxContent uint32

	// OnHeader, when set, runs after a header is read and validated and
	// before any content byte is read. An error aborts the packet.
	OnHeader func(Header) error
}

// NewReader returns a Reader enforcing maxContent (0 for no limit).
func NewReader(r io.Reader, maxContent uint32) *Reader {
	return &Reader{r: r, maxContent: maxContent}
}

// ReadPacket reads the next packet.
func (pr *Reader) ReadPacket() (*Packet, error) {
	return read(pr.r, pr.maxContent, true, pr.OnHeader)
}

// shortRead converts end-of-stream inside a frame to ErrTruncated.
func shortRead(err error, op string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return tdf.NewError(tdf.ErrTruncated, io.ErrUnexpectedEOF, "%s", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ============================================================================
// Writing
// ============================================================================

// AppendHeader appends the encoded header of p to dst.
func AppendHeader(dst []byte, p *Packet) []byte {
	h := p.Header()
	dst = binary.BigEndian.AppendUint16(dst, uint16(h.ContentLength))
	dst = binary.BigEndian.AppendUint16(dst, h.Component)
	dst = binary.BigEndian.AppendUint16(dst, h.Command)
	dst = binary.BigEndian.AppendUint16(dst, h.Error)
	dst = binary.BigEndian.AppendUint16(dst, h.QType)
	dst = binary.BigEndian.AppendUint16(dst, h.ID)
	if h.Extended() {
		dst = binary.BigEndian.AppendUint16(dst, uint16(h.ContentLength>>16))
	}
	return dst
}

// Encode returns the full wire form of p.
func (p *Packet) Encode() ([]byte, error) {
	if uint64(len(p.Content)) > MaxContentLength {
		return nil, tdf.NewError(tdf.ErrLimitExceeded, nil, "content length %d exceeds maximum %d", len(p.Content), uint64(MaxContentLength))
	}
	out := make([]byte, 0, ExtendedHeaderSize+len(p.Content))
	out = AppendHeader(out, p)
	return append(out, p.Content...), nil
}

// Write writes p to w in a single call.
func Write(w io.Writer, p *Packet) error {
	data, err := p.Encode()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}
