package tdf

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"
)

// Option configures a Decoder or Encoder.
type Option func(*options)

type options struct {
	maxDepth int
}

// WithMaxDepth bounds the nesting of groups, lists, maps and unions.
// Values below 1 select DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		o.maxDepth = n
	}
}

func buildOptions(opts []Option) options {
	o := options{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxDepth < 1 {
		o.maxDepth = DefaultMaxDepth
	}
	return o
}

// ============================================================================
// Decoder
// ============================================================================

// Decoder reads labeled values from an in-memory payload.
type Decoder struct {
	r        *bytes.Reader
	size     int64
	maxDepth int
	depth    int
}

// NewDecoder returns a decoder positioned at the start of data.
func NewDecoder(data []byte, opts ...Option) *Decoder {
	o := buildOptions(opts)
	return &Decoder{
		r:        bytes.NewReader(data),
		size:     int64(len(data)),
		maxDepth: o.maxDepth,
	}
}

// More reports whether unread bytes remain.
func (d *Decoder) More() bool {
	return d.r.Len() > 0
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int64 {
	return d.size - int64(d.r.Len())
}

// Unmarshal decodes every labeled value in data. Any failure aborts the whole
// decode; no partial result is returned.
func Unmarshal(data []byte, opts ...Option) ([]Labeled, error) {
	d := NewDecoder(data, opts...)

	var fields []Labeled
	for d.More() {
		l, err := d.ReadLabeled()
		if err != nil {
			return nil, err
		}
		fields = append(fields, l)
	}
	return fields, nil
}

// ReadLabeled reads a 4-byte header (3-byte tag, 1-byte type) and the value
// body that follows it.
func (d *Decoder) ReadLabeled() (Labeled, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		return Labeled{}, truncated(err, "read value header")
	}

	label := DecodeLabel([3]byte{hdr[0], hdr[1], hdr[2]})
	v, err := d.ReadValue(Type(hdr[3]))
	if err != nil {
		return Labeled{}, withLabel(err, label)
	}
	return Labeled{Label: label, Value: v}, nil
}

// ReadValue reads the body of a value of type t.
//
// A type outside the known set fails with ErrUnknownType: its body length
// cannot be known, so nothing after it can be decoded reliably.
func (d *Decoder) ReadValue(t Type) (Value, error) {
	switch t {
	case TypeVarInt:
		v, err := ReadVarInt(d.r)
		return VarInt(v), err
	case TypeString:
		return d.readString()
	case TypeBlob:
		return d.readBlob()
	case TypeGroup:
		return d.readGroup()
	case TypeList:
		return d.readList()
	case TypeMap:
		return d.readMap()
	case TypeUnion:
		return d.readUnion()
	case TypeVarIntList:
		return d.readVarIntList()
	case TypePair:
		return d.readPair()
	case TypeTripple:
		return d.readTripple()
	case TypeFloat:
		return d.readFloat()
	default:
		return nil, NewError(ErrUnknownType, nil, "unknown value type 0x%02x", uint8(t))
	}
}

func (d *Decoder) enter() error {
	d.depth++
	if d.depth > d.maxDepth {
		return NewError(ErrLimitExceeded, nil, "nesting deeper than %d", d.maxDepth)
	}
	return nil
}

func (d *Decoder) leave() {
	d.depth--
}

// readCount reads a VarInt length or element count and checks that at least
// perItem*n bytes remain, so hostile counts never drive an allocation.
func (d *Decoder) readCount(what string, perItem int) (int, error) {
	n, err := ReadVarInt(d.r)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, NewError(ErrInvalidEncoding, nil, "negative %s %d", what, n)
	}
	if remaining := int64(d.r.Len()); n > remaining/int64(perItem) {
		return 0, NewError(ErrTruncated, nil, "%s %d exceeds remaining %d bytes", what, n, remaining)
	}
	return int(n), nil
}

func (d *Decoder) readType(what string) (Type, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, truncated(err, "read "+what)
	}
	t := Type(b)
	if !t.Known() {
		return 0, NewError(ErrUnknownType, nil, "unknown %s 0x%02x", what, b)
	}
	return t, nil
}

// ============================================================================
// Scalars
// ============================================================================

func (d *Decoder) readString() (Value, error) {
	n, err := d.readCount("string length", 1)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return String(""), nil
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, truncated(err, "read string")
	}

	if buf[n-1] != 0 {
		return nil, NewError(ErrInvalidEncoding, nil, "string missing NUL terminator")
	}
	text := buf[:n-1]
	if len(text) > 0 && text[len(text)-1] == 0 {
		return nil, NewError(ErrInvalidEncoding, nil, "string has more than one trailing NUL")
	}
	if !utf8.Valid(text) {
		return nil, NewError(ErrInvalidEncoding, nil, "string is not valid UTF-8")
	}
	return String(text), nil
}

func (d *Decoder) readBlob() (Value, error) {
	n, err := d.readCount("blob length", 1)
	if err != nil {
		return nil, err
	}

	buf := make(Blob, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, truncated(err, "read blob")
	}
	return buf, nil
}

func (d *Decoder) readFloat() (Value, error) {
	var b [4]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return nil, truncated(err, "read float")
	}
	return Float(math.Float32frombits(binary.BigEndian.Uint32(b[:]))), nil
}

func (d *Decoder) readPair() (Value, error) {
	a, err := ReadVarInt(d.r)
	if err != nil {
		return nil, err
	}
	b, err := ReadVarInt(d.r)
	if err != nil {
		return nil, err
	}
	return Pair{A: a, B: b}, nil
}

func (d *Decoder) readTripple() (Value, error) {
	var v [3]int64
	for i := range v {
		n, err := ReadVarInt(d.r)
		if err != nil {
			return nil, err
		}
		v[i] = n
	}
	return Tripple{A: v[0], B: v[1], C: v[2]}, nil
}

func (d *Decoder) readVarIntList() (Value, error) {
	n, err := d.readCount("varint list count", 1)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return VarIntList(nil), nil
	}

	list := make(VarIntList, n)
	for i := range list {
		if list[i], err = ReadVarInt(d.r); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// ============================================================================
// Composites
// ============================================================================

func (d *Decoder) readGroup() (Value, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	var g Group
	first := true
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, truncated(err, "read group")
		}

		switch {
		case b == groupTerminator:
			return g, nil
		case b == groupStartMarker && first:
			g.Start = true
		default:
			_ = d.r.UnreadByte()
			l, err := d.ReadLabeled()
			if err != nil {
				return nil, err
			}
			g.Fields = append(g.Fields, l)
		}
		first = false
	}
}

func (d *Decoder) readList() (Value, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	elem, err := d.readType("list element type")
	if err != nil {
		return nil, err
	}
	n, err := d.readCount("list count", 1)
	if err != nil {
		return nil, err
	}

	l := List{ElemType: elem}
	if n == 0 {
		return l, nil
	}

	l.Values = make([]Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.ReadValue(elem)
		if err != nil {
			return nil, err
		}
		l.Values = append(l.Values, v)
	}
	return l, nil
}

func (d *Decoder) readMap() (Value, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	kt, err := d.readType("map key type")
	if err != nil {
		return nil, err
	}
	vt, err := d.readType("map value type")
	if err != nil {
		return nil, err
	}
	n, err := d.readCount("map count", 2)
	if err != nil {
		return nil, err
	}

	m := Map{KeyType: kt, ValueType: vt}
	if n == 0 {
		return m, nil
	}

	m.Keys = make([]Value, 0, n)
	m.Values = make([]Value, 0, n)
	for i := 0; i < n; i++ {
		k, err := d.ReadValue(kt)
		if err != nil {
			return nil, err
		}
		v, err := d.ReadValue(vt)
		if err != nil {
			return nil, err
		}
		m.Keys = append(m.Keys, k)
		m.Values = append(m.Values, v)
	}
	return m, nil
}

func (d *Decoder) readUnion() (Value, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	disc, err := d.r.ReadByte()
	if err != nil {
		return nil, truncated(err, "read union discriminant")
	}

	u := Union{Discriminant: disc}
	if disc == UnionUnset {
		return u, nil
	}

	l, err := d.ReadLabeled()
	if err != nil {
		return nil, err
	}
	u.Value = &l
	return u, nil
}
