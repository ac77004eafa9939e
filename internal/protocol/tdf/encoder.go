package tdf

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"unicode/utf8"
)

// ============================================================================
// Encoder
// ============================================================================

// Encoder writes labeled values to a buffer. Output is deterministic: the same
// values always produce the same bytes, and every value produced by a Decoder
// re-encodes to the exact bytes it was decoded from.
type Encoder struct {
	buf      *bytes.Buffer
	scratch  [MaxVarIntLen]byte
	maxDepth int
	depth    int
}

// NewEncoder returns an encoder appending to buf.
func NewEncoder(buf *bytes.Buffer, opts ...Option) *Encoder {
	o := buildOptions(opts)
	return &Encoder{buf: buf, maxDepth: o.maxDepth}
}

// Marshal encodes fields back to back, the layout of a packet's content.
func Marshal(fields []Labeled, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	e := NewEncoder(&buf, opts...)
	for _, f := range fields {
		if err := e.WriteLabeled(f); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// WriteLabeled writes the packed tag, the type byte and the value body.
func (e *Encoder) WriteLabeled(l Labeled) error {
	if l.Value == nil {
		return NewError(ErrStructural, nil, "labeled value %q has no value", l.Label)
	}

	tag, err := EncodeLabel(l.Label)
	if err != nil {
		return err
	}

	t := l.Value.Type()
	if !t.Known() {
		return withLabel(NewError(ErrUnknownType, nil, "cannot encode type 0x%02x", uint8(t)), l.Label)
	}

	e.buf.Write(tag[:])
	e.buf.WriteByte(byte(t))

	if err := e.WriteValue(l.Value); err != nil {
		return withLabel(err, l.Label)
	}
	return nil
}

// WriteValue writes the body of v without a header, as used for list
// elements and map entries.
func (e *Encoder) WriteValue(v Value) error {
	switch v := v.(type) {
	case VarInt:
		e.writeVarInt(int64(v))
	case Float:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(float32(v)))
		e.buf.Write(b[:])
	case String:
		return e.writeString(string(v))
	case Blob:
		e.writeVarInt(int64(len(v)))
		e.buf.Write(v)
	case Group:
		return e.writeGroup(v)
	case List:
		return e.writeList(v)
	case Map:
		return e.writeMap(v)
	case Union:
		return e.writeUnion(v)
	case VarIntList:
		e.writeVarInt(int64(len(v)))
		for _, n := range v {
			e.writeVarInt(n)
		}
	case Pair:
		e.writeVarInt(v.A)
		e.writeVarInt(v.B)
	case Tripple:
		e.writeVarInt(v.A)
		e.writeVarInt(v.B)
		e.writeVarInt(v.C)
	case Unknown:
		return NewError(ErrUnknownType, nil, "cannot encode type 0x%02x", uint8(v.Raw))
	case nil:
		return NewError(ErrStructural, nil, "nil value")
	default:
		return NewError(ErrStructural, nil, "unsupported value %T", v)
	}
	return nil
}

func (e *Encoder) writeVarInt(v int64) {
	e.buf.Write(AppendVarInt(e.scratch[:0], v))
}

// writeString emits the text followed by exactly one NUL. Trailing NULs in
// the text are treated as terminators and collapsed into that one.
func (e *Encoder) writeString(s string) error {
	s = strings.TrimRight(s, "\x00")
	if !utf8.ValidString(s) {
		return NewError(ErrInvalidEncoding, nil, "string is not valid UTF-8")
	}
	e.writeVarInt(int64(len(s) + 1))
	e.buf.WriteString(s)
	e.buf.WriteByte(0)
	return nil
}

func (e *Encoder) enter() error {
	e.depth++
	if e.depth > e.maxDepth {
		return NewError(ErrLimitExceeded, nil, "nesting deeper than %d", e.maxDepth)
	}
	return nil
}

func (e *Encoder) leave() {
	e.depth--
}

func (e *Encoder) writeGroup(g Group) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	if g.Start {
		e.buf.WriteByte(groupStartMarker)
	}
	for i, f := range g.Fields {
		// A child tag must not read back as the terminator or the start marker.
		if tag, err := EncodeLabel(f.Label); err == nil {
			if tag[0] == groupTerminator || (i == 0 && !g.Start && tag[0] == groupStartMarker) {
				return NewError(ErrStructural, nil, "label %q is ambiguous inside a group", f.Label)
			}
		}
		if err := e.WriteLabeled(f); err != nil {
			return err
		}
	}
	e.buf.WriteByte(groupTerminator)
	return nil
}

func (e *Encoder) writeList(l List) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	if !l.ElemType.Known() {
		return NewError(ErrUnknownType, nil, "unknown list element type 0x%02x", uint8(l.ElemType))
	}

	e.buf.WriteByte(byte(l.ElemType))
	e.writeVarInt(int64(len(l.Values)))
	for i, v := range l.Values {
		if err := checkElem(v, l.ElemType, "list element", i); err != nil {
			return err
		}
		if err := e.WriteValue(v); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeMap(m Map) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	if !m.KeyType.Known() || !m.ValueType.Known() {
		return NewError(ErrUnknownType, nil, "unknown map types 0x%02x/0x%02x", uint8(m.KeyType), uint8(m.ValueType))
	}
	if len(m.Keys) != len(m.Values) {
		return NewError(ErrStructural, nil, "map has %d keys but %d values", len(m.Keys), len(m.Values))
	}

	e.buf.WriteByte(byte(m.KeyType))
	e.buf.WriteByte(byte(m.ValueType))
	e.writeVarInt(int64(len(m.Keys)))
	for i := range m.Keys {
		if err := checkElem(m.Keys[i], m.KeyType, "map key", i); err != nil {
			return err
		}
		if err := checkElem(m.Values[i], m.ValueType, "map value", i); err != nil {
			return err
		}
		if err := e.WriteValue(m.Keys[i]); err != nil {
			return err
		}
		if err := e.WriteValue(m.Values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeUnion(u Union) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	switch {
	case u.Discriminant == UnionUnset && u.Value != nil:
		return NewError(ErrStructural, nil, "unset union carries a value")
	case u.Discriminant != UnionUnset && u.Value == nil:
		return NewError(ErrStructural, nil, "union discriminant 0x%02x without a value", u.Discriminant)
	}

	e.buf.WriteByte(u.Discriminant)
	if u.Value == nil {
		return nil
	}
	return e.WriteLabeled(*u.Value)
}

func checkElem(v Value, want Type, what string, i int) error {
	if v == nil {
		return NewError(ErrStructural, nil, "%s %d is nil", what, i)
	}
	if got := v.Type(); got != want {
		return NewError(ErrStructural, nil, "%s %d is %s, want %s", what, i, got, want)
	}
	return nil
}
