package tdf

// Value is a TDF value. The set of implementations is closed: VarInt, Float,
// String, Blob, Group, List, Map, Union, VarIntList, Pair, Tripple and Unknown.
type Value interface {
	// Type returns the wire type of the value.
	Type() Type

	isValue()
}

// Labeled is a value together with its label. On the wire only the packed
// tag exists; the label is its readable form.
type Labeled struct {
	Label string
	Value Value
}

// Field is shorthand for constructing a Labeled value.
func Field(label string, v Value) Labeled {
	return Labeled{Label: label, Value: v}
}

// Type returns the wire type of the labeled value. A nil value reports
// an unknown type.
func (l Labeled) Type() Type {
	if l.Value == nil {
		return Type(0xFF)
	}
	return l.Value.Type()
}

// VarInt is a variable-length signed integer.
type VarInt int64

// Float is an IEEE-754 single precision number.
type Float float32

// String is UTF-8 text. The wire terminator is not part of the value.
type String string

// Blob is an opaque byte sequence.
type Blob []byte

// Group is an ordered, heterogeneous collection of labeled values.
// Start records whether the optional 0x02 marker preceded the fields.
type Group struct {
	Start  bool
	Fields []Labeled
}

// List is a homogeneous sequence of unlabeled values of ElemType.
type List struct {
	ElemType Type
	Values   []Value
}

// Map stores keys and values as parallel sequences of equal length.
type Map struct {
	KeyType   Type
	ValueType Type
	Keys      []Value
	Values    []Value
}

// Union is a discriminated optional value. Value must be nil exactly when
// Discriminant is UnionUnset.
type Union struct {
	Discriminant uint8
	Value        *Labeled
}

// VarIntList is a sequence of VarInts.
type VarIntList []int64

// Pair is two VarInts.
type Pair struct {
	A, B int64
}

// Tripple is three VarInts.
type Tripple struct {
	A, B, C int64
}

// Unknown stands for a value whose type byte is not part of the tag set.
// It carries no payload and cannot be encoded.
type Unknown struct {
	Raw Type
}

func (VarInt) Type() Type     { return TypeVarInt }
func (Float) Type() Type      { return TypeFloat }
func (String) Type() Type     { return TypeString }
func (Blob) Type() Type       { return TypeBlob }
func (Group) Type() Type      { return TypeGroup }
func (List) Type() Type       { return TypeList }
func (Map) Type() Type        { return TypeMap }
func (Union) Type() Type      { return TypeUnion }
func (VarIntList) Type() Type { return TypeVarIntList }
func (Pair) Type() Type       { return TypePair }
func (Tripple) Type() Type    { return TypeTripple }
func (u Unknown) Type() Type  { return u.Raw }

func (VarInt) isValue()     {}
func (Float) isValue()      {}
func (String) isValue()     {}
func (Blob) isValue()       {}
func (Group) isValue()      {}
func (List) isValue()       {}
func (Map) isValue()        {}
func (Union) isValue()      {}
func (VarIntList) isValue() {}
func (Pair) isValue()       {}
func (Tripple) isValue()    {}
func (Unknown) isValue()    {}

// Set reports whether the union carries a value.
func (u Union) Set() bool {
	return u.Discriminant != UnionUnset
}

// Len returns the number of entries in the map.
func (m Map) Len() int {
	return len(m.Keys)
}
