package tdf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// header returns the 4-byte value header for label and t.
func header(t *testing.T, label string, typ Type) []byte {
	t.Helper()
	tag, err := EncodeLabel(label)
	require.NoError(t, err)
	return []byte{tag[0], tag[1], tag[2], byte(typ)}
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// sample covers every known variant, including nesting and empty collections.
func sample() []Labeled {
	inner := Field("INNR", VarInt(-42))
	return []Labeled{
		Field("VINT", VarInt(123456789)),
		Field("NEG", VarInt(-1)),
		Field("FLT", Float(1.5)),
		Field("STR", String("hello, world")),
		Field("ESTR", String("")),
		Field("BLOB", Blob{0x00, 0x01, 0xFF}),
		Field("EBLB", Blob{}),
		Field("GRP", Group{Fields: []Labeled{
			Field("NAME", String("nested")),
			Field("SUB", Group{Start: true, Fields: []Labeled{
				Field("DEEP", Pair{A: 1, B: -2}),
			}}),
		}}),
		Field("EGRP", Group{}),
		Field("LIST", List{ElemType: TypeString, Values: []Value{String("a"), String("b")}}),
		Field("LGRP", List{ElemType: TypeGroup, Values: []Value{
			Group{Fields: []Labeled{Field("ID", VarInt(1))}},
			Group{Fields: []Labeled{Field("ID", VarInt(2))}},
		}}),
		Field("ELST", List{ElemType: TypeVarInt}),
		Field("MAP", Map{
			KeyType:   TypeString,
			ValueType: TypeVarInt,
			Keys:      []Value{String("one"), String("two")},
			Values:    []Value{VarInt(1), VarInt(2)},
		}),
		Field("EMAP", Map{KeyType: TypeVarInt, ValueType: TypeBlob}),
		Field("UNIO", Union{Discriminant: 0x01, Value: &inner}),
		Field("UNST", Union{Discriminant: UnionUnset}),
		Field("VLST", VarIntList{1, 64, -5}),
		Field("EVLS", VarIntList(nil)),
		Field("PAIR", Pair{A: 7, B: 8}),
		Field("TRIP", Tripple{A: 1, B: 2, C: 3}),
	}
}

// ============================================================================
// Round Trip Tests
// ============================================================================

func TestRoundTrip(t *testing.T) {
	t.Run("AllVariants", func(t *testing.T) {
		fields := sample()

		data, err := Marshal(fields)
		require.NoError(t, err)

		got, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, fields, got)
	})

	t.Run("Deterministic", func(t *testing.T) {
		a, err := Marshal(sample())
		require.NoError(t, err)
		b, err := Marshal(sample())
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("DecodedBytesReEncodeExactly", func(t *testing.T) {
		data, err := Marshal(sample())
		require.NoError(t, err)

		fields, err := Unmarshal(data)
		require.NoError(t, err)

		again, err := Marshal(fields)
		require.NoError(t, err)
		assert.Equal(t, data, again)
	})

	t.Run("NonMinimalVarIntNormalises", func(t *testing.T) {
		data := concat(header(t, "N", TypeVarInt), []byte{0x85, 0x00})

		fields, err := Unmarshal(data)
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.Equal(t, VarInt(5), fields[0].Value)
	})
}

func TestEndToEndGroup(t *testing.T) {
	fields := []Labeled{
		Field("TEST", String("hi")),
		Field("NUM1", VarInt(5)),
	}

	t.Run("WireBytes", func(t *testing.T) {
		data, err := Marshal(fields)
		require.NoError(t, err)

		want := concat(
			[]byte{0xD2, 0x5C, 0xF4, 0x01}, []byte{0x03, 'h', 'i', 0x00},
			header(t, "NUM1", TypeVarInt), []byte{0x05},
		)
		assert.Equal(t, want, data)
	})

	t.Run("DecodesInOrder", func(t *testing.T) {
		data, err := Marshal(fields)
		require.NoError(t, err)

		got, err := Unmarshal(data)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "TEST", got[0].Label)
		assert.Equal(t, "NUM1", got[1].Label)
		assert.Equal(t, fields, got)
	})

	t.Run("WrappedInGroup", func(t *testing.T) {
		data, err := Marshal([]Labeled{Field("DATA", Group{Fields: fields})})
		require.NoError(t, err)

		got, err := Unmarshal(data)
		require.NoError(t, err)
		require.Len(t, got, 1)

		g, err := As[Group](got[0].Value)
		require.NoError(t, err)
		assert.Equal(t, fields, g.Fields)
	})
}

// ============================================================================
// Collection Count Tests
// ============================================================================

func TestCollectionCounts(t *testing.T) {
	t.Run("ListUsesTrueCount", func(t *testing.T) {
		data := concat(header(t, "LIST", TypeList), []byte{byte(TypeVarInt), 0x02, 0x01, 0x02})

		d := NewDecoder(data)
		l, err := d.ReadLabeled()
		require.NoError(t, err)
		assert.False(t, d.More())
		assert.Equal(t, List{ElemType: TypeVarInt, Values: []Value{VarInt(1), VarInt(2)}}, l.Value)
	})

	t.Run("MapUsesTrueCount", func(t *testing.T) {
		data := concat(header(t, "MAP", TypeMap), []byte{byte(TypeVarInt), byte(TypeVarInt), 0x01, 0x0A, 0x0B})

		fields, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, Map{
			KeyType: TypeVarInt, ValueType: TypeVarInt,
			Keys: []Value{VarInt(10)}, Values: []Value{VarInt(11)},
		}, fields[0].Value)
	})

	t.Run("VarIntListUsesTrueCount", func(t *testing.T) {
		data := concat(header(t, "VL", TypeVarIntList), []byte{0x01, 0x09})

		fields, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, VarIntList{9}, fields[0].Value)
	})

	t.Run("ZeroCountsDoNotUnderflow", func(t *testing.T) {
		data := concat(
			header(t, "L", TypeList), []byte{byte(TypeString), 0x00},
			header(t, "M", TypeMap), []byte{byte(TypeString), byte(TypeGroup), 0x00},
			header(t, "V", TypeVarIntList), []byte{0x00},
		)

		fields, err := Unmarshal(data)
		require.NoError(t, err)
		require.Len(t, fields, 3)
		assert.Equal(t, List{ElemType: TypeString}, fields[0].Value)
		assert.Equal(t, Map{KeyType: TypeString, ValueType: TypeGroup}, fields[1].Value)
		assert.Equal(t, VarIntList(nil), fields[2].Value)
	})

	t.Run("CountBeyondInputIsTruncated", func(t *testing.T) {
		data := concat(header(t, "LIST", TypeList), []byte{byte(TypeVarInt), 0x3F})

		_, err := Unmarshal(data)
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrTruncated))
	})
}

// ============================================================================
// Union Tests
// ============================================================================

func TestUnion(t *testing.T) {
	t.Run("UnsetConsumesNoPayload", func(t *testing.T) {
		data := concat(
			header(t, "UN", TypeUnion), []byte{UnionUnset},
			header(t, "NEXT", TypeVarInt), []byte{0x07},
		)

		fields, err := Unmarshal(data)
		require.NoError(t, err)
		require.Len(t, fields, 2)
		assert.Equal(t, Union{Discriminant: UnionUnset}, fields[0].Value)
		assert.Equal(t, VarInt(7), fields[1].Value)
	})

	t.Run("SetConsumesOneValue", func(t *testing.T) {
		data := concat(
			header(t, "UN", TypeUnion), []byte{0x00},
			header(t, "VAL", TypeVarInt), []byte{0x03},
		)

		fields, err := Unmarshal(data)
		require.NoError(t, err)
		require.Len(t, fields, 1)

		u, err := As[Union](fields[0].Value)
		require.NoError(t, err)
		require.NotNil(t, u.Value)
		assert.True(t, u.Set())
		assert.Equal(t, Field("VAL", VarInt(3)), *u.Value)
	})

	t.Run("SetWithoutPayloadIsTruncated", func(t *testing.T) {
		data := concat(header(t, "UN", TypeUnion), []byte{0x00})

		_, err := Unmarshal(data)
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrTruncated))
	})
}

// ============================================================================
// String Tests
// ============================================================================

func TestStringDecoding(t *testing.T) {
	decode := func(t *testing.T, body []byte) (Value, error) {
		t.Helper()
		fields, err := Unmarshal(concat(header(t, "S", TypeString), body))
		if err != nil {
			return nil, err
		}
		return fields[0].Value, nil
	}

	t.Run("ZeroLengthIsEmpty", func(t *testing.T) {
		v, err := decode(t, []byte{0x00})
		require.NoError(t, err)
		assert.Equal(t, String(""), v)
	})

	t.Run("TerminatorOnly", func(t *testing.T) {
		v, err := decode(t, []byte{0x01, 0x00})
		require.NoError(t, err)
		assert.Equal(t, String(""), v)
	})

	t.Run("EmbeddedNULKept", func(t *testing.T) {
		v, err := decode(t, []byte{0x04, 'a', 0x00, 'b', 0x00})
		require.NoError(t, err)
		assert.Equal(t, String("a\x00b"), v)
	})

	t.Run("MissingTerminator", func(t *testing.T) {
		_, err := decode(t, []byte{0x02, 'a', 'b'})
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrInvalidEncoding))
	})

	t.Run("DoubleTerminator", func(t *testing.T) {
		_, err := decode(t, []byte{0x02, 0x00, 0x00})
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrInvalidEncoding))
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		_, err := decode(t, []byte{0x03, 0xFF, 0xFE, 0x00})
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrInvalidEncoding))
	})

	t.Run("ShortBody", func(t *testing.T) {
		_, err := decode(t, []byte{0x05, 'a'})
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrTruncated))
	})
}

func TestStringEncoding(t *testing.T) {
	t.Run("TrailingNULIsTerminator", func(t *testing.T) {
		a, err := Marshal([]Labeled{Field("S", String("hi\x00"))})
		require.NoError(t, err)
		b, err := Marshal([]Labeled{Field("S", String("hi"))})
		require.NoError(t, err)
		assert.Equal(t, b, a)
	})

	t.Run("EmptyIsTerminatorOnly", func(t *testing.T) {
		data, err := Marshal([]Labeled{Field("S", String(""))})
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0x00}, data[4:])
	})

	t.Run("RejectsInvalidUTF8", func(t *testing.T) {
		_, err := Marshal([]Labeled{Field("S", String("\xff"))})
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrInvalidEncoding))
	})
}

// ============================================================================
// Group Tests
// ============================================================================

func TestGroup(t *testing.T) {
	t.Run("StartMarkerRoundTrips", func(t *testing.T) {
		fields := []Labeled{Field("G", Group{Start: true, Fields: []Labeled{Field("A", VarInt(1))}})}

		data, err := Marshal(fields)
		require.NoError(t, err)
		assert.Equal(t, groupStartMarker, data[4])

		got, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, fields, got)
	})

	t.Run("MissingTerminatorIsTruncated", func(t *testing.T) {
		data := concat(header(t, "G", TypeGroup), header(t, "A", TypeVarInt), []byte{0x01})

		_, err := Unmarshal(data)
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrTruncated))
	})

	t.Run("RejectsChildTagMatchingTerminator", func(t *testing.T) {
		_, err := Marshal([]Labeled{Field("G", Group{Fields: []Labeled{Field("", VarInt(1))}})})
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrStructural))
	})

	t.Run("EmptyLabelAllowedAtTopLevel", func(t *testing.T) {
		data, err := Marshal([]Labeled{Field("", VarInt(1))})
		require.NoError(t, err)

		got, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, "", got[0].Label)
	})
}

// ============================================================================
// Error Tests
// ============================================================================

func TestUnknownType(t *testing.T) {
	t.Run("DecodeIsFatal", func(t *testing.T) {
		data := concat(header(t, "BAD", Type(0x0B)), header(t, "NEXT", TypeVarInt), []byte{0x01})

		fields, err := Unmarshal(data)
		require.Error(t, err)
		assert.Nil(t, fields)
		assert.True(t, IsCode(err, ErrUnknownType))

		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "BAD", e.Label)
	})

	t.Run("UnknownListElementWithZeroCount", func(t *testing.T) {
		data := concat(header(t, "L", TypeList), []byte{0x0F, 0x00})

		_, err := Unmarshal(data)
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrUnknownType))
	})

	t.Run("EncodeIsRejected", func(t *testing.T) {
		_, err := Marshal([]Labeled{Field("U", Unknown{Raw: 0x0C})})
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrUnknownType))
	})
}

func TestDepthLimit(t *testing.T) {
	nested := func(depth int) []Labeled {
		v := Value(VarInt(1))
		for i := 0; i < depth; i++ {
			v = Group{Fields: []Labeled{Field("G", v)}}
		}
		return []Labeled{Field("TOP", v)}
	}

	t.Run("DecodeRejectsDeepInput", func(t *testing.T) {
		data, err := Marshal(nested(5))
		require.NoError(t, err)

		_, err = Unmarshal(data, WithMaxDepth(3))
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrLimitExceeded))

		_, err = Unmarshal(data, WithMaxDepth(5))
		require.NoError(t, err)
	})

	t.Run("EncodeRejectsDeepValue", func(t *testing.T) {
		_, err := Marshal(nested(5), WithMaxDepth(4))
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrLimitExceeded))
	})

	t.Run("DefaultBoundsHostileNesting", func(t *testing.T) {
		var data []byte
		for i := 0; i < DefaultMaxDepth+1; i++ {
			data = append(data, header(t, "G", TypeGroup)...)
		}

		_, err := Unmarshal(data)
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrLimitExceeded))
	})
}

func TestEncoderStructuralErrors(t *testing.T) {
	inner := Field("X", VarInt(1))

	tests := []struct {
		name  string
		value Value
	}{
		{"UnsetUnionWithValue", Union{Discriminant: UnionUnset, Value: &inner}},
		{"SetUnionWithoutValue", Union{Discriminant: 0x02}},
		{"MapLengthMismatch", Map{KeyType: TypeVarInt, ValueType: TypeVarInt, Keys: []Value{VarInt(1)}}},
		{"MapKeyTypeMismatch", Map{KeyType: TypeVarInt, ValueType: TypeVarInt, Keys: []Value{String("a")}, Values: []Value{VarInt(1)}}},
		{"ListElementMismatch", List{ElemType: TypeString, Values: []Value{VarInt(1)}}},
		{"ListNilElement", List{ElemType: TypeString, Values: []Value{nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Marshal([]Labeled{Field("V", tt.value)})
			require.Error(t, err)
			assert.True(t, IsCode(err, ErrStructural))
		})
	}

	t.Run("NilValue", func(t *testing.T) {
		_, err := Marshal([]Labeled{{Label: "V"}})
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrStructural))
	})

	t.Run("LabelTooLong", func(t *testing.T) {
		_, err := Marshal([]Labeled{Field("LABEL", VarInt(1))})
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrStructural))
	})
}

func TestTruncatedHeader(t *testing.T) {
	_, err := Unmarshal([]byte{0xD2, 0x5C})
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrTruncated))
	assert.ErrorIs(t, err, &Error{Code: ErrTruncated})
}

func TestDecoderOffset(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).WriteLabeled(Field("A", VarInt(1))))
	require.NoError(t, NewEncoder(&buf).WriteLabeled(Field("B", VarInt(2))))

	d := NewDecoder(buf.Bytes())
	_, err := d.ReadLabeled()
	require.NoError(t, err)
	assert.Equal(t, int64(5), d.Offset())
	assert.True(t, d.More())
}
