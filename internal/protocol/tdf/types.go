// Package tdf implements the Tagged Data Format used by the Blaze protocol.
//
// A TDF payload is a sequence of labeled values. Each value starts with a
// 4-byte header: a 3-byte packed tag carrying an up-to-4-character label,
// followed by a 1-byte type. The body that follows depends on the type and
// may recursively contain further labeled values (groups, unions) or
// unlabeled values (lists, maps).
//
// Wire summary (big-endian where multi-byte):
//
//	VarInt      6 bits, then 7 bits per byte, 0x80 = continuation
//	String      VarInt length (including NUL) | UTF-8 bytes | 0x00
//	Blob        VarInt length | bytes
//	Group       [0x02] | labeled values... | 0x00
//	List        elem type | VarInt count | values
//	Map         key type | value type | VarInt count | key, value...
//	Union       discriminant | labeled value (absent when 0x7F)
//	VarIntList  VarInt count | VarInts
//	Pair        VarInt | VarInt
//	Tripple     VarInt | VarInt | VarInt
//	Float       IEEE-754 binary32
//
// Decoding and encoding are synchronous and operate on caller-owned buffers;
// a Decoder or Encoder must not be shared between goroutines.
package tdf

import "fmt"

// Type identifies the wire shape of a value. Values outside the known set
// are carried as-is so the raw byte can be reported.
type Type uint8

const (
	TypeVarInt     Type = 0x0
	TypeString     Type = 0x1
	TypeBlob       Type = 0x2
	TypeGroup      Type = 0x3
	TypeList       Type = 0x4
	TypeMap        Type = 0x5
	TypeUnion      Type = 0x6
	TypeVarIntList Type = 0x7
	TypePair       Type = 0x8
	TypeTripple    Type = 0x9
	TypeFloat      Type = 0xA
)

// Known reports whether t is part of the fixed tag set.
func (t Type) Known() bool {
	return t <= TypeFloat
}

// String returns the name of the type.
func (t Type) String() string {
	switch t {
	case TypeVarInt:
		return "VarInt"
	case TypeString:
		return "String"
	case TypeBlob:
		return "Blob"
	case TypeGroup:
		return "Group"
	case TypeList:
		return "List"
	case TypeMap:
		return "Map"
	case TypeUnion:
		return "Union"
	case TypeVarIntList:
		return "VarIntList"
	case TypePair:
		return "Pair"
	case TypeTripple:
		return "Tripple"
	case TypeFloat:
		return "Float"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", uint8(t))
	}
}

const (
	// UnionUnset is the union discriminant meaning "no value present".
	UnionUnset uint8 = 0x7F

	// groupStartMarker is the optional first byte of a group body.
	groupStartMarker byte = 0x02

	// groupTerminator ends a group body.
	groupTerminator byte = 0x00

	// DefaultMaxDepth bounds nesting of groups, lists, maps and unions.
	DefaultMaxDepth = 64
)
