package tdf

import (
	"errors"
	"io"
)

// MaxVarIntLen is the length of the longest minimal VarInt encoding
// (6 + 9*7 bits covers the full 64-bit pattern).
const MaxVarIntLen = 10

// ============================================================================
// VarInt Encoding
// ============================================================================

// AppendVarInt appends the minimal encoding of v to dst.
//
// Layout: the first byte holds the low 6 bits of the value, every following
// byte the next 7 bits. Bit 0x80 is set on every byte except the last.
// Negative values are encoded through their two's-complement bit pattern.
//
// Example:
//
//	5    → [05]
//	64   → [80 01]
//	8191 → [BF 7F]
func AppendVarInt(dst []byte, v int64) []byte {
	u := uint64(v)

	first := byte(u & 0x3F)
	u >>= 6
	if u == 0 {
		return append(dst, first)
	}
	dst = append(dst, first|0x80)

	for u >= 0x80 {
		dst = append(dst, byte(u&0x7F)|0x80)
		u >>= 7
	}
	return append(dst, byte(u))
}

// VarIntLen returns the number of bytes AppendVarInt produces for v.
func VarIntLen(v int64) int {
	u := uint64(v) >> 6
	n := 1
	for u != 0 {
		u >>= 7
		n++
	}
	return n
}

// ============================================================================
// VarInt Decoding
// ============================================================================

// ReadVarInt decodes one VarInt from r.
//
// Any well-formed sequence is accepted, including non-minimal ones with
// trailing zero groups. A sequence whose significant bits do not fit in
// 64 bits fails with ErrLimitExceeded; a stream that ends before the
// terminating byte fails with ErrTruncated.
func ReadVarInt(r io.ByteReader) (int64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, truncated(err, "read varint")
	}

	u := uint64(b & 0x3F)
	shift := uint(6)

	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, truncated(err, "read varint continuation")
		}

		chunk := uint64(b & 0x7F)
		switch {
		case shift >= 64:
			if chunk != 0 {
				return 0, NewError(ErrLimitExceeded, nil, "varint exceeds 64 bits")
			}
		case shift > 57 && chunk>>(64-shift) != 0:
			return 0, NewError(ErrLimitExceeded, nil, "varint exceeds 64 bits")
		default:
			u |= chunk << shift
		}
		shift += 7
	}

	return int64(u), nil
}

// truncated converts an end-of-input condition into ErrTruncated and keeps
// any other I/O error as the cause.
func truncated(err error, op string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return NewError(ErrTruncated, io.ErrUnexpectedEOF, "%s", op)
	}
	return NewError(ErrTruncated, err, "%s", op)
}
