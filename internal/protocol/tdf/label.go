package tdf

import "strings"

// MaxLabelLen is the number of characters a tag can carry.
const MaxLabelLen = 4

// EncodeLabel packs a label of up to four characters into a 3-byte tag.
//
// Each character contributes 6 bits: bit 0x40 and the low five bits. Short
// labels are padded with spaces. Characters must be in the range 0x20..0x5F
// (space, digits, punctuation and upper-case letters); anything else cannot
// survive the 6-bit packing and is rejected with ErrStructural.
func EncodeLabel(label string) ([3]byte, error) {
	var tag [3]byte

	if len(label) > MaxLabelLen {
		return tag, NewError(ErrStructural, nil, "label %q longer than %d characters", label, MaxLabelLen)
	}

	b := [MaxLabelLen]byte{' ', ' ', ' ', ' '}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if c < 0x20 || c > 0x5F {
			return tag, NewError(ErrStructural, nil, "label %q contains unsupported character 0x%02x", label, c)
		}
		b[i] = c
	}

	tag[0] = (b[0]&0x40)<<1 | (b[0]&0x10)<<2 | (b[0]&0x0F)<<2 | (b[1]&0x40)>>5 | (b[1]&0x10)>>4
	tag[1] = (b[1]&0x0F)<<4 | (b[2]&0x40)>>3 | (b[2]&0x10)>>2 | (b[2]&0x0C)>>2
	tag[2] = (b[2]&0x03)<<6 | (b[3]&0x40)>>1 | (b[3] & 0x1F)

	return tag, nil
}

// DecodeLabel unpacks a 3-byte tag into its label. Trailing padding is
// removed, so a tag produced from "ID" decodes back to "ID".
func DecodeLabel(tag [3]byte) string {
	var b [MaxLabelLen]byte

	b[0] = (tag[0]&0x80)>>1 | (tag[0]&0x40)>>2 | (tag[0]&0x3C)>>2
	b[1] = (tag[0]&0x02)<<5 | (tag[0]&0x01)<<4 | (tag[1]&0xF0)>>4
	b[2] = (tag[1]&0x08)<<3 | (tag[1]&0x04)<<2 | (tag[1]&0x03)<<2 | (tag[2]&0xC0)>>6
	b[3] = (tag[2]&0x20)<<1 | (tag[2] & 0x1F)

	// Bit 0x20 is not stored. Characters without 0x40 live in 0x20..0x3F.
	for i := range b {
		if b[i]&0x40 == 0 {
			b[i] |= 0x20
		}
	}

	return strings.TrimRight(string(b[:]), " ")
}
