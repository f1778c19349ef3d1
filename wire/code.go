package wire

import "fmt"

// Code is a message type code: an 8-byte value derived from a short
// alphanumeric tag (spec §6), or NullCode for the absence of a message.
type Code uint64

// NullCode is the distinguished type code for a null message pointer: no
// body follows it on the wire. Its top 4 bits are set, which never
// happens for a legal tag-derived code (those always have the top 4 bits
// zero), so the two spaces never collide.
const NullCode Code = 0xFFFFFFFFFFFFFFFF

// maxTagLen is the longest tag EncodeTag accepts (spec §6: "≤ 10 characters").
const maxTagLen = 10

// charBits is the number of bits packed per tag character.
const charBits = 6

// reservedTopBits must be zero in every user (non-null) code.
const reservedTopBits = 0xF000000000000000

// charToCode maps one alphabet character to its 6-bit value. The
// alphabet is 0-9, A-Z, _, a-z with digits occupying codes 1-10 (not
// 0-9): code 0 is reserved exclusively as the packing's end-of-name
// marker, so a trailing run of zero nibbles can be trimmed unambiguously
// when decoding. This still reproduces the fixed points spec §8 names:
// 'A' -> 11, '_' -> 37, 'a' -> 38, 'z' -> 63.
func charToCode(c byte) (uint64, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint64(1 + (c - '0')), true
	case c >= 'A' && c <= 'Z':
		return uint64(11 + (c - 'A')), true
	case c == '_':
		return 37, true
	case c >= 'a' && c <= 'z':
		return uint64(38 + (c - 'a')), true
	default:
		return 0, false
	}
}

// codeToChar is the inverse of charToCode for nibbles 1-63. Nibble 0 must
// be handled by the caller as end-of-name, not passed here.
func codeToChar(v uint64) (byte, bool) {
	switch {
	case v >= 1 && v <= 10:
		return '0' + byte(v-1), true
	case v >= 11 && v <= 36:
		return 'A' + byte(v-11), true
	case v == 37:
		return '_', true
	case v >= 38 && v <= 63:
		return 'a' + byte(v-38), true
	default:
		return 0, false
	}
}

// EncodeTag packs a short alphanumeric tag into a Code by 6-bit,
// little-endian-per-character packing: the first character occupies the
// low 6 bits, the next the following 6 bits, and so on. The top 4 bits
// are always zero for a tag-derived code, reserving the all-ones pattern
// for NullCode.
//
// EncodeTag fails if tag is empty, longer than 10 characters, or contains
// a character outside 0-9, A-Z, a-z, _.
func EncodeTag(tag string) (Code, error) {
	if len(tag) == 0 || len(tag) > maxTagLen {
		return 0, fmt.Errorf("wire: EncodeTag(%q): length must be 1-%d", tag, maxTagLen)
	}
	var v uint64
	for i := 0; i < len(tag); i++ {
		c, ok := charToCode(tag[i])
		if !ok {
			return 0, fmt.Errorf("wire: EncodeTag(%q): invalid character %q", tag, tag[i])
		}
		v |= c << (charBits * uint(i))
	}
	return Code(v), nil
}

// DecodeTag is the inverse of EncodeTag: it reproduces the original tag,
// modulo trailing padding nibbles (interpreted as end-of-name).
// DecodeTag(NullCode) fails; NullCode names the absence of a message, not
// a tag.
func DecodeTag(code Code) (string, error) {
	if code == NullCode {
		return "", fmt.Errorf("wire: DecodeTag: NullCode has no tag")
	}
	if uint64(code)&reservedTopBits != 0 {
		return "", fmt.Errorf("wire: DecodeTag(%#x): reserved top bits set", uint64(code))
	}
	buf := make([]byte, 0, maxTagLen)
	v := uint64(code)
	for i := 0; i < maxTagLen; i++ {
		nibble := (v >> (charBits * uint(i))) & 0x3F
		if nibble == 0 {
			break
		}
		c, ok := codeToChar(nibble)
		if !ok {
			return "", fmt.Errorf("wire: DecodeTag(%#x): invalid nibble %d at position %d", uint64(code), nibble, i)
		}
		buf = append(buf, c)
	}
	return string(buf), nil
}
