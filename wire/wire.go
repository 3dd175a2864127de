// Package wire implements the primitives of the protobuf binary wire
// format: tags, varints, zigzag encoding, and fixed-width little-endian
// values (spec.md §6.1). It has no knowledge of descriptors or message
// layouts; component F (the wire codec) is built on top of it in
// package codec.
package wire

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/upb-go/upb/internal/status"
)

// Type is a wire type tag (spec.md §6.1).
type Type int8

const (
	Varint   Type = 0
	Fixed64  Type = 1
	Bytes    Type = 2
	GroupStart Type = 3
	GroupEnd   Type = 4
	Fixed32  Type = 5
)

// Number is a protobuf field number.
type Number int32

// MaxVarintBytes is the longest a 64-bit varint can be encoded as
// (spec.md §4.4.1 "Failure modes": "varint > 10 bytes").
const MaxVarintBytes = 10

// MaxDepth is the shared recursion limit for nested messages/groups in the
// wire decoder and for JSON parser object/array nesting (spec.md §4.4.1,
// §4.7.1; DESIGN.md Open Question #4).
const MaxDepth = 64

// AppendTag appends the tag (field_number<<3 | wire_type) to buf as a
// varint.
func AppendTag(buf []byte, num Number, typ Type) []byte {
	return AppendVarint(buf, uint64(num)<<3|uint64(typ))
}

// DecodeTag splits a decoded tag varint into a field number and wire type.
func DecodeTag(tag uint64) (Number, Type) {
	return Number(tag >> 3), Type(tag & 7)
}

// AppendVarint appends v to buf as a base-128 varint.
func AppendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// SizeVarint returns the number of bytes AppendVarint would write for v.
func SizeVarint(v uint64) int {
	if v == 0 {
		return 1
	}
	return (bits.Len64(v) + 6) / 7
}

// ConsumeVarint decodes a varint from the front of b, returning the value
// and the number of bytes consumed. It fails with Truncated if b ends
// mid-varint and with InvalidInput if the varint exceeds MaxVarintBytes.
func ConsumeVarint(b []byte) (uint64, int, error) {
	var v uint64
	for i := 0; i < len(b); i++ {
		if i == MaxVarintBytes {
			return 0, 0, status.New(status.InvalidInput, "varint exceeds %d bytes", MaxVarintBytes)
		}
		c := b[i]
		v |= uint64(c&0x7f) << (7 * i)
		if c < 0x80 {
			return v, i + 1, nil
		}
	}
	return 0, 0, status.New(status.Truncated, "truncated varint")
}

// ConsumeTag decodes a tag from the front of b.
func ConsumeTag(b []byte) (Number, Type, int, error) {
	v, n, err := ConsumeVarint(b)
	if err != nil {
		return 0, 0, 0, err
	}
	num, typ := DecodeTag(v)
	if num <= 0 {
		return 0, 0, 0, status.New(status.RangeError, "field number %d out of range", num)
	}
	return num, typ, n, nil
}

// ConsumeFixed32 reads a little-endian uint32 from the front of b.
func ConsumeFixed32(b []byte) (uint32, int, error) {
	if len(b) < 4 {
		return 0, 0, status.New(status.Truncated, "truncated 32-bit value")
	}
	return binary.LittleEndian.Uint32(b), 4, nil
}

// ConsumeFixed64 reads a little-endian uint64 from the front of b.
func ConsumeFixed64(b []byte) (uint64, int, error) {
	if len(b) < 8 {
		return 0, 0, status.New(status.Truncated, "truncated 64-bit value")
	}
	return binary.LittleEndian.Uint64(b), 8, nil
}

// ConsumeBytes reads a length-prefixed byte run from the front of b,
// returning a view into b (no copy), per spec.md §4.4.1 "store a view
// into the input buffer".
func ConsumeBytes(b []byte) ([]byte, int, error) {
	n, m, err := ConsumeVarint(b)
	if err != nil {
		return nil, 0, err
	}
	if n > uint64(len(b)-m) {
		return nil, 0, status.New(status.Truncated, "delimited length %d exceeds remaining input", n)
	}
	return b[m : m+int(n)], m + int(n), nil
}

// AppendFixed32 appends a little-endian uint32.
func AppendFixed32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// AppendFixed64 appends a little-endian uint64.
func AppendFixed64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

// EncodeZigZag32 maps a signed 32-bit int to an unsigned value so that
// numbers with small absolute value have a small varint encoding
// (spec.md §4.4.2).
func EncodeZigZag32(v int32) uint64 {
	return uint64(uint32((v << 1) ^ (v >> 31)))
}

// DecodeZigZag32 is the inverse of EncodeZigZag32.
func DecodeZigZag32(v uint64) int32 {
	u := uint32(v)
	return int32(u>>1) ^ -int32(u&1)
}

// EncodeZigZag64 maps a signed 64-bit int to an unsigned value.
func EncodeZigZag64(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// DecodeZigZag64 is the inverse of EncodeZigZag64.
func DecodeZigZag64(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// EncodeFloat32 bit-casts a float32 to its wire representation.
func EncodeFloat32(f float32) uint32 { return math.Float32bits(f) }

// DecodeFloat32 is the inverse of EncodeFloat32.
func DecodeFloat32(v uint32) float32 { return math.Float32frombits(v) }

// EncodeFloat64 bit-casts a float64 to its wire representation.
func EncodeFloat64(f float64) uint64 { return math.Float64bits(f) }

// DecodeFloat64 is the inverse of EncodeFloat64.
func DecodeFloat64(v uint64) float64 { return math.Float64frombits(v) }

// ConsumeFieldValue skips over a single field's value of the given wire
// type (used for unknown fields and group skipping), returning the
// number of bytes consumed. depth bounds nested group skipping.
func ConsumeFieldValue(typ Type, b []byte, depth int) (int, error) {
	if depth > MaxDepth {
		return 0, status.New(status.RangeError, "max nesting depth exceeded")
	}
	switch typ {
	case Varint:
		_, n, err := ConsumeVarint(b)
		return n, err
	case Fixed32:
		_, n, err := ConsumeFixed32(b)
		return n, err
	case Fixed64:
		_, n, err := ConsumeFixed64(b)
		return n, err
	case Bytes:
		_, n, err := ConsumeBytes(b)
		return n, err
	case GroupStart:
		total := 0
		for {
			if len(b) == 0 {
				return 0, status.New(status.Truncated, "truncated group")
			}
			num, t, n, err := ConsumeTag(b)
			if err != nil {
				return 0, err
			}
			b = b[n:]
			total += n
			if t == GroupEnd {
				_ = num
				return total, nil
			}
			m, err := ConsumeFieldValue(t, b, depth+1)
			if err != nil {
				return 0, err
			}
			b = b[m:]
			total += m
		}
	case GroupEnd:
		return 0, status.New(status.InvalidInput, "unexpected end-group tag")
	default:
		return 0, status.New(status.InvalidInput, "unknown wire type %d", typ)
	}
}
