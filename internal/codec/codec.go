// Package codec implements the varint and fixed-width byte encodings used
// throughout the table engine's on-disk and in-memory formats: block entry
// headers, internal-key tags, filter and footer offsets.
package codec

import (
	"encoding/binary"

	"github.com/AmrMurad1/ldbtable/internal/lsmerrors"
)

// PutFixed32 appends the little-endian 4-byte encoding of v to dst.
func PutFixed32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

// PutFixed64 appends the little-endian 8-byte encoding of v to dst.
func PutFixed64(dst []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, v)
}

// DecodeFixed32 reads a little-endian 4-byte value from the front of b.
func DecodeFixed32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

// DecodeFixed64 reads a little-endian 8-byte value from the front of b.
func DecodeFixed64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

// PutVarint32 appends the varint32 encoding of v to dst.
func PutVarint32(dst []byte, v uint32) []byte {
	return PutVarint64(dst, uint64(v))
}

// PutVarint64 appends the varint encoding of v to dst: 7 bits per byte,
// little-endian, high bit set on every byte but the last.
func PutVarint64(dst []byte, v uint64) []byte {
	const b = 128
	for v >= b {
		dst = append(dst, byte(v)|b)
		v >>= 7
	}
	return append(dst, byte(v))
}

// VarintLength returns the number of bytes PutVarint64 would emit for v.
func VarintLength(v uint64) int {
	n := 1
	for v >= 128 {
		v >>= 7
		n++
	}
	return n
}

// GetVarint32 decodes a varint32 from the front of b, returning the value,
// the remaining bytes, and an error if b is truncated or the value
// overflows 32 bits.
func GetVarint32(b []byte) (uint32, []byte, error) {
	v, rest, err := GetVarint64(b)
	if err != nil {
		return 0, nil, err
	}
	if v > 0xffffffff {
		return 0, nil, lsmerrors.ErrCorruption
	}
	return uint32(v), rest, nil
}

// GetVarint64 decodes a varint from the front of b, returning the value
// and the remaining bytes.
func GetVarint64(b []byte) (uint64, []byte, error) {
	var result uint64
	for shift := uint(0); shift < 64; shift += 7 {
		if len(b) == 0 {
			return 0, nil, lsmerrors.ErrCorruption
		}
		c := b[0]
		b = b[1:]
		if c&128 != 0 {
			result |= uint64(c&127) << shift
		} else {
			result |= uint64(c) << shift
			return result, b, nil
		}
	}
	return 0, nil, lsmerrors.ErrCorruption
}

// PutLengthPrefixedSlice appends a varint32 length followed by data to dst.
func PutLengthPrefixedSlice(dst []byte, data []byte) []byte {
	dst = PutVarint32(dst, uint32(len(data)))
	return append(dst, data...)
}

// GetLengthPrefixedSlice decodes a varint32-length-prefixed slice from the
// front of b, returning the slice (a view into b), the remaining bytes,
// and an error if b is truncated.
func GetLengthPrefixedSlice(b []byte) ([]byte, []byte, error) {
	n, rest, err := GetVarint32(b)
	if err != nil {
		return nil, nil, err
	}
	if uint32(len(rest)) < n {
		return nil, nil, lsmerrors.ErrCorruption
	}
	return rest[:n], rest[n:], nil
}
