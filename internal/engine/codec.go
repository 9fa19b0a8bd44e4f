package engine

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// maxIntBytes bounds the byte count of a length-prefixed integer.
const maxIntBytes = 15

// BytesNeeded is the minimal number of bytes that hold n; zero needs one.
func BytesNeeded(n uint64) int {
	if n == 0 {
		return 1
	}
	return (bits.Len64(n) + 7) / 8
}

// EncodeInt frames n as a count byte followed by the minimal number of
// value bytes in the given order.
func EncodeInt(n uint64, order binary.ByteOrder) []byte {
	size := BytesNeeded(n)
	out := make([]byte, 1+size)
	out[0] = byte(size)
	putUint(out[1:], n, order)
	return out
}

// DecodeInt interprets b as an unsigned integer in the given order.
// Bytes beyond the eighth must be zero.
func DecodeInt(b []byte, order binary.ByteOrder) (uint64, error) {
	if len(b) == 0 || len(b) > maxIntBytes {
		return 0, fmt.Errorf("%w: %d bytes", ErrLength, len(b))
	}
	le := order == binary.LittleEndian
	var v uint64
	for i := range b {
		// k is the significance of b[i], 0 for the least significant byte.
		k := i
		if !le {
			k = len(b) - 1 - i
		}
		if k >= 8 {
			if b[i] != 0 {
				return 0, fmt.Errorf("%w: %d-byte value", ErrIntOverflow, len(b))
			}
			continue
		}
		v |= uint64(b[i]) << (8 * k)
	}
	return v, nil
}

// signExtend treats the low size bytes of v as a two's complement value.
func signExtend(v uint64, size int) int64 {
	if size >= 8 {
		return int64(v)
	}
	shift := uint(64 - 8*size)
	return int64(v<<shift) >> shift
}

func putUint(b []byte, v uint64, order binary.ByteOrder) {
	for i := range b {
		k := i
		if order != binary.LittleEndian {
			k = len(b) - 1 - i
		}
		if k < 8 {
			b[i] = byte(v >> (8 * k))
		}
	}
}

// probe returns the endianness probe for width in the given order.
func probe(width int, order binary.ByteOrder) []byte {
	if width == 1 {
		if order == binary.LittleEndian {
			return []byte{0x43}
		}
		return []byte{0x6C}
	}
	b := make([]byte, width)
	putUint(b, 0x6C43, order)
	return b
}
