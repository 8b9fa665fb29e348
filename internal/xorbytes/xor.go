// Package xorbytes implements the byte-wise XOR transforms used to encrypt and
// to try candidate keys. Every function returns a new slice and leaves its
// inputs untouched.
package xorbytes

import (
	"fmt"

	"github.com/RowanDark/xorlab/internal/xorerr"
)

// Xor combines two equal-length buffers.
func Xor(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: xor of %d and %d bytes", xorerr.ErrLengthMismatch, len(a), len(b))
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out, nil
}

// XorByte combines every byte of data with key.
func XorByte(key byte, data []byte) []byte {
	out := make([]byte, len(data))
	XorByteInto(out, data, key)
	return out
}

// XorByteInto writes data^key into dst, which must be at least len(data) long.
// Scoring loops use it to reuse one buffer across all 256 keys.
func XorByteInto(dst, data []byte, key byte) {
	for i, b := range data {
		dst[i] = b ^ key
	}
}

// XorRepeating combines data with key, cycling through key as often as needed.
func XorRepeating(key, data []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: repeating key is empty", xorerr.ErrInvalidArgument)
	}
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out, nil
}
