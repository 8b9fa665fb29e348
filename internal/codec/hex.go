// Package codec converts between raw byte streams and their hexadecimal and
// base64 text forms. Both codecs are exact inverses for every input length and
// reject malformed text instead of returning partial output.
package codec

import (
	"fmt"

	"github.com/RowanDark/xorlab/internal/xorerr"
)

const (
	lowerHexDigits = "0123456789abcdef"
	upperHexDigits = "0123456789ABCDEF"
)

// HexEncode returns two hex digits per byte, high nibble first. capital selects
// A-F over a-f.
func HexEncode(data []byte, capital bool) string {
	digits := lowerHexDigits
	if capital {
		digits = upperHexDigits
	}
	out := make([]byte, len(data)*2)
	for i, b := range data {
		out[2*i] = digits[b>>4]
		out[2*i+1] = digits[b&0x0f]
	}
	return string(out)
}

// HexDecode parses case-insensitive hex text. Odd-length text is rejected
// rather than padded or truncated.
func HexDecode(text string) ([]byte, error) {
	if len(text)%2 != 0 {
		return nil, fmt.Errorf("%w: hex text has odd length %d", xorerr.ErrInvalidEncoding, len(text))
	}
	out := make([]byte, len(text)/2)
	for i := 0; i < len(out); i++ {
		hi, ok := hexNibble(text[2*i])
		if !ok {
			return nil, fmt.Errorf("%w: invalid hex character %q at offset %d", xorerr.ErrInvalidEncoding, text[2*i], 2*i)
		}
		lo, ok := hexNibble(text[2*i+1])
		if !ok {
			return nil, fmt.Errorf("%w: invalid hex character %q at offset %d", xorerr.ErrInvalidEncoding, text[2*i+1], 2*i+1)
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
