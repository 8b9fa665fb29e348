package codec

import (
	"fmt"

	"github.com/RowanDark/xorlab/internal/xorerr"
)

const (
	base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	base64Pad      = '='
	invalidSextet  = 0xff
)

var base64Values = func() [256]byte {
	var table [256]byte
	for i := range table {
		table[i] = invalidSextet
	}
	for i := 0; i < len(base64Alphabet); i++ {
		table[base64Alphabet[i]] = byte(i)
	}
	return table
}()

// Base64Encode emits one character per six bits of input using the RFC 4648
// standard alphabet. A trailing partial group is zero-filled for extraction.
// With padding the output is extended with '=' to a multiple of four;
// without it only significant characters are written.
func Base64Encode(data []byte, padding bool) string {
	out := make([]byte, 0, (len(data)+2)/3*4)

	var acc uint32
	var bits uint
	for _, b := range data {
		acc = acc<<8 | uint32(b)
		bits += 8
		for bits >= 6 {
			bits -= 6
			out = append(out, base64Alphabet[(acc>>bits)&0x3f])
		}
		acc &= 1<<bits - 1
	}
	if bits > 0 {
		out = append(out, base64Alphabet[(acc<<(6-bits))&0x3f])
	}

	if padding {
		for len(out)%4 != 0 {
			out = append(out, base64Pad)
		}
	}
	return string(out)
}

// Base64Decode reverses Base64Encode. The first '=' ends the data; only
// padding may follow it. Unpadded text is accepted, a dangling single
// character in the final group is not, and leftover low bits of the last
// character are discarded.
func Base64Decode(text string) ([]byte, error) {
	end := len(text)
	for i := 0; i < len(text); i++ {
		if text[i] == base64Pad {
			end = i
			break
		}
	}
	if err := checkBase64Padding(text, end); err != nil {
		return nil, err
	}
	if end%4 == 1 {
		return nil, fmt.Errorf("%w: base64 group of a single character at offset %d", xorerr.ErrInvalidEncoding, end-1)
	}

	out := make([]byte, 0, end*3/4)
	var acc uint32
	var bits uint
	for i := 0; i < end; i++ {
		v := base64Values[text[i]]
		if v == invalidSextet {
			return nil, fmt.Errorf("%w: invalid base64 character %q at offset %d", xorerr.ErrInvalidEncoding, text[i], i)
		}
		acc = acc<<6 | uint32(v)
		bits += 6
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(acc>>bits))
		}
		acc &= 1<<bits - 1
	}
	return out, nil
}

func checkBase64Padding(text string, end int) error {
	pad := len(text) - end
	if pad == 0 {
		return nil
	}
	for i := end; i < len(text); i++ {
		if text[i] != base64Pad {
			return fmt.Errorf("%w: base64 data after padding at offset %d", xorerr.ErrInvalidEncoding, i)
		}
	}
	if pad > 2 {
		return fmt.Errorf("%w: %d base64 padding characters", xorerr.ErrInvalidEncoding, pad)
	}
	if len(text)%4 != 0 {
		return fmt.Errorf("%w: padded base64 length %d is not a multiple of 4", xorerr.ErrInvalidEncoding, len(text))
	}
	return nil
}
