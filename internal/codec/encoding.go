package codec

import (
	"fmt"
	"strings"

	"github.com/RowanDark/xorlab/internal/xorerr"
)

// Encoding names the text representation of a byte stream.
type Encoding string

const (
	Raw    Encoding = "raw"
	Hex    Encoding = "hex"
	Base64 Encoding = "base64"
	// Auto asks the reader to detect hex or base64 before decoding.
	Auto Encoding = "auto"
)

// ParseEncoding accepts the names used on the command line and in config files.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "raw", "text", "":
		return Raw, nil
	case "hex":
		return Hex, nil
	case "base64", "b64":
		return Base64, nil
	case "auto":
		return Auto, nil
	default:
		return "", fmt.Errorf("%w: unknown encoding %q", xorerr.ErrInvalidArgument, name)
	}
}

// Decode converts text in the given encoding to bytes. Auto is resolved by the
// caller and is rejected here.
func Decode(enc Encoding, text string) ([]byte, error) {
	switch enc {
	case Raw:
		return []byte(text), nil
	case Hex:
		return HexDecode(text)
	case Base64:
		return Base64Decode(text)
	default:
		return nil, fmt.Errorf("%w: cannot decode %q", xorerr.ErrInvalidArgument, enc)
	}
}

// Encode converts bytes to text using lowercase hex and padded base64.
func Encode(enc Encoding, data []byte) (string, error) {
	switch enc {
	case Raw:
		return string(data), nil
	case Hex:
		return HexEncode(data, false), nil
	case Base64:
		return Base64Encode(data, true), nil
	default:
		return "", fmt.Errorf("%w: cannot encode to %q", xorerr.ErrInvalidArgument, enc)
	}
}
