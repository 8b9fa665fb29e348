package cipher

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/RowanDark/xorlab/internal/codec"
	"github.com/RowanDark/xorlab/internal/display"
	"github.com/RowanDark/xorlab/internal/xorbytes"
	"github.com/RowanDark/xorlab/internal/xorerr"
)

// Hex Operations

// HexEncodeOp encodes bytes as a hexadecimal string. The "capital" parameter
// selects upper-case digits.
type HexEncodeOp struct {
	BaseOperation
}

func (op *HexEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	capital, err := boolParam(params, "capital", false)
	if err != nil {
		return nil, err
	}
	return []byte(codec.HexEncode(input, capital)), nil
}

// HexDecodeOp decodes a hexadecimal string to bytes
type HexDecodeOp struct {
	BaseOperation
}

func (op *HexDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	decoded, err := codec.HexDecode(strings.TrimSpace(string(input)))
	if err != nil {
		return nil, fmt.Errorf("hex decode failed: %w", err)
	}
	return decoded, nil
}

// Base64 Operations

// Base64EncodeOp encodes data as standard Base64. Padding is emitted unless
// the "padding" parameter is false.
type Base64EncodeOp struct {
	BaseOperation
}

func (op *Base64EncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	padding, err := boolParam(params, "padding", true)
	if err != nil {
		return nil, err
	}
	return []byte(codec.Base64Encode(input, padding)), nil
}

// Base64DecodeOp decodes standard Base64 data, padded or not
type Base64DecodeOp struct {
	BaseOperation
}

func (op *Base64DecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	decoded, err := codec.Base64Decode(strings.TrimSpace(string(input)))
	if err != nil {
		return nil, fmt.Errorf("base64 decode failed: %w", err)
	}
	return decoded, nil
}

// XOR Operations

// XorByteOp combines every input byte with the "key" parameter.
type XorByteOp struct {
	BaseOperation
}

func (op *XorByteOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := byteParam(params, "key")
	if err != nil {
		return nil, err
	}
	return xorbytes.XorByte(key, input), nil
}

// XorRepeatingOp cycles a multi-byte key over the input. The key comes from
// "key" as literal text or from "key_hex".
type XorRepeatingOp struct {
	BaseOperation
}

func (op *XorRepeatingOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := keyParam(params)
	if err != nil {
		return nil, err
	}
	return xorbytes.XorRepeating(key, input)
}

// PrintableOp replaces non-printable bytes with the "placeholder" parameter.
type PrintableOp struct {
	BaseOperation
}

func (op *PrintableOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	placeholder := byte(display.DefaultPlaceholder)
	if raw, ok := params["placeholder"]; ok {
		s, isString := raw.(string)
		if !isString || len(s) != 1 {
			return nil, fmt.Errorf("%w: placeholder must be a single character", xorerr.ErrInvalidArgument)
		}
		placeholder = s[0]
	}
	return []byte(display.Printable(input, placeholder)), nil
}

func boolParam(params map[string]interface{}, name string, def bool) (bool, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%w: parameter %s: %q is not a boolean", xorerr.ErrInvalidArgument, name, v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: parameter %s must be a boolean, got %T", xorerr.ErrInvalidArgument, name, raw)
	}
}

// byteParam accepts a number or a string in Go literal syntax ("88", "0x58").
func byteParam(params map[string]interface{}, name string) (byte, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: parameter %s is required", xorerr.ErrInvalidArgument, name)
	}
	var value int64
	switch v := raw.(type) {
	case int:
		value = int64(v)
	case int64:
		value = v
	case uint8:
		value = int64(v)
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("%w: parameter %s must be an integer, got %v", xorerr.ErrInvalidArgument, name, v)
		}
		value = int64(v)
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 0, 8)
		if err != nil {
			return 0, fmt.Errorf("%w: parameter %s: %q is not a byte", xorerr.ErrInvalidArgument, name, v)
		}
		value = int64(parsed)
	default:
		return 0, fmt.Errorf("%w: parameter %s must be a byte, got %T", xorerr.ErrInvalidArgument, name, raw)
	}
	if value < 0 || value > 0xff {
		return 0, fmt.Errorf("%w: parameter %s out of byte range: %d", xorerr.ErrInvalidArgument, name, value)
	}
	return byte(value), nil
}

func keyParam(params map[string]interface{}) ([]byte, error) {
	if raw, ok := params["key_hex"]; ok {
		s, isString := raw.(string)
		if !isString {
			return nil, fmt.Errorf("%w: key_hex must be a string", xorerr.ErrInvalidArgument)
		}
		return codec.HexDecode(strings.TrimSpace(s))
	}
	if raw, ok := params["key"]; ok {
		s, isString := raw.(string)
		if !isString {
			return nil, fmt.Errorf("%w: key must be a string", xorerr.ErrInvalidArgument)
		}
		return []byte(s), nil
	}
	return nil, fmt.Errorf("%w: parameter key or key_hex is required", xorerr.ErrInvalidArgument)
}

func init() {
	hexEncode := &HexEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode bytes as hexadecimal (capital=true for A-F)",
		},
	}
	hexDecode := &HexDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode an even-length hexadecimal string",
		},
	}
	hexEncode.ReverseOp = hexDecode
	hexDecode.ReverseOp = hexEncode

	base64Encode := &Base64EncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode data as standard Base64 (padding=false to omit '=')",
		},
	}
	base64Decode := &Base64DecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode standard Base64, padded or unpadded",
		},
	}
	base64Encode.ReverseOp = base64Decode
	base64Decode.ReverseOp = base64Encode

	xorByte := &XorByteOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_byte",
			TypeValue:        OperationTypeTransform,
			DescriptionValue: "XOR every byte with key (e.g. key=0x58)",
		},
	}
	xorByte.ReverseOp = xorByte

	xorRepeating := &XorRepeatingOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_repeating",
			TypeValue:        OperationTypeTransform,
			DescriptionValue: "XOR with a repeating key (key=TEXT or key_hex=HEX)",
		},
	}
	xorRepeating.ReverseOp = xorRepeating

	printable := &PrintableOp{
		BaseOperation: BaseOperation{
			NameValue:        "printable",
			TypeValue:        OperationTypeTransform,
			DescriptionValue: "Replace non-printable bytes with placeholder (default '_')",
		},
	}

	mustRegister(hexEncode, hexDecode, base64Encode, base64Decode, xorByte, xorRepeating, printable)
}
