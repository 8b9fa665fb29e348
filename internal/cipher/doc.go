// Package cipher exposes the codecs and XOR transforms as named operations
// that can be chained into pipelines, saved as recipes and selected by
// detecting the encoding of an input.
//
// # Operations
//
//	op, _ := cipher.GetOperation("hex_decode")
//	raw, _ := op.Execute(ctx, []byte("1b37373331363f78"), nil)
//
// Registered operations: hex_encode, hex_decode, base64_encode,
// base64_decode, xor_byte, xor_repeating and printable. The XOR operations
// are their own inverse.
//
// # Pipelines
//
//	p, _ := cipher.ParsePipeline("base64_decode|xor_repeating:key=ICE|printable")
//	out, _ := p.Execute(ctx, input)
//
// A pipeline is reversible when every step has an inverse; printable does not.
//
// # Detection
//
//	enc, result := cipher.DetectEncoding(ctx, []byte("SGVsbG8="))
//	// enc == codec.Base64, result.Operation == "base64_decode"
package cipher
