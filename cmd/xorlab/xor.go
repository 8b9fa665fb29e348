package main

import (
	"context"
	"fmt"

	"github.com/RowanDark/xorlab/internal/codec"
	"github.com/RowanDark/xorlab/internal/xorbytes"
)

func runXor(ctx context.Context, args []string) int {
	fs := newFlagSet("xor")
	encoding := fs.String("enc", string(codec.Hex), "encoding of both operands and the result")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(stderr, "usage: xorlab xor [-enc hex] <a> <b>")
		return 2
	}
	enc, err := codec.ParseEncoding(*encoding)
	if err != nil || enc == codec.Auto {
		fmt.Fprintf(stderr, "invalid -enc encoding %q\n", *encoding)
		return 2
	}

	a, err := codec.Decode(enc, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "decode first operand: %v\n", err)
		return 1
	}
	b, err := codec.Decode(enc, fs.Arg(1))
	if err != nil {
		fmt.Fprintf(stderr, "decode second operand: %v\n", err)
		return 1
	}
	result, err := xorbytes.Xor(a, b)
	if err != nil {
		fmt.Fprintf(stderr, "xor: %v\n", err)
		return 1
	}
	text, err := codec.Encode(enc, result)
	if err != nil {
		fmt.Fprintf(stderr, "encode result: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, text)
	return 0
}
