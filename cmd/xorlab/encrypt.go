package main

import (
	"context"
	"fmt"

	"github.com/RowanDark/xorlab/internal/cipher"
	"github.com/RowanDark/xorlab/internal/codec"
)

func runEncrypt(ctx context.Context, args []string) int {
	fs := newFlagSet("encrypt")
	common := registerCommon(fs, codec.Raw)
	key := fs.String("key", "", "repeating key as text")
	keyHex := fs.String("key-hex", "", "repeating key as hex")
	to := fs.String("to", string(codec.Hex), "output encoding: raw, hex or base64")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if (*key == "") == (*keyHex == "") {
		fmt.Fprintln(stderr, "exactly one of -key or -key-hex is required")
		return 2
	}
	out, err := codec.ParseEncoding(*to)
	if err != nil || out == codec.Auto {
		fmt.Fprintf(stderr, "invalid -to encoding %q\n", *to)
		return 2
	}

	env, err := setup(ctx, common)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer env.close(ctx)

	data, err := env.readJoined(ctx, common)
	if err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}

	params := map[string]interface{}{"key": *key}
	if *keyHex != "" {
		params = map[string]interface{}{"key_hex": *keyHex}
	}
	pipeline := conversionPipeline(out)
	pipeline.Operations = append([]cipher.OperationConfig{{Name: "xor_repeating", Parameters: params}}, pipeline.Operations...)

	result, err := pipeline.Execute(ctx, data)
	if err != nil {
		fmt.Fprintf(stderr, "encrypt: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(result))
	return 0
}
