package main

import (
	"context"
	"fmt"

	"github.com/RowanDark/xorlab/internal/cipher"
	"github.com/RowanDark/xorlab/internal/codec"
)

var encodeOps = map[codec.Encoding]string{codec.Hex: "hex_encode", codec.Base64: "base64_encode"}

func runConvert(ctx context.Context, args []string) int {
	fs := newFlagSet("convert")
	common := registerCommon(fs, codec.Auto)
	to := fs.String("to", string(codec.Hex), "output encoding: raw, hex or base64")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "convert takes no arguments")
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

	// The input is decoded by the reader, so the pipeline only re-encodes.
	data, err := env.readJoined(ctx, common)
	if err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}

	pipeline := conversionPipeline(out)
	result, err := pipeline.Execute(ctx, data)
	if err != nil {
		fmt.Fprintf(stderr, "convert: %v\n", err)
		return 1
	}
	env.logger.Debug("converted input", "pipeline", pipeline.String(), "bytes", len(data))
	fmt.Fprintln(stdout, string(result))
	return 0
}

func conversionPipeline(out codec.Encoding) *cipher.Pipeline {
	pipeline := &cipher.Pipeline{Reversible: true}
	if op, ok := encodeOps[out]; ok {
		pipeline.Operations = append(pipeline.Operations, cipher.OperationConfig{Name: op})
	}
	return pipeline
}
