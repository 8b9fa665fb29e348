package main

import (
	"context"
	"fmt"

	"github.com/RowanDark/xorlab/internal/codec"
	"github.com/RowanDark/xorlab/internal/display"
	"github.com/RowanDark/xorlab/internal/history"
	"github.com/RowanDark/xorlab/internal/logging"
	"github.com/RowanDark/xorlab/internal/observability/tracing"
	"github.com/RowanDark/xorlab/internal/solver"
	"github.com/RowanDark/xorlab/internal/xorbytes"
)

func runDetect(ctx context.Context, args []string) int {
	fs := newFlagSet("detect")
	common := registerCommon(fs, codec.Auto)
	count := fs.Int("n", 0, "candidates to keep across all lines (default from config)")
	top := fs.Int("top", 1, "candidates to print")
	output := fs.String("out", "", "write the ranked candidates as JSONL")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 || *top < 1 {
		fmt.Fprintln(stderr, "usage: xorlab detect [-in file] [-enc auto] [-top n]")
		return 2
	}

	env, err := setup(ctx, common)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer env.close(ctx)

	messages, err := env.readMessages(ctx, common)
	if err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}
	capacity := env.cfg.Candidates
	if *count > 0 {
		capacity = *count
	}

	spanCtx, span := tracing.StartSpan(ctx, "solver.detect", map[string]any{"messages": len(messages)})
	list, err := solver.Detect(messages, capacity)
	if err != nil {
		span.RecordError(err)
		span.End()
		fmt.Fprintf(stderr, "detect: %v\n", err)
		return 1
	}
	span.End()
	runMetrics.CandidatesScored.AddWith(float64(256*nonEmpty(messages)), "detect")
	if code := writeRanked(*output, list); code != 0 {
		return code
	}

	for i, c := range list.Candidates() {
		if i >= *top {
			break
		}
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprintf(stdout, "Line: %d\n", c.Source+1)
		if err := display.Candidate(stdout, c, messages[c.Source], env.placeholder()); err != nil {
			fmt.Fprintf(stderr, "print candidate: %v\n", err)
			return 1
		}
	}

	best, _ := list.Best()
	env.emit(logging.EventDetection, logging.OutcomeSuccess, map[string]any{
		"line":  best.Source + 1,
		"key":   best.Key,
		"score": best.Score,
	})
	env.record(spanCtx, history.Run{
		Command: "detect",
		KeyHex:  codec.HexEncode([]byte{best.Key}, false),
		KeySize: 1,
		Score:   best.Score,
		Preview: display.Printable(xorbytes.XorByte(best.Key, messages[best.Source]), env.placeholder()),
	})
	return 0
}

func nonEmpty(messages [][]byte) int {
	n := 0
	for _, m := range messages {
		if len(m) > 0 {
			n++
		}
	}
	return n
}
