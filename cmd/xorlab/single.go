package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/RowanDark/xorlab/internal/codec"
	"github.com/RowanDark/xorlab/internal/display"
	"github.com/RowanDark/xorlab/internal/history"
	"github.com/RowanDark/xorlab/internal/ranker"
	"github.com/RowanDark/xorlab/internal/solver"
	"github.com/RowanDark/xorlab/internal/xorbytes"
)

func runSingle(ctx context.Context, args []string) int {
	fs := newFlagSet("single")
	common := registerCommon(fs, codec.Auto)
	count := fs.Int("n", 0, "candidates to keep (default from config)")
	all := fs.Bool("all", false, "print every kept candidate instead of the best")
	output := fs.String("out", "", "write the ranked candidates as JSONL")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "single takes no arguments")
		return 2
	}

	env, err := setup(ctx, common)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer env.close(ctx)

	message, err := env.readJoined(ctx, common)
	if err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}
	capacity := env.cfg.Candidates
	if *count > 0 {
		capacity = *count
	}

	list, err := solver.Rank(message, capacity)
	if err != nil {
		fmt.Fprintf(stderr, "rank keys: %v\n", err)
		return 1
	}
	runMetrics.CandidatesScored.AddWith(256, "single")
	if code := writeRanked(*output, list); code != 0 {
		return code
	}

	best, _ := list.Best()
	if *all {
		err = display.Table(stdout, list.Candidates(), message, 0, env.placeholder())
	} else {
		err = display.Candidate(stdout, best, message, env.placeholder())
	}
	if err != nil {
		fmt.Fprintf(stderr, "print candidates: %v\n", err)
		return 1
	}

	env.record(ctx, history.Run{
		Command: "single",
		KeyHex:  codec.HexEncode([]byte{best.Key}, false),
		KeySize: 1,
		Score:   best.Score,
		Preview: display.Printable(xorbytes.XorByte(best.Key, message), env.placeholder()),
	})
	return 0
}

func writeRanked(path string, list *ranker.List) int {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0
	}
	if err := ranker.WriteJSONL(path, list.Candidates()); err != nil {
		fmt.Fprintf(stderr, "write ranked candidates: %v\n", err)
		return 1
	}
	return 0
}
