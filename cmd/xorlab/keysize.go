package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/RowanDark/xorlab/internal/codec"
	"github.com/RowanDark/xorlab/internal/keysize"
)

// keysizeFlags overrides the configured search window when set.
type keysizeFlags struct {
	min, max, minBlocks, maxBlocks int
}

func registerKeysize(fs *flag.FlagSet) *keysizeFlags {
	k := &keysizeFlags{}
	fs.IntVar(&k.min, "min", 0, "smallest key length to try")
	fs.IntVar(&k.max, "max", 0, "largest key length to try")
	fs.IntVar(&k.minBlocks, "min-blocks", 0, "fewest blocks a key length needs")
	fs.IntVar(&k.maxBlocks, "max-blocks", -1, "blocks compared per key length, 0 for all")
	return k
}

func (k *keysizeFlags) apply(opts keysize.Options) keysize.Options {
	if k.min > 0 {
		opts.MinSize = k.min
	}
	if k.max > 0 {
		opts.MaxSize = k.max
	}
	if k.minBlocks > 0 {
		opts.MinBlocks = k.minBlocks
	}
	if k.maxBlocks >= 0 {
		opts.MaxBlocks = k.maxBlocks
	}
	return opts
}

func runKeysize(ctx context.Context, args []string) int {
	fs := newFlagSet("keysize")
	common := registerCommon(fs, codec.Auto)
	window := registerKeysize(fs)
	top := fs.Int("top", 5, "key lengths to print, 0 for all")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 || *top < 0 {
		fmt.Fprintln(stderr, "usage: xorlab keysize [-in file] [-enc auto] [-top n]")
		return 2
	}

	env, err := setup(ctx, common)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer env.close(ctx)

	ciphertext, err := env.readJoined(ctx, common)
	if err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}

	trials, err := keysize.Rank(ciphertext, window.apply(env.cfg.KeySize))
	if err != nil {
		fmt.Fprintf(stderr, "rank key sizes: %v\n", err)
		return 1
	}
	if *top > 0 && len(trials) > *top {
		trials = trials[:*top]
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSIZE\tDISTANCE")
	for i, trial := range trials {
		fmt.Fprintf(tw, "%d\t%d\t%.4f\n", i, trial.Size, trial.Distance)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stderr, "print key sizes: %v\n", err)
		return 1
	}
	return 0
}
