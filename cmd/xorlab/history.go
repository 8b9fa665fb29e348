package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/RowanDark/xorlab/internal/history"
)

func runHistory(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "history subcommand required")
		return 2
	}
	switch args[0] {
	case "list":
		return runHistoryList(ctx, args[1:])
	case "show":
		return runHistoryShow(ctx, args[1:])
	default:
		fmt.Fprintf(stderr, "unknown history subcommand: %s\n", args[0])
		return 2
	}
}

func openHistory(ctx context.Context) (*history.Store, func(), error) {
	env, err := setup(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	store, err := history.Open(env.cfg.HistoryPath)
	if err != nil {
		env.close(ctx)
		return nil, nil, fmt.Errorf("open history: %w", err)
	}
	return store, func() {
		store.Close()
		env.close(ctx)
	}, nil
}

func runHistoryList(ctx context.Context, args []string) int {
	fs := newFlagSet("history list")
	limit := fs.Int("n", 20, "runs to show, 0 for all")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	store, done, err := openHistory(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer done()

	runs, err := store.List(ctx, *limit)
	if err != nil {
		fmt.Fprintf(stderr, "list history: %v\n", err)
		return 1
	}
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tCOMMAND\tKEY\tSIZE\tSCORE\tPREVIEW")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.6f\t%s\n",
			run.ID, run.CreatedAt.Format(time.RFC3339), run.Command, run.KeyHex, run.KeySize, run.Score, run.Preview)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stderr, "print history: %v\n", err)
		return 1
	}
	return 0
}

func runHistoryShow(ctx context.Context, args []string) int {
	fs := newFlagSet("history show")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: xorlab history show <id>")
		return 2
	}
	store, done, err := openHistory(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer done()

	run, err := store.Get(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "show run: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		fmt.Fprintf(stderr, "print run: %v\n", err)
		return 1
	}
	return 0
}
