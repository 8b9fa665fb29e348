package main

import (
	"context"
	"fmt"

	"github.com/RowanDark/xorlab/internal/config"
)

func runConfig(ctx context.Context, args []string) int {
	fs := newFlagSet("config")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "config takes no arguments")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	data, err := cfg.YAML()
	if err != nil {
		fmt.Fprintf(stderr, "render config: %v\n", err)
		return 1
	}
	fmt.Fprint(stdout, string(data))
	return 0
}
