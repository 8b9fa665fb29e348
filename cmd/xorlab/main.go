package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/RowanDark/xorlab/internal/config"
	"github.com/RowanDark/xorlab/internal/observability/metrics"
	"github.com/RowanDark/xorlab/internal/observability/tracing"
)

const productName = "xorlab"

var runMetrics = metrics.NewRegistry()

var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string) int
}

var commands []command

func init() {
	commands = []command{
		{"convert", "re-encode input between raw, hex and base64", runConvert},
		{"xor", "XOR two equal-length hex buffers", runXor},
		{"encrypt", "apply repeating-key XOR to input", runEncrypt},
		{"single", "rank single-byte keys for one message", runSingle},
		{"detect", "find the line encrypted with single-byte XOR", runDetect},
		{"keysize", "rank likely repeating-key lengths", runKeysize},
		{"break", "recover a repeating XOR key and plaintext", runBreak},
		{"ops", "list and run operation pipelines and recipes", runOps},
		{"history", "list and show recorded runs", runHistory},
		{"config", "print the resolved configuration", runConfig},
		{"version", "print the version", runVersion},
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		usage(stdout)
		return 0
	}
	for _, cmd := range commands {
		if cmd.name == name {
			return runCommand(cmd, args[1:])
		}
	}
	fmt.Fprintf(stderr, "unknown command: %s\n", name)
	usage(stderr)
	return 2
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "%s: XOR cryptanalysis toolkit\n\n", productName)
	fmt.Fprintf(w, "Usage: %s <command> [flags]\n\nCommands:\n", productName)
	width := 0
	for _, cmd := range commands {
		width = max(width, len(cmd.name))
	}
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %s%s  %s\n", cmd.name, strings.Repeat(" ", width-len(cmd.name)), cmd.summary)
	}
}

// runCommand executes cmd inside a span named after it. The span context is
// handed to the command and reused for the duration sample.
func runCommand(cmd command, args []string) int {
	start := time.Now()
	base := context.Background()

	cfg, cfgErr := config.Load()
	shutdown := func(context.Context) error { return nil }
	if cfgErr == nil && cfg.Trace.File != "" {
		var err error
		shutdown, err = tracing.Setup(base, tracing.Config{
			ServiceName: productName,
			SampleRatio: cfg.Trace.SampleRatio,
			FilePath:    cfg.Trace.File,
		})
		if err != nil {
			fmt.Fprintf(stderr, "configure tracing: %v\n", err)
			recordMetrics(base, cfg.MetricsFile, cmd.name, 1, time.Since(start))
			return 1
		}
	}

	ctx, span := tracing.StartSpan(base, productName+"."+cmd.name, map[string]any{"command": cmd.name, "args": len(args)})
	code := cmd.run(ctx, args)
	span.SetAttribute("exit_code", code)
	if code == 0 {
		span.EndWithStatus(tracing.StatusOK, "")
	} else {
		span.EndWithStatus(tracing.StatusError, fmt.Sprintf("exit code %d", code))
	}

	metricsFile := ""
	if cfgErr == nil {
		metricsFile = cfg.MetricsFile
	}
	recordMetrics(ctx, metricsFile, cmd.name, code, time.Since(start))
	if err := shutdown(base); err != nil {
		fmt.Fprintf(stderr, "flush traces: %v\n", err)
	}
	return code
}

// recordMetrics updates the run counters and, when path is set, rewrites the
// metrics file. Samples taken under a traced ctx carry its trace ID.
func recordMetrics(ctx context.Context, path, command string, code int, elapsed time.Duration) {
	outcome := "success"
	switch code {
	case 0:
	case 2:
		outcome = "usage"
	default:
		outcome = "failure"
	}
	runMetrics.Runs.IncWith(command, outcome)
	runMetrics.Duration.ObserveWithContext(ctx, []string{command}, elapsed.Seconds())

	if path == "" {
		return
	}
	if err := runMetrics.WriteFile(path); err != nil {
		fmt.Fprintf(stderr, "write metrics: %v\n", err)
	}
}
