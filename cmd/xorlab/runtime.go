package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/RowanDark/xorlab/internal/codec"
	"github.com/RowanDark/xorlab/internal/config"
	"github.com/RowanDark/xorlab/internal/display"
	"github.com/RowanDark/xorlab/internal/history"
	"github.com/RowanDark/xorlab/internal/lines"
	"github.com/RowanDark/xorlab/internal/logging"
	"github.com/RowanDark/xorlab/internal/observability/tracing"
)

// commonFlags are accepted by every analysis command.
type commonFlags struct {
	verbose   bool
	noHistory bool
	input     string
	encoding  string
}

func registerCommon(fs *flag.FlagSet, defaultEncoding codec.Encoding) *commonFlags {
	c := &commonFlags{}
	fs.BoolVar(&c.verbose, "v", false, "enable debug logging")
	fs.BoolVar(&c.noHistory, "no-history", false, "do not record this run")
	fs.StringVar(&c.input, "in", "-", "input file, - for stdin")
	fs.StringVar(&c.encoding, "enc", string(defaultEncoding), "input encoding: raw, hex, base64 or auto")
	return c
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// environment bundles what a command needs beyond its flags.
type environment struct {
	cfg       config.Config
	logger    *slog.Logger
	events    *logging.EventLogger
	noHistory bool
}

func setup(ctx context.Context, c *commonFlags) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelInfo
	if c != nil && c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	events := logging.Discard()
	if cfg.EventLog != "" {
		events, err = logging.NewEventLogger("cli", logging.WithoutStdout(), logging.WithFile(cfg.EventLog))
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
	}

	return &environment{
		cfg:       cfg,
		logger:    logger,
		events:    events,
		noHistory: c != nil && c.noHistory,
	}, nil
}

func (e *environment) close(ctx context.Context) {
	if err := e.events.Close(); err != nil {
		e.logger.Warn("close event log", "error", err)
	}
}

func (e *environment) placeholder() byte {
	return e.cfg.Placeholder[0]
}

// record stores a finished run. Failures are logged rather than returned so
// an unwritable history never hides a result.
func (e *environment) record(ctx context.Context, run history.Run) {
	if e.noHistory || e.cfg.HistoryPath == "" {
		return
	}
	store, err := history.Open(e.cfg.HistoryPath)
	if err != nil {
		e.logger.Warn("open history", "path", e.cfg.HistoryPath, "error", err)
		return
	}
	defer store.Close()

	run.TraceID = tracing.TraceIDFromContext(ctx)
	if len(run.Preview) > display.DefaultPreview {
		run.Preview = run.Preview[:display.DefaultPreview]
	}
	stored, err := store.Record(ctx, run)
	if err != nil {
		e.logger.Warn("record history", "error", err)
		return
	}
	e.emit(logging.EventHistoryRecorded, logging.OutcomeSuccess, map[string]any{"id": stored.ID, "command": stored.Command})
	e.logger.Debug("recorded run", "id", stored.ID)
}

func (e *environment) emit(eventType logging.EventType, outcome logging.Outcome, metadata map[string]any) {
	if err := e.events.Emit(logging.Event{EventType: eventType, Outcome: outcome, Metadata: metadata}); err != nil {
		e.logger.Warn("write event", "error", err)
	}
}

func openInput(path string) (io.ReadCloser, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// readJoined reads the whole input as one message.
func (e *environment) readJoined(ctx context.Context, c *commonFlags) ([]byte, error) {
	enc, err := codec.ParseEncoding(c.encoding)
	if err != nil {
		return nil, err
	}
	_, span := tracing.StartSpan(ctx, "input.read", map[string]any{"encoding": string(enc), "mode": "joined"})
	defer span.End()

	r, err := openInput(c.input)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := lines.ReadJoined(r, enc)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("decode input: %w", err)
	}
	span.SetAttribute("bytes", len(data))
	e.emit(logging.EventInputDecoded, logging.OutcomeSuccess, map[string]any{"encoding": string(enc), "bytes": len(data)})
	return data, nil
}

// readMessages reads one message per line.
func (e *environment) readMessages(ctx context.Context, c *commonFlags) ([][]byte, error) {
	enc, err := codec.ParseEncoding(c.encoding)
	if err != nil {
		return nil, err
	}
	_, span := tracing.StartSpan(ctx, "input.read", map[string]any{"encoding": string(enc), "mode": "lines"})
	defer span.End()

	r, err := openInput(c.input)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	messages, err := lines.ReadMessages(r, enc)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("decode input: %w", err)
	}
	span.SetAttribute("messages", len(messages))
	e.emit(logging.EventInputDecoded, logging.OutcomeSuccess, map[string]any{"encoding": string(enc), "messages": len(messages)})
	return messages, nil
}
