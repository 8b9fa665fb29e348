package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/RowanDark/xorlab/internal/codec"
	"github.com/RowanDark/xorlab/internal/display"
	"github.com/RowanDark/xorlab/internal/history"
	"github.com/RowanDark/xorlab/internal/scoring"
	"github.com/RowanDark/xorlab/internal/solver"
	"github.com/RowanDark/xorlab/internal/xorerr"
)

const promptHelp = `commands:
  next <col>        use the next-ranked key byte for a column
  prev <col>        use the previous key byte for a column
  set <col> <hex>   use a specific ranked key byte for a column
  show [col]        print the key and plaintext, or a column's ranking
  accept            keep the current key and exit
  quit              exit without recording`

func runBreak(ctx context.Context, args []string) int {
	fs := newFlagSet("break")
	common := registerCommon(fs, codec.Auto)
	window := registerKeysize(fs)
	size := fs.Int("size", 0, "use this key length instead of estimating it")
	count := fs.Int("n", 0, "candidates kept per column (default from config)")
	interactive := fs.Bool("interactive", false, "adjust the key column by column before accepting it")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 || *size < 0 {
		fmt.Fprintln(stderr, "usage: xorlab break [-in file] [-enc auto] [-size n] [-interactive]")
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

	capacity := env.cfg.Candidates
	if *count > 0 {
		capacity = *count
	}
	opts := []solver.Option{
		solver.WithCapacity(capacity),
		solver.WithKeySizeOptions(window.apply(env.cfg.KeySize)),
		solver.WithLogger(env.logger),
		solver.WithEvents(env.events),
	}

	session, err := breakCiphertext(ctx, ciphertext, *size, opts)
	if err != nil {
		fmt.Fprintf(stderr, "break: %v\n", err)
		return 1
	}
	runMetrics.CandidatesScored.AddWith(float64(256*session.ColumnsScored()), "break")

	if *interactive {
		if accepted := prompt(stdin, stdout, session, env.placeholder()); !accepted {
			return 0
		}
	}

	printResult(stdout, session)
	score, _ := scoring.Score(session.Plaintext())
	env.record(ctx, history.Run{
		Command: "break",
		KeyHex:  codec.HexEncode(session.Key(), false),
		KeySize: session.KeySize(),
		Score:   score,
		Preview: display.Printable(session.Plaintext(), env.placeholder()),
	})
	return 0
}

func breakCiphertext(ctx context.Context, ciphertext []byte, size int, opts []solver.Option) (*solver.Session, error) {
	if size == 0 {
		return solver.Solve(ctx, ciphertext, opts...)
	}
	session, err := solver.NewSession(ciphertext, opts...)
	if err != nil {
		return nil, err
	}
	if err := session.SetKeySize(size); err != nil {
		return nil, err
	}
	if err := session.SolveColumns(ctx); err != nil {
		return nil, err
	}
	if err := session.AssembleKey(); err != nil {
		return nil, err
	}
	return session, nil
}

func printResult(w io.Writer, s *solver.Session) {
	key := s.Key()
	fmt.Fprintf(w, "Key size: %d\n", s.KeySize())
	fmt.Fprintf(w, "Key (hex): %s\n", codec.HexEncode(key, false))
	fmt.Fprintf(w, "Key: %s\n\n", display.Printable(key, display.DefaultPlaceholder))
	fmt.Fprintln(w, string(s.Plaintext()))
}

// prompt runs the correction loop until the user accepts or quits. It reports
// whether the key was accepted; end of input counts as quitting.
func prompt(in io.Reader, out io.Writer, s *solver.Session, placeholder byte) bool {
	showKey(out, s, placeholder)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return false
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "accept":
			return true
		case "quit", "exit":
			return false
		case "help", "?":
			fmt.Fprintln(out, promptHelp)
		case "show":
			if len(fields) == 1 {
				showKey(out, s, placeholder)
				fmt.Fprintln(out, display.Printable(s.Plaintext(), placeholder))
				continue
			}
			col, err := parseColumn(fields[1], s)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			showColumn(out, s, col, placeholder)
		case "next", "prev":
			if len(fields) != 2 {
				fmt.Fprintf(out, "usage: %s <col>\n", fields[0])
				continue
			}
			col, err := parseColumn(fields[1], s)
			if err == nil {
				if fields[0] == "next" {
					err = s.Next(col)
				} else {
					err = s.Prev(col)
				}
			}
			reportMove(out, s, err, placeholder)
		case "set":
			if len(fields) != 3 {
				fmt.Fprintln(out, "usage: set <col> <hex>")
				continue
			}
			col, err := parseColumn(fields[1], s)
			if err == nil {
				var key uint64
				key, err = strconv.ParseUint(strings.TrimPrefix(strings.ToLower(fields[2]), "0x"), 16, 8)
				if err != nil {
					err = fmt.Errorf("%w: %q is not a hex byte", xorerr.ErrInvalidArgument, fields[2])
				} else {
					err = s.Select(col, byte(key))
				}
			}
			reportMove(out, s, err, placeholder)
		default:
			fmt.Fprintf(out, "unknown command %q (try help)\n", fields[0])
		}
	}
}

func reportMove(out io.Writer, s *solver.Session, err error, placeholder byte) {
	switch {
	case errors.Is(err, xorerr.ErrCursorBoundary):
		fmt.Fprintln(out, "cannot move further")
	case err != nil:
		fmt.Fprintf(out, "error: %v\n", err)
	default:
		showKey(out, s, placeholder)
	}
}

func parseColumn(text string, s *solver.Session) (int, error) {
	col, err := strconv.Atoi(text)
	if err != nil || col < 0 || col >= s.Columns() {
		return 0, fmt.Errorf("%w: column must be between 0 and %d", xorerr.ErrInvalidArgument, s.Columns()-1)
	}
	return col, nil
}

func showKey(out io.Writer, s *solver.Session, placeholder byte) {
	key := s.Key()
	fmt.Fprintf(out, "key %s %q\n", codec.HexEncode(key, false), display.Printable(key, placeholder))
}

func showColumn(out io.Writer, s *solver.Session, col int, placeholder byte) {
	candidates, err := s.Column(col)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	columns, err := solver.Transpose(s.Ciphertext(), s.KeySize())
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if err := display.Table(out, candidates, columns[col], s.Cursor(col), placeholder); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
	}
}
