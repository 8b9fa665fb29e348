package solver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/RowanDark/xorlab/internal/keysize"
	"github.com/RowanDark/xorlab/internal/logging"
	"github.com/RowanDark/xorlab/internal/observability/tracing"
	"github.com/RowanDark/xorlab/internal/ranker"
	"github.com/RowanDark/xorlab/internal/xorbytes"
	"github.com/RowanDark/xorlab/internal/xorerr"
)

// State is the progress of a repeating-key session.
type State int

const (
	Unsolved State = iota
	SizeGuessed
	ColumnsSolved
	KeyAssembled
)

func (s State) String() string {
	switch s {
	case Unsolved:
		return "unsolved"
	case SizeGuessed:
		return "size_guessed"
	case ColumnsSolved:
		return "columns_solved"
	case KeyAssembled:
		return "key_assembled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MaxCapacity bounds the per-column candidate list; there are only 256 key bytes.
const MaxCapacity = 256

// Session breaks one repeating-key ciphertext. Each column keeps its ranked
// candidates and a cursor so a wrong pick can be corrected without ranking
// again. A Session is not safe for concurrent use.
type Session struct {
	ciphertext []byte
	capacity   int
	sizeOpts   keysize.Options
	logger     *slog.Logger
	events     *logging.EventLogger

	state     State
	keySize   int
	columns   []*ranker.List
	cursors   []int
	key       []byte
	plaintext []byte

	// columnsScored counts every column ranked over the session's lifetime,
	// including work later discarded by a key size change.
	columnsScored int
}

// Option configures a Session.
type Option func(*Session)

// WithCapacity sets how many candidates each column retains.
func WithCapacity(n int) Option {
	return func(s *Session) { s.capacity = n }
}

// WithKeySizeOptions sets the key-length search window.
func WithKeySizeOptions(opts keysize.Options) Option {
	return func(s *Session) { s.sizeOpts = opts }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithEvents(events *logging.EventLogger) Option {
	return func(s *Session) {
		if events != nil {
			s.events = events.WithComponent("solver")
		}
	}
}

// NewSession prepares a session over a copy of ciphertext.
func NewSession(ciphertext []byte, opts ...Option) (*Session, error) {
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("%w: ciphertext is empty", xorerr.ErrInsufficientData)
	}
	s := &Session{
		ciphertext: append([]byte(nil), ciphertext...),
		capacity:   ranker.DefaultCapacity,
		sizeOpts:   keysize.Defaults(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.capacity < 1 || s.capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: candidate capacity must be in [1, %d], got %d", xorerr.ErrInvalidArgument, MaxCapacity, s.capacity)
	}
	if err := s.sizeOpts.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// GuessKeySize estimates the key length from the ciphertext. Any earlier
// column work is discarded.
func (s *Session) GuessKeySize(ctx context.Context) (int, error) {
	_, span := tracing.StartSpan(ctx, "solver.guess_key_size", map[string]any{"bytes": len(s.ciphertext)})
	defer span.End()

	size, err := keysize.Guess(s.ciphertext, s.sizeOpts)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	s.reset(size)
	span.SetAttribute("key_size", size)
	s.logger.Debug("key size guessed", "key_size", size)
	s.emit(logging.EventKeySizeGuessed, logging.OutcomeSuccess, map[string]any{"key_size": size, "source": "estimated"}, "")
	return size, nil
}

// SetKeySize fixes the key length. Any earlier column work is discarded.
func (s *Session) SetKeySize(size int) error {
	if size < 1 || size > len(s.ciphertext) {
		return fmt.Errorf("%w: key size %d outside [1, %d]", xorerr.ErrInvalidArgument, size, len(s.ciphertext))
	}
	s.reset(size)
	s.logger.Debug("key size set", "key_size", size)
	s.emit(logging.EventKeySizeGuessed, logging.OutcomeSuccess, map[string]any{"key_size": size, "source": "provided"}, "")
	return nil
}

func (s *Session) reset(size int) {
	s.keySize = size
	s.columns = nil
	s.cursors = nil
	s.key = nil
	s.plaintext = nil
	s.state = SizeGuessed
}

// SolveColumns ranks candidate key bytes for every column concurrently.
func (s *Session) SolveColumns(ctx context.Context) error {
	if s.state < SizeGuessed {
		return s.outOfOrder("solve columns")
	}
	ctx, span := tracing.StartSpan(ctx, "solver.solve_columns", map[string]any{"key_size": s.keySize})
	defer span.End()

	columns, err := Transpose(s.ciphertext, s.keySize)
	if err != nil {
		span.RecordError(err)
		return err
	}

	lists := make([]*ranker.List, len(columns))
	errs := make([]error, len(columns))
	var wg sync.WaitGroup
	for i, column := range columns {
		wg.Add(1)
		go func(i int, column []byte) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			lists[i], errs[i] = Rank(column, s.capacity)
		}(i, column)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			err = fmt.Errorf("column %d: %w", i, err)
			span.RecordError(err)
			return err
		}
	}

	for i, list := range lists {
		if best, ok := list.Best(); ok {
			span.AddEvent("column.ranked", map[string]any{"column": i, "key": int(best.Key), "score": best.Score})
		}
	}

	s.columnsScored += len(lists)
	s.columns = lists
	s.cursors = make([]int, len(lists))
	s.key = nil
	s.plaintext = nil
	s.state = ColumnsSolved
	s.logger.Debug("columns solved", "columns", len(lists))
	s.emit(logging.EventColumnsSolved, logging.OutcomeSuccess, map[string]any{"columns": len(lists), "capacity": s.capacity}, "")
	return nil
}

// AssembleKey builds the key from the candidate under each column's cursor
// and decrypts the ciphertext with it.
func (s *Session) AssembleKey() error {
	if s.state < ColumnsSolved {
		return s.outOfOrder("assemble key")
	}
	if err := s.assemble(); err != nil {
		return err
	}
	s.state = KeyAssembled
	s.emit(logging.EventKeyAssembled, logging.OutcomeSuccess, map[string]any{"key_hex": fmt.Sprintf("%x", s.key)}, "")
	return nil
}

func (s *Session) assemble() error {
	key := make([]byte, len(s.columns))
	for i, list := range s.columns {
		c, ok := list.At(s.cursors[i])
		if !ok {
			return fmt.Errorf("%w: column %d has no candidate at rank %d", xorerr.ErrInvalidArgument, i, s.cursors[i])
		}
		key[i] = c.Key
	}
	plaintext, err := xorbytes.XorRepeating(key, s.ciphertext)
	if err != nil {
		return err
	}
	s.key = key
	s.plaintext = plaintext
	return nil
}

// Next moves the column's cursor to the next lower-ranked candidate.
func (s *Session) Next(col int) error {
	return s.move(col, 1)
}

// Prev moves the column's cursor back toward the best candidate.
func (s *Session) Prev(col int) error {
	return s.move(col, -1)
}

func (s *Session) move(col, delta int) error {
	if err := s.checkColumn(col); err != nil {
		return err
	}
	target := s.cursors[col] + delta
	if target < 0 || target >= s.columns[col].Len() {
		s.emit(logging.EventCursorRejected, logging.OutcomeRejected,
			map[string]any{"column": col, "cursor": s.cursors[col]}, xorerr.ErrCursorBoundary.Error())
		return fmt.Errorf("column %d at rank %d: %w", col, s.cursors[col], xorerr.ErrCursorBoundary)
	}
	return s.moveTo(col, target)
}

// Select moves the column's cursor to the ranked candidate using key.
func (s *Session) Select(col int, key byte) error {
	if err := s.checkColumn(col); err != nil {
		return err
	}
	idx := s.columns[col].Index(key)
	if idx < 0 {
		return fmt.Errorf("%w: key byte %#02x is not ranked for column %d", xorerr.ErrInvalidArgument, key, col)
	}
	return s.moveTo(col, idx)
}

func (s *Session) moveTo(col, target int) error {
	previous := s.cursors[col]
	s.cursors[col] = target
	if err := s.assemble(); err != nil {
		s.cursors[col] = previous
		return err
	}
	s.emit(logging.EventCursorMoved, logging.OutcomeSuccess,
		map[string]any{"column": col, "from": previous, "to": target, "key_hex": fmt.Sprintf("%x", s.key)}, "")
	return nil
}

func (s *Session) checkColumn(col int) error {
	if s.state != KeyAssembled {
		return s.outOfOrder("adjust column")
	}
	if col < 0 || col >= len(s.columns) {
		return fmt.Errorf("%w: column %d outside [0, %d)", xorerr.ErrInvalidArgument, col, len(s.columns))
	}
	return nil
}

func (s *Session) outOfOrder(action string) error {
	return fmt.Errorf("%w: cannot %s in state %s", xorerr.ErrInvalidArgument, action, s.state)
}

func (s *Session) emit(eventType logging.EventType, outcome logging.Outcome, metadata map[string]any, reason string) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(logging.Event{EventType: eventType, Outcome: outcome, Metadata: metadata, Reason: reason}); err != nil {
		s.logger.Warn("emit event failed", "event", eventType, "error", err)
	}
}

func (s *Session) State() State { return s.state }

func (s *Session) KeySize() int { return s.keySize }

// Ciphertext returns a copy of the bytes being broken.
func (s *Session) Ciphertext() []byte { return append([]byte(nil), s.ciphertext...) }

// Key returns a copy of the assembled key, or nil before AssembleKey.
func (s *Session) Key() []byte { return append([]byte(nil), s.key...) }

// Plaintext returns a copy of the current decryption, or nil before AssembleKey.
func (s *Session) Plaintext() []byte { return append([]byte(nil), s.plaintext...) }

// Columns reports how many columns have been ranked.
func (s *Session) Columns() int { return len(s.columns) }

// Column returns the ranked candidates for column i.
func (s *Session) Column(i int) ([]ranker.Candidate, error) {
	if s.state < ColumnsSolved {
		return nil, s.outOfOrder("read column")
	}
	if i < 0 || i >= len(s.columns) {
		return nil, fmt.Errorf("%w: column %d outside [0, %d)", xorerr.ErrInvalidArgument, i, len(s.columns))
	}
	return s.columns[i].Candidates(), nil
}

// ColumnsScored reports how many columns have been ranked, each against all
// 256 key bytes, including columns solved at a key size that was later
// replaced.
func (s *Session) ColumnsScored() int {
	return s.columnsScored
}

// Cursor returns the selected rank for column i, or -1 when it does not exist.
func (s *Session) Cursor(i int) int {
	if i < 0 || i >= len(s.cursors) {
		return -1
	}
	return s.cursors[i]
}

// Solve runs the whole pipeline: estimate the key length, rank each column and
// assemble the best key. A key that repeats within itself is collapsed to its
// period and solved again at that length.
func Solve(ctx context.Context, ciphertext []byte, opts ...Option) (*Session, error) {
	ctx, span := tracing.StartSpan(ctx, "solver.solve", map[string]any{"bytes": len(ciphertext)})
	defer span.End()

	s, err := NewSession(ciphertext, opts...)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if _, err := s.GuessKeySize(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.solveAndAssemble(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if period := keysize.Period(s.key); period < s.keySize {
		s.logger.Debug("collapsing repeated key", "key_size", s.keySize, "period", period)
		if err := s.SetKeySize(period); err != nil {
			return nil, err
		}
		if err := s.solveAndAssemble(ctx); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}
	span.SetAttribute("key_size", s.keySize)
	return s, nil
}

func (s *Session) solveAndAssemble(ctx context.Context) error {
	if err := s.SolveColumns(ctx); err != nil {
		return err
	}
	return s.AssembleKey()
}
