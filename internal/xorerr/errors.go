// Package xorerr holds the error taxonomy shared by the codec, transform and
// analysis packages. Callers match with errors.Is; producers wrap with context.
package xorerr

import "errors"

var (
	// ErrInvalidEncoding reports malformed hex or base64 text.
	ErrInvalidEncoding = errors.New("invalid encoding")
	// ErrLengthMismatch reports an equal-length operation called on unequal buffers.
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrInvalidArgument reports an empty key, a bad option or an out-of-order call.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInsufficientData reports input too short for the requested analysis.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrCursorBoundary reports a candidate cursor already at the end of its ranking.
	ErrCursorBoundary = errors.New("cannot move further")
)
