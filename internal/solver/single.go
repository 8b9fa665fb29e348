// Package solver recovers single-byte and repeating XOR keys by scoring every
// candidate key byte against English letter frequencies.
package solver

import (
	"fmt"

	"github.com/RowanDark/xorlab/internal/ranker"
	"github.com/RowanDark/xorlab/internal/scoring"
	"github.com/RowanDark/xorlab/internal/xorbytes"
	"github.com/RowanDark/xorlab/internal/xorerr"
)

// Rank scores all 256 key bytes against message and keeps the best capacity
// candidates.
func Rank(message []byte, capacity int) (*ranker.List, error) {
	list, err := ranker.New(capacity)
	if err != nil {
		return nil, err
	}
	if err := rankInto(list, message, 0); err != nil {
		return nil, err
	}
	return list, nil
}

// Detect ranks every message on its own and merges the per-message lists in
// message order, so the best entries point at the messages most likely to be
// single-byte XOR encrypted English. Ties keep the earlier message. Empty
// messages are skipped.
func Detect(messages [][]byte, capacity int) (*ranker.List, error) {
	list, err := ranker.New(capacity)
	if err != nil {
		return nil, err
	}
	scored := 0
	for idx, message := range messages {
		if len(message) == 0 {
			continue
		}
		local, err := ranker.New(capacity)
		if err != nil {
			return nil, err
		}
		if err := rankInto(local, message, idx); err != nil {
			return nil, fmt.Errorf("message %d: %w", idx, err)
		}
		list.Merge(local)
		scored++
	}
	if scored == 0 {
		return nil, fmt.Errorf("%w: no non-empty messages to score", xorerr.ErrInsufficientData)
	}
	return list, nil
}

func rankInto(list *ranker.List, message []byte, source int) error {
	if len(message) == 0 {
		return fmt.Errorf("%w: cannot rank keys for an empty message", xorerr.ErrInsufficientData)
	}
	buf := make([]byte, len(message))
	for k := 0; k < 256; k++ {
		xorbytes.XorByteInto(buf, message, byte(k))
		score, err := scoring.Score(buf)
		if err != nil {
			return err
		}
		list.Insert(ranker.Candidate{Key: byte(k), Score: score, Source: source})
	}
	return nil
}

// Transpose splits ciphertext into size columns; column i holds the bytes at
// positions i, i+size, i+2*size and so on.
func Transpose(ciphertext []byte, size int) ([][]byte, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: column count must be positive, got %d", xorerr.ErrInvalidArgument, size)
	}
	columns := make([][]byte, size)
	for i := range columns {
		columns[i] = make([]byte, 0, (len(ciphertext)+size-1-i)/size)
	}
	for i, b := range ciphertext {
		columns[i%size] = append(columns[i%size], b)
	}
	return columns, nil
}
