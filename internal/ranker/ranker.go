package ranker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RowanDark/xorlab/internal/xorerr"
)

// DefaultCapacity is the number of candidates retained when no size is configured.
const DefaultCapacity = 20

// Candidate is one key-byte hypothesis annotated with its English score. Source
// identifies the message the key was tried against when several are scored
// together; it is zero for single-message analysis.
type Candidate struct {
	Key    byte    `json:"key"`
	Score  float64 `json:"score"`
	Source int     `json:"source"`
}

// List keeps the best candidates seen so far, ordered by ascending score.
// Candidates with equal scores keep their insertion order.
type List struct {
	entries  []Candidate
	capacity int
}

// New returns an empty list that retains at most capacity candidates.
func New(capacity int) (*List, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: list capacity must be positive, got %d", xorerr.ErrInvalidArgument, capacity)
	}
	return &List{entries: make([]Candidate, 0, capacity), capacity: capacity}, nil
}

// Insert places c at its sorted position. Once the list is full a candidate is
// only kept when it beats the current worst entry, which is then evicted.
// Insert reports whether c was kept.
func (l *List) Insert(c Candidate) bool {
	if len(l.entries) == l.capacity {
		if c.Score >= l.entries[len(l.entries)-1].Score {
			return false
		}
		l.entries = l.entries[:len(l.entries)-1]
	}

	idx := sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].Score > c.Score
	})
	l.entries = append(l.entries, Candidate{})
	copy(l.entries[idx+1:], l.entries[idx:])
	l.entries[idx] = c
	return true
}

// Merge inserts every candidate of other, best first.
func (l *List) Merge(other *List) {
	if other == nil {
		return
	}
	for _, c := range other.entries {
		l.Insert(c)
	}
}

func (l *List) Len() int { return len(l.entries) }

func (l *List) Cap() int { return l.capacity }

// At returns the candidate at rank i (0 is best).
func (l *List) At(i int) (Candidate, bool) {
	if i < 0 || i >= len(l.entries) {
		return Candidate{}, false
	}
	return l.entries[i], true
}

// Best returns the lowest-scoring candidate.
func (l *List) Best() (Candidate, bool) {
	return l.At(0)
}

// Worst returns the highest-scoring retained candidate.
func (l *List) Worst() (Candidate, bool) {
	return l.At(len(l.entries) - 1)
}

// Index returns the rank of the first candidate using key, or -1.
func (l *List) Index(key byte) int {
	for i, c := range l.entries {
		if c.Key == key {
			return i
		}
	}
	return -1
}

// Candidates returns a copy of the ranked entries.
func (l *List) Candidates() []Candidate {
	out := make([]Candidate, len(l.entries))
	copy(out, l.entries)
	return out
}

// WriteJSONL persists ranked candidates to a JSON Lines file at the provided
// path, one candidate per line in rank order.
func WriteJSONL(path string, ranked []Candidate) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("output path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ranked output: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, entry := range ranked {
		if err := encoder.Encode(entry); err != nil {
			return fmt.Errorf("encode candidate: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush ranked output: %w", err)
	}
	return nil
}
