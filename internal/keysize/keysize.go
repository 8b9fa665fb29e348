// Package keysize estimates the length of a repeating XOR key from the
// normalized Hamming distance between consecutive ciphertext blocks.
package keysize

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/RowanDark/xorlab/internal/xorerr"
)

// Options bounds the key-length search.
type Options struct {
	// MinSize and MaxSize form the inclusive range of trial key lengths.
	MinSize int `yaml:"min_size" json:"min_size"`
	MaxSize int `yaml:"max_size" json:"max_size"`
	// MinBlocks is the fewest complete blocks a trial length needs to be
	// evaluated.
	MinBlocks int `yaml:"min_blocks" json:"min_blocks"`
	// MaxBlocks caps the blocks compared per trial length; zero uses all of them.
	MaxBlocks int `yaml:"max_blocks" json:"max_blocks"`
}

// Defaults returns the standard search window.
func Defaults() Options {
	return Options{MinSize: 2, MaxSize: 40, MinBlocks: 4}
}

// Validate reports whether the options describe a usable search.
func (o Options) Validate() error {
	switch {
	case o.MinSize < 1:
		return fmt.Errorf("%w: minimum key size must be positive, got %d", xorerr.ErrInvalidArgument, o.MinSize)
	case o.MaxSize < o.MinSize:
		return fmt.Errorf("%w: maximum key size %d below minimum %d", xorerr.ErrInvalidArgument, o.MaxSize, o.MinSize)
	case o.MinBlocks < 2:
		return fmt.Errorf("%w: at least two blocks are required, got %d", xorerr.ErrInvalidArgument, o.MinBlocks)
	case o.MaxBlocks != 0 && o.MaxBlocks < o.MinBlocks:
		return fmt.Errorf("%w: block cap %d below minimum %d", xorerr.ErrInvalidArgument, o.MaxBlocks, o.MinBlocks)
	}
	return nil
}

// Trial is the normalized distance measured for one key length.
type Trial struct {
	Size     int     `json:"size"`
	Distance float64 `json:"distance"`
}

// HammingDistance counts the differing bits between two equal-length buffers.
func HammingDistance(a, b []byte) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: hamming distance of %d and %d bytes", xorerr.ErrLengthMismatch, len(a), len(b))
	}
	distance := 0
	for i := range a {
		distance += bits.OnesCount8(a[i] ^ b[i])
	}
	return distance, nil
}

// Rank evaluates every trial length that fits the ciphertext and returns them
// ordered by ascending distance, shorter lengths first on ties.
func Rank(ciphertext []byte, opts Options) ([]Trial, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var trials []Trial
	for size := opts.MinSize; size <= opts.MaxSize; size++ {
		blocks := len(ciphertext) / size
		if opts.MaxBlocks > 0 && blocks > opts.MaxBlocks {
			blocks = opts.MaxBlocks
		}
		if blocks < opts.MinBlocks {
			continue
		}
		trials = append(trials, Trial{Size: size, Distance: blockDistance(ciphertext, size, blocks)})
	}
	if len(trials) == 0 {
		return nil, fmt.Errorf("%w: %d bytes hold fewer than %d blocks of any size in [%d, %d]",
			xorerr.ErrInsufficientData, len(ciphertext), opts.MinBlocks, opts.MinSize, opts.MaxSize)
	}

	sort.SliceStable(trials, func(i, j int) bool {
		if trials[i].Distance != trials[j].Distance {
			return trials[i].Distance < trials[j].Distance
		}
		return trials[i].Size < trials[j].Size
	})
	return trials, nil
}

// Guess returns the most likely key length.
func Guess(ciphertext []byte, opts Options) (int, error) {
	trials, err := Rank(ciphertext, opts)
	if err != nil {
		return 0, err
	}
	return trials[0].Size, nil
}

// blockDistance averages the Hamming distance over every pair of the leading
// blocks and normalizes by the block size.
func blockDistance(data []byte, size, blocks int) float64 {
	total, pairs := 0, 0
	for i := 0; i < blocks; i++ {
		a := data[i*size : (i+1)*size]
		for j := i + 1; j < blocks; j++ {
			d, _ := HammingDistance(a, data[j*size:(j+1)*size])
			total += d
			pairs++
		}
	}
	return float64(total) / float64(pairs) / float64(size)
}

// Period returns the length of the shortest unit that repeats to form key.
// A key recovered at a multiple of the true length collapses to that length.
func Period(key []byte) int {
	n := len(key)
	for p := 1; p < n; p++ {
		if n%p != 0 {
			continue
		}
		repeats := true
		for i := p; i < n; i++ {
			if key[i] != key[i-p] {
				repeats = false
				break
			}
		}
		if repeats {
			return p
		}
	}
	return n
}
