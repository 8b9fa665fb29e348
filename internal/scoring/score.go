// Package scoring measures how English-like a candidate plaintext is using a
// fixed unigram letter table. Lower scores are better.
//
// The metric counts letters case-insensitively into 26 buckets plus one bucket
// for every other byte, and sums the squared deviation of each observed
// relative frequency from the reference table. The non-letter bucket has no
// reference value, so spaces, punctuation, control and high-bit bytes all count
// against a candidate. Any two plaintexts differing only in letter case score
// identically.
package scoring

import (
	"fmt"

	"github.com/RowanDark/xorlab/internal/xorerr"
)

// Buckets is the number of frequency buckets: A-Z plus one for non-letters.
const Buckets = 27

// NonLetter is the index of the non-letter bucket.
const NonLetter = 26

// EnglishFrequencies holds the expected relative frequency of each letter.
var EnglishFrequencies = [26]float64{
	0.082, // A
	0.015, // B
	0.028, // C
	0.043, // D
	0.13,  // E
	0.022, // F
	0.02,  // G
	0.061, // H
	0.07,  // I
	0.002, // J
	0.008, // K
	0.04,  // L
	0.025, // M
	0.067, // N
	0.075, // O
	0.019, // P
	0.001, // Q
	0.06,  // R
	0.063, // S
	0.091, // T
	0.028, // U
	0.01,  // V
	0.024, // W
	0.002, // X
	0.02,  // Y
	0.001, // Z
}

// Counts tallies letters case-insensitively; the last bucket holds everything else.
func Counts(data []byte) [Buckets]int {
	var counts [Buckets]int
	for _, b := range data {
		if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') {
			counts[(b&0x1f)-1]++
		} else {
			counts[NonLetter]++
		}
	}
	return counts
}

// Score returns the sum of squared deviations from English letter frequencies.
func Score(data []byte) (float64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: cannot score empty text", xorerr.ErrInsufficientData)
	}
	return score(Counts(data), len(data)), nil
}

func score(counts [Buckets]int, n int) float64 {
	length := float64(n)
	var total float64
	for i, expected := range EnglishFrequencies {
		d := float64(counts[i])/length - expected
		total += d * d
	}
	other := float64(counts[NonLetter]) / length
	return total + other*other
}
