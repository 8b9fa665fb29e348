// Package display renders key candidates and decrypted previews for terminals.
package display

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/RowanDark/xorlab/internal/ranker"
	"github.com/RowanDark/xorlab/internal/xorbytes"
)

// DefaultPlaceholder replaces bytes that would not print cleanly.
const DefaultPlaceholder = '_'

// DefaultPreview is how many decrypted bytes a table row shows.
const DefaultPreview = 48

// Printable replaces every byte outside printable ASCII (0x20-0x7e) with
// placeholder. The result has the same length as data.
func Printable(data []byte, placeholder byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		if b >= 0x20 && b <= 0x7e {
			out[i] = b
		} else {
			out[i] = placeholder
		}
	}
	return string(out)
}

// Candidate writes the key byte in binary and hex, its score, and the message
// decrypted with it.
func Candidate(w io.Writer, c ranker.Candidate, message []byte, placeholder byte) error {
	_, err := fmt.Fprintf(w, "Key: %08b (0x%02x)\nScore: %.6f\n%s\n",
		c.Key, c.Key, c.Score, Printable(xorbytes.XorByte(c.Key, message), placeholder))
	return err
}

// Table writes one row per candidate with a truncated preview of message
// decrypted under each key. The row at cursor is marked; pass -1 for none.
func Table(w io.Writer, candidates []ranker.Candidate, message []byte, cursor int, placeholder byte) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tRANK\tKEY\tCHAR\tSCORE\tPREVIEW")
	preview := message
	if len(preview) > DefaultPreview {
		preview = preview[:DefaultPreview]
	}
	for i, c := range candidates {
		marker := ""
		if i == cursor {
			marker = ">"
		}
		fmt.Fprintf(tw, "%s\t%d\t0x%02x\t%s\t%.6f\t%s\n",
			marker, i, c.Key, Printable([]byte{c.Key}, placeholder), c.Score,
			Printable(xorbytes.XorByte(c.Key, preview), placeholder))
	}
	return tw.Flush()
}
