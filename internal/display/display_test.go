package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/RowanDark/xorlab/internal/ranker"
	"github.com/RowanDark/xorlab/internal/xorbytes"
)

func TestPrintable(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"plain", []byte("hello, world"), "hello, world"},
		{"newline", []byte("a\nb"), "a_b"},
		{"control and high", []byte{0x00, 'x', 0x7f, 0xff}, "_x__"},
		{"edges", []byte{0x1f, 0x20, 0x7e}, "_ ~"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Printable(tt.input, DefaultPlaceholder); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
	if got := Printable([]byte{0x01}, '.'); got != "." {
		t.Fatalf("custom placeholder ignored: %q", got)
	}
}

func TestCandidate(t *testing.T) {
	message := xorbytes.XorByte(0x58, []byte("Cooking MC's\n"))
	var buf bytes.Buffer
	if err := Candidate(&buf, ranker.Candidate{Key: 0x58, Score: 0.08}, message, DefaultPlaceholder); err != nil {
		t.Fatalf("Candidate: %v", err)
	}
	want := "Key: 01011000 (0x58)\nScore: 0.080000\nCooking MC's_\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestTable(t *testing.T) {
	message := xorbytes.XorByte('I', []byte(strings.Repeat("plaintext ", 10)))
	candidates := []ranker.Candidate{
		{Key: 'I', Score: 0.1},
		{Key: 0x00, Score: 0.5},
	}
	var buf bytes.Buffer
	if err := Table(&buf, candidates, message, 1, DefaultPlaceholder); err != nil {
		t.Fatalf("Table: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", lines)
	}
	if !strings.Contains(lines[0], "RANK") || !strings.Contains(lines[0], "PREVIEW") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if strings.HasPrefix(lines[1], ">") || !strings.HasPrefix(lines[2], ">") {
		t.Fatalf("cursor marker misplaced:\n%s", buf.String())
	}
	if !strings.Contains(lines[1], "0x49") || !strings.Contains(lines[1], "plaintext plaintext") {
		t.Fatalf("unexpected first row %q", lines[1])
	}
	if strings.Contains(lines[1], strings.Repeat("plaintext ", 5)+"plain") {
		t.Fatalf("preview not truncated: %q", lines[1])
	}
	if !strings.Contains(lines[2], "0x00") {
		t.Fatalf("unexpected second row %q", lines[2])
	}
}
