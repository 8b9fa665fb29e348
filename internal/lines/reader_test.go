package lines

import (
	"errors"
	"strings"
	"testing"

	"github.com/RowanDark/xorlab/internal/codec"
	"github.com/RowanDark/xorlab/internal/xorerr"
)

func TestReadMessages(t *testing.T) {
	tests := []struct {
		name  string
		input string
		enc   codec.Encoding
		want  []string
	}{
		{"hex lines", "6869\r\n\n  7468657265  \n", codec.Hex, []string{"hi", "there"}},
		{"base64 lines", "aGk=\ndGhlcmU=\n", codec.Base64, []string{"hi", "there"}},
		{"raw lines", "one\ntwo", codec.Raw, []string{"one", "two"}},
		{"auto hex", "48656c6c6f\n7468657265\n", codec.Auto, []string{"Hello", "there"}},
		{"auto decimal-looking line reads as base64", "6869\n", codec.Auto, []string{"\xeb\xce\xbd"}},
		{"auto base64", "aGk=\ndGhlcmU=\n", codec.Auto, []string{"hi", "there"}},
		{"empty", "\n\n", codec.Hex, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadMessages(strings.NewReader(tt.input), tt.enc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d messages, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if string(got[i]) != tt.want[i] {
					t.Errorf("message %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestReadMessagesInvalidLine(t *testing.T) {
	_, err := ReadMessages(strings.NewReader("6869\nzz\n"), codec.Hex)
	if !errors.Is(err, xorerr.ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding, got %v", err)
	}
	if !strings.Contains(err.Error(), "message 2") {
		t.Fatalf("error should name the line: %v", err)
	}
}

func TestReadJoined(t *testing.T) {
	tests := []struct {
		name  string
		input string
		enc   codec.Encoding
		want  string
	}{
		{"wrapped base64", "SGVsbG8s\nIFdvcmxk\nIQ==\n", codec.Base64, "Hello, World!"},
		{"wrapped hex", "4865\n6c6c6f\n", codec.Hex, "Hello"},
		{"auto base64", "SGVsbG8s\nIFdvcmxk\nIQ==\n", codec.Auto, "Hello, World!"},
		{"raw keeps input", "a b\n\nc\n", codec.Raw, "a b\n\nc\n"},
		{"auto plain text", "not, encoded\nat all!\n", codec.Auto, "not, encoded\nat all!\n"},
		{"auto raw keeps layout", "  It was\r\n\n\tthe best, of times\r\n", codec.Auto, "  It was\r\n\n\tthe best, of times\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadJoined(strings.NewReader(tt.input), tt.enc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestReadJoinedInvalid(t *testing.T) {
	if _, err := ReadJoined(strings.NewReader("SGVs=bG8\n"), codec.Base64); !errors.Is(err, xorerr.ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding, got %v", err)
	}
}
