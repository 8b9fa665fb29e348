package cipher

import (
	"context"
	"errors"
	"testing"

	"github.com/RowanDark/xorlab/internal/codec"
	"github.com/RowanDark/xorlab/internal/xorerr"
)

func TestSmartDetector(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected codec.Encoding
	}{
		{"hex", "1b37373331363f78151b7f2b783431333d78397828372d363c78373e783a393b3736", codec.Hex},
		{"hex with base64 alphabet", "deadbeef", codec.Hex},
		{"padded base64", "SGVsbG8sIFdvcmxkIQ==", codec.Base64},
		{"unpadded base64", "SGVsbG8sIFdvcmxkIQ", codec.Base64},
		{"decimal digits prefer base64", "12345678", codec.Base64},
		{"plain text", "hello, world!", codec.Raw},
		{"odd hex reads as base64", "abc", codec.Base64},
		{"punctuation", "ab-cd", codec.Raw},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, result := DetectEncoding(ctx, []byte(tt.input))
			if got != tt.expected {
				t.Fatalf("expected %s, got %s (%s)", tt.expected, got, result.Reasoning)
			}
			if result.Encoding != string(tt.expected) {
				t.Fatalf("result encoding %q does not match %q", result.Encoding, tt.expected)
			}
		})
	}
}

func TestSmartDetectorOrdering(t *testing.T) {
	results, err := NewSmartDetector().Detect(context.Background(), []byte(" deadbeef\n"))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(results))
	}
	if results[0].Operation != "hex_decode" || results[1].Operation != "base64_decode" {
		t.Fatalf("unexpected order: %+v", results)
	}
	for _, r := range results {
		if r.Confidence < MinConfidence || r.Confidence > 1 {
			t.Fatalf("confidence out of range: %+v", r)
		}
	}
}

func TestSmartDetectorEmpty(t *testing.T) {
	if _, err := NewSmartDetector().Detect(context.Background(), []byte("  ")); !errors.Is(err, xorerr.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for empty input, got %v", err)
	}
	if _, err := DecodeAll(context.Background(), []byte("\n")); !errors.Is(err, xorerr.ErrInsufficientData) {
		t.Fatalf("expected DecodeAll to report ErrInsufficientData, got %v", err)
	}
	if got, _ := DetectEncoding(context.Background(), nil); got != codec.Raw {
		t.Fatalf("expected raw for empty input, got %s", got)
	}
}

func TestDecodeAll(t *testing.T) {
	results, err := DecodeAll(context.Background(), []byte("deadbeef"))
	if err != nil {
		t.Fatalf("decode all: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Fatalf("decode with %s failed: %s", r.Detection.Operation, r.Error)
		}
	}
	if string(results[0].Decoded) != "\xde\xad\xbe\xef" {
		t.Fatalf("unexpected hex decode %x", results[0].Decoded)
	}
	if len(results[1].Decoded) != 6 {
		t.Fatalf("expected 6 bytes from base64, got %d", len(results[1].Decoded))
	}
}
