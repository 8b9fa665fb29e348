package cipher

import (
	"context"
	"errors"
	"testing"

	"github.com/RowanDark/xorlab/internal/xorerr"
)

func TestPipelineExecution(t *testing.T) {
	tests := []struct {
		name       string
		operations []OperationConfig
		input      string
		expected   string
	}{
		{
			name:       "single operation",
			operations: []OperationConfig{{Name: "base64_encode"}},
			input:      "hello",
			expected:   "aGVsbG8=",
		},
		{
			name: "hex to base64",
			operations: []OperationConfig{
				{Name: "hex_decode"},
				{Name: "base64_encode"},
			},
			input:    "49276d206b696c6c696e6720796f757220627261696e206c696b65206120706f69736f6e6f7573206d757368726f6f6d",
			expected: "SSdtIGtpbGxpbmcgeW91ciBicmFpbiBsaWtlIGEgcG9pc29ub3VzIG11c2hyb29t",
		},
		{
			name: "decrypt single byte",
			operations: []OperationConfig{
				{Name: "hex_decode"},
				{Name: "xor_byte", Parameters: map[string]interface{}{"key": "0x58"}},
			},
			input:    "1b37373331363f78151b7f2b783431333d78397828372d363c78373e783a393b3736",
			expected: "Cooking MC's like a pound of bacon",
		},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &Pipeline{Operations: tt.operations, Reversible: true}
			result, err := pipeline.Execute(ctx, []byte(tt.input))
			if err != nil {
				t.Fatalf("execute failed: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, string(result))
			}

			reversed, err := pipeline.Reverse()
			if err != nil {
				t.Fatalf("reverse failed: %v", err)
			}
			original, err := reversed.Execute(ctx, result)
			if err != nil {
				t.Fatalf("reversed execute failed: %v", err)
			}
			if string(original) != tt.input {
				t.Errorf("round trip: expected %q, got %q", tt.input, original)
			}
		})
	}
}

func TestPipelineUnknownOperation(t *testing.T) {
	pipeline := &Pipeline{Operations: []OperationConfig{{Name: "rot13"}}}
	if _, err := pipeline.Execute(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error for unknown operation")
	}
}

func TestPipelineStepErrorWraps(t *testing.T) {
	pipeline := &Pipeline{Operations: []OperationConfig{{Name: "base64_decode"}}}
	if _, err := pipeline.Execute(context.Background(), []byte("Zm9v!mFy")); !errors.Is(err, xorerr.ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding, got %v", err)
	}
}

func TestPipelineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pipeline := &Pipeline{Operations: []OperationConfig{{Name: "hex_encode"}}}
	if _, err := pipeline.Execute(ctx, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParsePipeline(t *testing.T) {
	pipeline, err := ParsePipeline(" base64_decode | xor_repeating:key=ICE | printable:placeholder=. ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(pipeline.Operations) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(pipeline.Operations))
	}
	if pipeline.Reversible {
		t.Fatalf("pipeline with printable must not be reversible")
	}
	if got := pipeline.Operations[1].Parameters["key"]; got != "ICE" {
		t.Fatalf("unexpected key parameter %v", got)
	}
	if got := pipeline.String(); got != "base64_decode|xor_repeating:key=ICE|printable:placeholder=." {
		t.Fatalf("unexpected rendering %q", got)
	}
	if _, err := pipeline.Reverse(); err == nil {
		t.Fatalf("expected reverse to fail")
	}

	out, err := pipeline.Execute(context.Background(), []byte("CzY3Jw=="))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if string(out) != "Burn" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestParsePipelineErrors(t *testing.T) {
	for _, spec := range []string{"", "   ", "nope", "hex_decode|", "xor_byte:key", "xor_byte:=1"} {
		if _, err := ParsePipeline(spec); !errors.Is(err, xorerr.ErrInvalidArgument) {
			t.Errorf("spec %q: expected ErrInvalidArgument, got %v", spec, err)
		}
	}
}
