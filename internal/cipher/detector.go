package cipher

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/RowanDark/xorlab/internal/codec"
	"github.com/RowanDark/xorlab/internal/xorerr"
)

// MinConfidence is the threshold below which detections are discarded.
const MinConfidence = 0.3

// SmartDetector recognizes the hex and Base64 text encodings ciphertexts are
// usually distributed in.
type SmartDetector struct{}

// NewSmartDetector creates a new smart detector
func NewSmartDetector() *SmartDetector {
	return &SmartDetector{}
}

// Detect returns the plausible encodings of input, most confident first.
func (d *SmartDetector) Detect(ctx context.Context, input []byte) ([]DetectionResult, error) {
	text := strings.TrimSpace(string(input))
	if text == "" {
		return nil, fmt.Errorf("%w: empty input", xorerr.ErrInsufficientData)
	}

	results := []DetectionResult{}
	results = append(results, d.detectHex(text)...)
	results = append(results, d.detectBase64(text)...)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})

	filtered := results[:0]
	for _, r := range results {
		if r.Confidence >= MinConfidence {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// SupportedEncodings returns a list of encodings this detector can identify
func (d *SmartDetector) SupportedEncodings() []string {
	return []string{string(codec.Hex), string(codec.Base64)}
}

func (d *SmartDetector) detectHex(text string) []DetectionResult {
	if len(text)%2 != 0 || !allBytes(text, isHexDigit) {
		return nil
	}
	confidence := 0.9
	// All-decimal strings are as likely to be numbers.
	if allBytes(text, func(b byte) bool { return b >= '0' && b <= '9' }) {
		confidence *= 0.6
	}
	return []DetectionResult{{
		Encoding:   string(codec.Hex),
		Confidence: confidence,
		Reasoning:  "Even number of hexadecimal digits",
		Operation:  "hex_decode",
	}}
}

func (d *SmartDetector) detectBase64(text string) []DetectionResult {
	if !allBytes(text, isBase64Char) {
		return nil
	}
	if _, err := codec.Base64Decode(text); err != nil {
		return nil
	}
	confidence := 0.85
	reasoning := "Matches Base64 alphabet and decodes successfully"
	if len(text)%4 != 0 {
		confidence = 0.7
		reasoning = "Matches Base64 alphabet without padding"
	}
	return []DetectionResult{{
		Encoding:   string(codec.Base64),
		Confidence: confidence,
		Reasoning:  reasoning,
		Operation:  "base64_decode",
	}}
}

// DetectEncoding picks the most likely encoding of input, or codec.Raw when
// nothing matches.
func DetectEncoding(ctx context.Context, input []byte) (codec.Encoding, DetectionResult) {
	results, err := NewSmartDetector().Detect(ctx, input)
	if err != nil || len(results) == 0 {
		return codec.Raw, DetectionResult{Encoding: string(codec.Raw), Reasoning: "No text encoding matched"}
	}
	return codec.Encoding(results[0].Encoding), results[0]
}

// DecodeAll attempts to decode using all detected encodings
func DecodeAll(ctx context.Context, input []byte) ([]DecodeResult, error) {
	detections, err := NewSmartDetector().Detect(ctx, input)
	if err != nil {
		return nil, err
	}

	results := []DecodeResult{}
	for _, detection := range detections {
		op, exists := GetOperation(detection.Operation)
		if !exists {
			continue
		}
		decoded, err := op.Execute(ctx, input, nil)
		if err != nil {
			results = append(results, DecodeResult{Detection: detection, Error: err.Error()})
			continue
		}
		results = append(results, DecodeResult{
			Detection: detection,
			Decoded:   decoded,
			Success:   true,
		})
	}
	return results, nil
}

// DecodeResult represents the result of a decode attempt
type DecodeResult struct {
	Detection DetectionResult `json:"detection"`
	Decoded   []byte          `json:"decoded"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
}

func allBytes(s string, pred func(byte) bool) bool {
	for i := 0; i < len(s); i++ {
		if !pred(s[i]) {
			return false
		}
	}
	return true
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isBase64Char(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '+' || b == '/' || b == '='
}
