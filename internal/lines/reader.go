// Package lines reads ciphertext files in the two layouts the analysis tools
// accept: one independent message per line, or a single message wrapped
// across many lines.
package lines

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/RowanDark/xorlab/internal/cipher"
	"github.com/RowanDark/xorlab/internal/codec"
)

const maxLineBytes = 10 * 1024 * 1024

// ReadMessages decodes every non-empty line of r as its own message. With
// codec.Auto the encoding is detected from the first non-empty line and
// applied to all of them.
func ReadMessages(r io.Reader, enc codec.Encoding) ([][]byte, error) {
	texts, err := readLines(r)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}
	enc = resolve(enc, texts[0])

	messages := make([][]byte, 0, len(texts))
	for i, text := range texts {
		decoded, err := codec.Decode(enc, text)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i+1, err)
		}
		messages = append(messages, decoded)
	}
	return messages, nil
}

// ReadJoined treats r as one message. Hex and base64 lines are concatenated
// before a single decode. Raw input, given or detected, is returned exactly as
// read.
func ReadJoined(r io.Reader, enc codec.Encoding) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if enc == codec.Raw {
		return data, nil
	}
	texts, err := readLines(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	joined := strings.Join(texts, "")
	enc = resolve(enc, joined)
	if enc == codec.Raw {
		return data, nil
	}
	return codec.Decode(enc, joined)
}

// Detect reports the encoding Auto would pick for text.
func Detect(text string) codec.Encoding {
	enc, _ := cipher.DetectEncoding(context.Background(), []byte(text))
	return enc
}

func resolve(enc codec.Encoding, sample string) codec.Encoding {
	if enc != codec.Auto {
		return enc
	}
	return Detect(sample)
}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineBytes)

	var texts []string
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		texts = append(texts, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return texts, nil
}
