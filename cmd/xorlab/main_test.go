package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RowanDark/xorlab/internal/codec"
	"github.com/RowanDark/xorlab/internal/history"
	"github.com/RowanDark/xorlab/internal/xorbytes"
)

const twoCities = "It was the best of times, it was the worst of times, it was the age of wisdom, " +
	"it was the age of foolishness, it was the epoch of belief, it was the epoch of incredulity, " +
	"it was the season of Light, it was the season of Darkness, it was the spring of hope, " +
	"it was the winter of despair, we had everything before us, we had nothing before us, " +
	"we were all going direct to Heaven, we were all going direct the other way. " +
	"In short, the period was so far like the present period, that some of its noisiest " +
	"authorities insisted on its being received, for good or for evil, in the superlative " +
	"degree of comparison only. There were a king with a large jaw and a queen with a plain " +
	"face, on the throne of England; there were a king with a large jaw and a queen with a " +
	"fair face, on the throne of France."

const (
	icePlaintext = "Burning 'em, if you ain't quick and nimble\nI go crazy when I hear a cymbal"
	iceHex       = "0b3637272a2b2e63622c2e69692a23693a2a3c6324202d623d63343c2a26226324272765272a282b2f20430a652e2c652a3124333a653e2b2027630c692b20283165286326302e27282f"
)

// isolate gives the command an empty home, working directory and history
// database so user configuration cannot leak into the test.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	home := filepath.Join(root, "home")
	work := filepath.Join(root, "work")
	for _, dir := range []string{home, work} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	t.Setenv("HOME", home)
	testChdir(t, work)
	for _, key := range []string{
		"XORLAB_CANDIDATES", "XORLAB_PLACEHOLDER", "XORLAB_KEYSIZE_MIN", "XORLAB_KEYSIZE_MAX",
		"XORLAB_BLOCKS_MIN", "XORLAB_BLOCKS_MAX", "XORLAB_DB", "XORLAB_EVENT_LOG", "XORLAB_METRICS_FILE",
		"XORLAB_TRACE_FILE", "XORLAB_TRACE_SAMPLE_RATIO",
	} {
		t.Setenv(key, "")
	}
	historyPath := filepath.Join(root, "history.db")
	t.Setenv("XORLAB_HISTORY", historyPath)
	t.Setenv("XORLAB_RECIPES", filepath.Join(root, "recipes"))
	return historyPath
}

// runCLI executes args with input on stdin and returns the exit code and the
// captured stdout and stderr.
func runCLI(t *testing.T, input string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	prevIn, prevOut, prevErr := stdin, stdout, stderr
	stdin, stdout, stderr = strings.NewReader(input), &out, &errOut
	defer func() { stdin, stdout, stderr = prevIn, prevOut, prevErr }()

	code := run(args)
	return code, out.String(), errOut.String()
}

func TestRunUsage(t *testing.T) {
	if code, _, errOut := runCLI(t, ""); code != 2 || !strings.Contains(errOut, "Commands:") {
		t.Fatalf("expected usage with exit code 2, got %d: %s", code, errOut)
	}
	if code, _, errOut := runCLI(t, "", "frobnicate"); code != 2 || !strings.Contains(errOut, "unknown command: frobnicate") {
		t.Fatalf("expected unknown command error, got %d: %s", code, errOut)
	}
	if code, out, _ := runCLI(t, "", "help"); code != 0 || !strings.Contains(out, "break") {
		t.Fatalf("expected help on stdout, got %d: %s", code, out)
	}
}

func TestRunVersion(t *testing.T) {
	code, out, _ := runCLI(t, "", "version")
	if code != 0 || out != "xorlab dev\n" {
		t.Fatalf("unexpected version output %d %q", code, out)
	}
	if code, _, _ := runCLI(t, "", "version", "extra"); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestRunConvert(t *testing.T) {
	isolate(t)
	input := "49276d206b696c6c696e6720796f757220627261696e206c696b65206120706f69736f6e6f7573206d757368726f6f6d\n"
	code, out, errOut := runCLI(t, input, "convert", "-enc", "hex", "-to", "base64")
	if code != 0 {
		t.Fatalf("convert failed (%d): %s", code, errOut)
	}
	if out != "SSdtIGtpbGxpbmcgeW91ciBicmFpbiBsaWtlIGEgcG9pc29ub3VzIG11c2hyb29t\n" {
		t.Fatalf("unexpected output %q", out)
	}

	if code, _, _ := runCLI(t, "abc", "convert", "-enc", "hex"); code != 1 {
		t.Fatalf("expected exit code 1 for odd hex, got %d", code)
	}
	if code, _, _ := runCLI(t, "", "convert", "-to", "auto"); code != 2 {
		t.Fatalf("expected exit code 2 for -to auto, got %d", code)
	}
}

func TestRunXor(t *testing.T) {
	code, out, errOut := runCLI(t, "", "xor", "1c0111001f010100061a024b53535009181c", "686974207468652062756c6c277320657965")
	if code != 0 {
		t.Fatalf("xor failed (%d): %s", code, errOut)
	}
	if out != "746865206b696420646f6e277420706c6179\n" {
		t.Fatalf("unexpected output %q", out)
	}
	if code, _, _ := runCLI(t, "", "xor", "00", "0000"); code != 1 {
		t.Fatalf("expected exit code 1 for length mismatch, got %d", code)
	}
	if code, _, _ := runCLI(t, "", "xor", "00"); code != 2 {
		t.Fatalf("expected exit code 2 for missing operand, got %d", code)
	}
}

func TestRunEncrypt(t *testing.T) {
	isolate(t)
	code, out, errOut := runCLI(t, icePlaintext, "encrypt", "-key", "ICE")
	if code != 0 {
		t.Fatalf("encrypt failed (%d): %s", code, errOut)
	}
	if out != iceHex+"\n" {
		t.Fatalf("unexpected ciphertext %q", out)
	}
	if code, _, _ := runCLI(t, icePlaintext, "encrypt"); code != 2 {
		t.Fatalf("expected exit code 2 without a key, got %d", code)
	}
	if code, _, _ := runCLI(t, icePlaintext, "encrypt", "-key", "a", "-key-hex", "61"); code != 2 {
		t.Fatalf("expected exit code 2 with two keys, got %d", code)
	}
}

func TestRunSingleRecordsHistory(t *testing.T) {
	historyPath := isolate(t)
	ciphertext := codec.HexEncode(xorbytes.XorByte(0x58, []byte("Cooking MC's like a pound of bacon")), false)

	code, out, errOut := runCLI(t, ciphertext, "single")
	if code != 0 {
		t.Fatalf("single failed (%d): %s", code, errOut)
	}
	want := "Key: 01011000 (0x58)\n"
	if !strings.HasPrefix(out, want) || !strings.Contains(out, "Cooking MC's like a pound of bacon") {
		t.Fatalf("unexpected output %q", out)
	}

	store, err := history.Open(historyPath)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	runs, err := store.List(context.Background(), 0)
	store.Close()
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(runs) != 1 || runs[0].Command != "single" || runs[0].KeyHex != "58" {
		t.Fatalf("unexpected history %+v", runs)
	}

	code, out, errOut = runCLI(t, "", "history", "list")
	if code != 0 || !strings.Contains(out, runs[0].ID) {
		t.Fatalf("history list (%d): %s %s", code, out, errOut)
	}
	code, out, errOut = runCLI(t, "", "history", "show", runs[0].ID)
	if code != 0 || !strings.Contains(out, `"command": "single"`) {
		t.Fatalf("history show (%d): %s %s", code, out, errOut)
	}
	if code, _, _ := runCLI(t, "", "history", "show", "missing"); code != 1 {
		t.Fatalf("expected exit code 1 for unknown run, got %d", code)
	}
}

func TestRunSingleNoHistory(t *testing.T) {
	historyPath := isolate(t)
	ciphertext := codec.HexEncode(xorbytes.XorByte(0x58, []byte("Cooking MC's like a pound of bacon")), false)
	out := filepath.Join(t.TempDir(), "ranked.jsonl")

	code, stdoutText, errOut := runCLI(t, ciphertext, "single", "-no-history", "-all", "-n", "3", "-out", out)
	if code != 0 {
		t.Fatalf("single failed (%d): %s", code, errOut)
	}
	if got := strings.Count(stdoutText, "\n"); got != 4 {
		t.Fatalf("expected header and 3 rows, got %d lines:\n%s", got, stdoutText)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read ranked output: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 3 {
		t.Fatalf("expected 3 ranked lines, got %d", got)
	}
	if _, err := os.Stat(historyPath); !os.IsNotExist(err) {
		t.Fatalf("history should not be created with -no-history: %v", err)
	}
}

func TestRunDetect(t *testing.T) {
	isolate(t)
	var input strings.Builder
	for i := 0; i < 40; i++ {
		if i == 17 {
			input.WriteString(codec.HexEncode(xorbytes.XorByte(0x58, []byte("Now that the party is jumping\n")), false))
			input.WriteByte('\n')
		}
		sum := sha256.Sum256([]byte{byte(i)})
		input.WriteString(codec.HexEncode(sum[:30], false))
		input.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "lines.txt")
	if err := os.WriteFile(path, []byte(input.String()), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	code, out, errOut := runCLI(t, "", "detect", "-in", path, "-enc", "hex")
	if code != 0 {
		t.Fatalf("detect failed (%d): %s", code, errOut)
	}
	if !strings.HasPrefix(out, "Line: 18\nKey: 01011000 (0x58)\n") || !strings.Contains(out, "Now that the party is jumping_") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunKeysize(t *testing.T) {
	isolate(t)
	ciphertext, err := xorbytes.XorRepeating([]byte("SECRET"), []byte(twoCities))
	if err != nil {
		t.Fatal(err)
	}
	code, out, errOut := runCLI(t, codec.HexEncode(ciphertext, false), "keysize", "-max-blocks", "4", "-top", "3")
	if code != 0 {
		t.Fatalf("keysize failed (%d): %s", code, errOut)
	}
	rows := strings.Split(strings.TrimSpace(out), "\n")
	if len(rows) != 4 {
		t.Fatalf("expected header and 3 rows, got %q", out)
	}
	if fields := strings.Fields(rows[1]); fields[0] != "0" || fields[1] != "6" {
		t.Fatalf("expected size 6 first, got %q", rows[1])
	}
}

func TestRunBreak(t *testing.T) {
	isolate(t)
	ciphertext, err := xorbytes.XorRepeating([]byte("SECRET"), []byte(twoCities))
	if err != nil {
		t.Fatal(err)
	}
	input := codec.Base64Encode(ciphertext, true)

	code, out, errOut := runCLI(t, input, "break", "-enc", "base64")
	if code != 0 {
		t.Fatalf("break failed (%d): %s", code, errOut)
	}
	if !strings.Contains(out, "Key size: 6\n") || !strings.Contains(out, "Key: SECRET\n") {
		t.Fatalf("unexpected key in output %q", out)
	}
	if !strings.Contains(out, twoCities) {
		t.Fatalf("plaintext missing from output")
	}

	if code, _, _ := runCLI(t, "00", "break", "-enc", "hex"); code != 1 {
		t.Fatalf("expected exit code 1 for short input, got %d", code)
	}
}

func TestRunBreakInteractive(t *testing.T) {
	isolate(t)
	commands := strings.Join([]string{
		"show 1",
		"next 1", "next 1", "next 1", "next 1",
		"next 1",
		"prev 0",
		"set 1 zz",
		"next 9",
		"bogus",
		"accept",
	}, "\n")

	code, out, errOut := runCLI(t, commands, "break", "-enc", "hex", "-size", "3", "-n", "5", "-interactive")
	if code != 0 {
		t.Fatalf("break failed (%d): %s", code, errOut)
	}
	if !strings.Contains(out, `key 494245 "IBE"`) {
		t.Fatalf("expected initial key IBE in %q", out)
	}
	if !strings.Contains(out, `key 494345 "ICE"`) {
		t.Fatalf("expected adjusted key ICE in %q", out)
	}
	if got := strings.Count(out, "cannot move further"); got != 2 {
		t.Fatalf("expected two boundary messages, got %d in %q", got, out)
	}
	if !strings.Contains(out, `unknown command "bogus"`) {
		t.Fatalf("expected unknown command message in %q", out)
	}
	if !strings.Contains(out, "Key: ICE\n") || !strings.Contains(out, icePlaintext) {
		t.Fatalf("expected accepted result in %q", out)
	}
}

func TestRunBreakInteractiveQuit(t *testing.T) {
	historyPath := isolate(t)
	code, out, _ := runCLI(t, "set 1 43\nquit\n", "break", "-enc", "hex", "-size", "3", "-n", "5", "-interactive")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(out, `key 494345 "ICE"`) || strings.Contains(out, "Key size:") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := os.Stat(historyPath); !os.IsNotExist(err) {
		t.Fatalf("quitting must not record history: %v", err)
	}
}

func TestRunOps(t *testing.T) {
	isolate(t)
	code, out, _ := runCLI(t, "", "ops", "list")
	if code != 0 || !strings.Contains(out, "xor_repeating") {
		t.Fatalf("ops list (%d): %s", code, out)
	}

	ciphertext := "1b37373331363f78151b7f2b783431333d78397828372d363c78373e783a393b3736"
	code, out, errOut := runCLI(t, ciphertext, "ops", "run", "-pipeline", "hex_decode|xor_byte:key=0x58")
	if code != 0 || out != "Cooking MC's like a pound of bacon\n" {
		t.Fatalf("ops run (%d): %q %s", code, out, errOut)
	}
	code, out, errOut = runCLI(t, "Cooking MC's like a pound of bacon", "ops", "run", "-reverse", "-pipeline", "hex_decode|xor_byte:key=0x58")
	if code != 0 || out != ciphertext+"\n" {
		t.Fatalf("ops run -reverse (%d): %q %s", code, out, errOut)
	}
	if code, _, _ := runCLI(t, "", "ops", "run", "-pipeline", "rot13"); code != 2 {
		t.Fatalf("expected exit code 2 for unknown operation, got %d", code)
	}
	if code, _, _ := runCLI(t, "x", "ops", "run", "-reverse", "-pipeline", "printable"); code != 1 {
		t.Fatalf("expected exit code 1 for irreversible pipeline, got %d", code)
	}
}

func TestRunOpsDetect(t *testing.T) {
	isolate(t)
	code, out, errOut := runCLI(t, "48656c6c6f\n", "ops", "detect")
	if code != 0 {
		t.Fatalf("ops detect failed (%d): %s", code, errOut)
	}
	rows := strings.Split(strings.TrimSpace(out), "\n")
	if len(rows) != 3 || !strings.HasPrefix(rows[0], "ENCODING") {
		t.Fatalf("unexpected table %q", out)
	}
	if fields := strings.Fields(rows[1]); len(fields) != 3 || fields[0] != "hex" || fields[1] != "0.90" || fields[2] != "Hello" {
		t.Fatalf("unexpected hex row %q", rows[1])
	}
	if !strings.HasPrefix(rows[2], "base64") {
		t.Fatalf("unexpected second row %q", rows[2])
	}

	if code, out, _ := runCLI(t, "not encoded!", "ops", "detect"); code != 0 || !strings.Contains(out, "raw") {
		t.Fatalf("expected raw report, got %d: %q", code, out)
	}
	if code, _, _ := runCLI(t, "  \n", "ops", "detect"); code != 1 {
		t.Fatalf("expected exit code 1 for empty input, got %d", code)
	}
}

func TestRunRecipes(t *testing.T) {
	isolate(t)
	code, _, errOut := runCLI(t, "", "ops", "recipes", "save", "-name", "ice", "-pipeline", "hex_decode|xor_repeating:key=ICE", "-tags", "xor, demo")
	if code != 0 {
		t.Fatalf("save (%d): %s", code, errOut)
	}
	code, out, _ := runCLI(t, "", "ops", "recipes", "list", "-search", "demo")
	if code != 0 || !strings.Contains(out, "hex_decode|xor_repeating:key=ICE") {
		t.Fatalf("list (%d): %s", code, out)
	}
	code, out, errOut = runCLI(t, iceHex, "ops", "recipes", "run", "-name", "ice")
	if code != 0 || out != icePlaintext+"\n" {
		t.Fatalf("run (%d): %q %s", code, out, errOut)
	}
	if code, _, _ := runCLI(t, "", "ops", "recipes", "delete", "-name", "ice"); code != 0 {
		t.Fatalf("delete failed with %d", code)
	}
	if code, _, _ := runCLI(t, iceHex, "ops", "recipes", "run", "-name", "ice"); code != 1 {
		t.Fatalf("expected exit code 1 for deleted recipe, got %d", code)
	}
}

func TestRunConfig(t *testing.T) {
	isolate(t)
	t.Setenv("XORLAB_CANDIDATES", "7")
	code, out, errOut := runCLI(t, "", "config")
	if code != 0 {
		t.Fatalf("config failed (%d): %s", code, errOut)
	}
	if !strings.Contains(out, "candidates: 7\n") || !strings.Contains(out, "max_size: 40\n") {
		t.Fatalf("unexpected config output:\n%s", out)
	}

	t.Setenv("XORLAB_CANDIDATES", "0")
	if code, _, _ := runCLI(t, "", "config"); code != 1 {
		t.Fatalf("expected exit code 1 for invalid config, got %d", code)
	}
}

func TestRunEventLog(t *testing.T) {
	isolate(t)
	eventLog := filepath.Join(t.TempDir(), "events.jsonl")
	t.Setenv("XORLAB_EVENT_LOG", eventLog)

	code, _, errOut := runCLI(t, iceHex, "break", "-enc", "hex", "-size", "3", "-no-history")
	if code != 0 {
		t.Fatalf("break failed (%d): %s", code, errOut)
	}
	data, err := os.ReadFile(eventLog)
	if err != nil {
		t.Fatalf("read event log: %v", err)
	}
	for _, want := range []string{`"event_type":"input_decoded"`, `"event_type":"columns_solved"`, `"event_type":"key_assembled"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("event log missing %s:\n%s", want, data)
		}
	}
}

func TestRunTraceFile(t *testing.T) {
	isolate(t)
	traceFile := filepath.Join(t.TempDir(), "spans.jsonl")
	t.Setenv("XORLAB_TRACE_FILE", traceFile)

	ciphertext := codec.HexEncode(xorbytes.XorByte(0x58, []byte("Cooking MC's like a pound of bacon")), false)
	if code, _, errOut := runCLI(t, ciphertext, "single", "-no-history"); code != 0 {
		t.Fatalf("single failed (%d): %s", code, errOut)
	}
	data, err := os.ReadFile(traceFile)
	if err != nil {
		t.Fatalf("read trace file: %v", err)
	}
	for _, want := range []string{"input.read", "xorlab.single"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected %s span in:\n%s", want, data)
		}
	}
}

func TestRunBreakSharesTraceWithHistoryAndMetrics(t *testing.T) {
	historyPath := isolate(t)
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "xorlab.prom")
	t.Setenv("XORLAB_TRACE_FILE", filepath.Join(dir, "spans.jsonl"))
	t.Setenv("XORLAB_METRICS_FILE", metricsFile)

	ciphertext, err := xorbytes.XorRepeating([]byte("SECRET"), []byte(twoCities))
	if err != nil {
		t.Fatal(err)
	}
	if code, _, errOut := runCLI(t, codec.HexEncode(ciphertext, false), "break", "-enc", "hex"); code != 0 {
		t.Fatalf("break failed (%d): %s", code, errOut)
	}

	store, err := history.Open(historyPath)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	runs, err := store.List(context.Background(), 1)
	store.Close()
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(runs) != 1 || runs[0].TraceID == "" {
		t.Fatalf("expected a traced break run, got %+v", runs)
	}
	traceID := runs[0].TraceID

	code, out, errOut := runCLI(t, "", "history", "show", runs[0].ID)
	if code != 0 || !strings.Contains(out, traceID) {
		t.Fatalf("history show (%d) missing trace id %s: %s %s", code, traceID, out, errOut)
	}

	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	var sumLine string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, `xorlab_command_duration_seconds_sum{command="break"}`) {
			sumLine = line
		}
	}
	if !strings.Contains(sumLine, `# {trace_id="`+traceID+`"}`) {
		t.Fatalf("expected break exemplar with trace %s:\n%s", traceID, data)
	}
}

func TestRunWritesMetricsFile(t *testing.T) {
	isolate(t)
	metricsFile := filepath.Join(t.TempDir(), "xorlab.prom")
	t.Setenv("XORLAB_METRICS_FILE", metricsFile)

	if code, _, errOut := runCLI(t, "", "xor", "00", "ff"); code != 0 {
		t.Fatalf("xor failed (%d): %s", code, errOut)
	}
	runCLI(t, "", "xor", "00")

	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, want := range []string{
		`xorlab_runs_total{command="xor",outcome="usage"}`,
		`xorlab_runs_total{command="xor",outcome="success"}`,
		`xorlab_command_duration_seconds_count{command="xor"}`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %s:\n%s", want, data)
		}
	}
}
