package jsonl

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestScan_SkipsMalformedLines(t *testing.T) {
	input := `{"a":1}

this is not json
{"b":2}`

	var parsed []string
	var bad []int
	err := Scan(strings.NewReader(input),
		func(line int, raw json.RawMessage) error {
			parsed = append(parsed, string(raw))
			return nil
		},
		func(line int, raw string, err error) {
			bad = append(bad, line)
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 parsed lines, got %d", len(parsed))
	}
	if len(bad) != 1 || bad[0] != 3 {
		t.Errorf("expected line 3 reported as bad, got %v", bad)
	}
}

func TestScan_CallbackErrorStops(t *testing.T) {
	input := "{\"a\":1}\n{\"b\":2}\n"
	wantErr := errors.New("stop")
	calls := 0
	err := Scan(strings.NewReader(input),
		func(line int, raw json.RawMessage) error {
			calls++
			return wantErr
		},
		nil,
	)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected scan to stop after first line, got %d calls", calls)
	}
}

func TestScan_NilErrFunc(t *testing.T) {
	err := Scan(strings.NewReader("garbage\n{\"a\":1}\n"),
		func(line int, raw json.RawMessage) error { return nil },
		nil,
	)
	if err != nil {
		t.Fatalf("unexpected error with nil onErr: %v", err)
	}
}

func TestWriter_OneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Write(map[string]string{"address": "杭州市"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	for _, line := range lines {
		if !json.Valid([]byte(line)) {
			t.Errorf("line is not valid json: %q", line)
		}
	}
}

func TestWriter_NoHTMLEscaping(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Write(map[string]string{"s": "a<b>&c"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if strings.Contains(buf.String(), `\u003c`) {
		t.Errorf("expected no escaped angle brackets, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "a<b>&c") {
		t.Errorf("expected unescaped string, got %q", buf.String())
	}
}
