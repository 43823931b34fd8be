// Package jsonl reads and writes line-delimited JSON, the exchange format
// between pipeline stages. Every line is independently parseable; a
// malformed line is reported to the callback and never aborts the rest of
// the stream.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DecodeFunc receives each successfully parsed line. Returning an error
// stops the scan.
type DecodeFunc func(line int, raw json.RawMessage) error

// ErrFunc receives lines that failed to parse.
type ErrFunc func(line int, raw string, err error)

// Scan walks r line by line. Blank lines are skipped; lines that are not
// valid JSON go to onErr and processing continues.
func Scan(r io.Reader, onLine DecodeFunc, onErr ErrFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if !json.Valid([]byte(text)) {
			if onErr != nil {
				onErr(lineNum, text, fmt.Errorf("invalid json"))
			}
			continue
		}
		if err := onLine(lineNum, json.RawMessage(text)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Writer emits one compact JSON object per line.
type Writer struct {
	w   *bufio.Writer
	enc *json.Encoder
}

func NewWriter(w io.Writer) *Writer {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &Writer{w: bw, enc: enc}
}

// Write appends v as a single line. json.Encoder already terminates each
// value with a newline.
func (w *Writer) Write(v any) error {
	return w.enc.Encode(v)
}

// Flush writes any buffered lines to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
