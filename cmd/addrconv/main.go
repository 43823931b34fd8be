// Command addrconv converts line-delimited JSON address records offline,
// without the tagging service: each input line is {"address": ...,
// "entities": {...}}. Mode "tokens" emits BIOES training sequences, mode
// "levels" emits 11-level standardized records.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/zhongyd/addrnorm/internal/addr"
	"github.com/zhongyd/addrnorm/internal/bioes"
	"github.com/zhongyd/addrnorm/internal/jsonl"
	"github.com/zhongyd/addrnorm/internal/levels"
)

func main() {
	inPath := flag.String("in", "-", "input JSONL file, - for stdin")
	outPath := flag.String("out", "-", "output JSONL file, - for stdout")
	mode := flag.String("mode", "levels", "output mode: tokens or levels")
	verbose := flag.Bool("v", false, "log skipped lines")
	flag.Parse()

	if *mode != "tokens" && *mode != "levels" {
		fmt.Fprintln(os.Stderr, "mode must be tokens or levels")
		os.Exit(2)
	}

	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	in, err := openInput(*inPath)
	if err != nil {
		log.Error("open input", "error", err)
		os.Exit(1)
	}
	defer in.Close()

	out, err := openOutput(*outPath)
	if err != nil {
		log.Error("open output", "error", err)
		os.Exit(1)
	}
	defer out.Close()

	jw := jsonl.NewWriter(out)
	skipped := 0

	err = jsonl.Scan(in,
		func(line int, raw json.RawMessage) error {
			var rec addr.Record
			if err := json.Unmarshal(raw, &rec); err != nil || rec.Address == "" {
				log.Warn("skipping record", "line", line, "error", err)
				skipped++
				return nil
			}
			switch *mode {
			case "tokens":
				return jw.Write(bioes.Encode(rec.Address, rec.Entities, log))
			default:
				return jw.Write(levels.Classify(rec.Entities, rec.Address, log))
			}
		},
		func(line int, raw string, err error) {
			log.Warn("skipping line", "line", line, "error", err)
			skipped++
		},
	)
	if err != nil {
		log.Error("conversion failed", "error", err)
		os.Exit(1)
	}
	if err := jw.Flush(); err != nil {
		log.Error("flush output", "error", err)
		os.Exit(1)
	}
	if skipped > 0 {
		log.Warn("conversion finished with skipped lines", "skipped", skipped)
	}
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
