package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zhongyd/addrnorm/internal/bioes"
	"github.com/zhongyd/addrnorm/internal/jsonl"
	"github.com/zhongyd/addrnorm/internal/levels"
	"github.com/zhongyd/addrnorm/internal/parser"
)

// Worker processes a single batch job.
type Worker struct {
	tags      TagSource
	log       *slog.Logger
	outputDir string

	maxConcurrentTag int
}

func NewWorker(tags TagSource, log *slog.Logger, outputDir string, maxTag int) *Worker {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if maxTag <= 0 {
		maxTag = 8
	}
	return &Worker{
		tags:             tags,
		log:              log,
		outputDir:        outputDir,
		maxConcurrentTag: maxTag,
	}
}

// Process runs the full batch pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "mode", job.Mode)

	// Phase 1: Parse the uploaded file into address records.
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	records, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if len(records) == 0 {
		log.Warn("no address records in file")
		job.AddError("no address records")
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetTotalRecords(len(records))
	log.Info("parsed batch file", "records", len(records))

	// Phase 2: Tag records that arrived without entities, with bounded
	// concurrency and retry on transient tagger failures.
	job.SetStatus(StatusTagging, "tagging")
	type tagResult struct {
		idx      int
		entities map[string]string
		err      error
	}
	results := make(chan tagResult, len(records))
	sem := make(chan struct{}, w.maxConcurrentTag)

	for i, rec := range records {
		if rec.Entities != nil {
			results <- tagResult{idx: i, entities: rec.Entities}
			continue
		}
		sem <- struct{}{}
		go func(i int, address string) {
			defer func() { <-sem }()
			var entities map[string]string
			var lastErr error
			for attempt := 0; attempt < MaxRetries; attempt++ {
				entities, lastErr = w.tags.Entities(ctx, address)
				if lastErr == nil || !IsRetryable(lastErr) {
					break
				}
				log.Warn("retryable tagging error", "record", i, "attempt", attempt, "error", lastErr)
				select {
				case <-time.After(Backoff(attempt)):
				case <-ctx.Done():
					results <- tagResult{idx: i, err: ctx.Err()}
					return
				}
			}
			results <- tagResult{idx: i, entities: entities, err: lastErr}
		}(i, rec.Address)
	}

	tagged := make([]map[string]string, len(records))
	tagErrs := make([]error, len(records))
	for range records {
		r := <-results
		tagged[r.idx] = r.entities
		tagErrs[r.idx] = r.err
	}

	// Phase 3: Run the core on each record, in input order. Per-record
	// failures are recorded and never abort siblings.
	job.SetStatus(StatusClassifying, "classifying")
	hadErrors := false
	for i, rec := range records {
		if tagErrs[i] != nil {
			log.Error("tagging failed", "record", i, "address", rec.Address, "error", tagErrs[i])
			job.AddResult(RecordResult{Address: rec.Address, Error: tagErrs[i].Error()})
			hadErrors = true
			continue
		}

		switch job.Mode {
		case ModeTokens:
			seq := bioes.Encode(rec.Address, tagged[i], log)
			job.AddResult(RecordResult{
				Address:  rec.Address,
				Success:  true,
				Entities: tagged[i],
				Tokens:   seq.Tokens,
				Tags:     seq.Tags,
			})
		default:
			record := levels.Classify(tagged[i], rec.Address, log)
			result := RecordResult{
				Address:  rec.Address,
				Success:  record.Error == "",
				Entities: tagged[i],
				Levels:   record,
			}
			if record.Error != "" {
				result.Error = record.Error
				hadErrors = true
			}
			job.AddResult(result)
		}
	}

	// Phase 4: Write results as line-delimited JSON.
	job.SetStatus(StatusWriting, "writing")
	outPath, err := w.writeResults(job)
	if err != nil {
		log.Error("write results failed", "error", err)
		job.AddError(fmt.Sprintf("write: %s", err))
		job.SetStatus(StatusFailed, "writing")
		return
	}
	job.SetOutputPath(outPath)
	log.Info("batch complete", "output", outPath, "failed", job.Snapshot().Progress.RecordsFailed)

	if hadErrors {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

func (w *Worker) writeResults(job *Job) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	outPath := filepath.Join(w.outputDir, job.ID+".jsonl")
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	jw := jsonl.NewWriter(f)
	for _, r := range job.Results() {
		if err := jw.Write(r); err != nil {
			return "", fmt.Errorf("write record: %w", err)
		}
	}
	if err := jw.Flush(); err != nil {
		return "", fmt.Errorf("flush output: %w", err)
	}
	return outPath, nil
}
