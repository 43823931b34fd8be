package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of a batch job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusParsing     JobStatus = "parsing"
	StatusTagging     JobStatus = "tagging"
	StatusClassifying JobStatus = "classifying"
	StatusWriting     JobStatus = "writing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusPartial     JobStatus = "partial"
)

// Job modes.
const (
	// ModeStandardize produces 11-level records.
	ModeStandardize = "standardize"
	// ModeTokens produces BIOES training data.
	ModeTokens = "tokens"
)

// RecordResult is the outcome for one address in a batch. A failed record
// never aborts its siblings.
type RecordResult struct {
	Address  string            `json:"address"`
	Success  bool              `json:"success"`
	Entities map[string]string `json:"entities,omitempty"`
	Levels   any               `json:"levels,omitempty"`
	Tokens   []string          `json:"tokens,omitempty"`
	Tags     []string          `json:"ner_tags,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Job tracks the state of a single batch file.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Mode     string    `json:"mode"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	Progress Progress `json:"progress"`

	OutputPath string    `json:"output_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	results  []RecordResult
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalRecords     int      `json:"total_records"`
	RecordsProcessed int      `json:"records_processed"`
	RecordsFailed    int      `json:"records_failed"`
	Errors           []string `json:"errors"`
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records a job-level error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetTotalRecords records the batch size.
func (j *Job) SetTotalRecords(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalRecords = n
	j.UpdatedAt = time.Now()
}

// AddResult appends one record outcome and updates counters.
func (j *Job) AddResult(r RecordResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, r)
	j.Progress.RecordsProcessed++
	if !r.Success {
		j.Progress.RecordsFailed++
	}
	j.UpdatedAt = time.Now()
}

// SetOutputPath records where the result file was written.
func (j *Job) SetOutputPath(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputPath = path
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// Results returns a copy of the per-record outcomes so far.
func (j *Job) Results() []RecordResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]RecordResult, len(j.results))
	copy(out, j.results)
	return out
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID         string    `json:"job_id"`
	Mode       string    `json:"mode"`
	Status     JobStatus `json:"status"`
	Phase      string    `json:"phase"`
	Filename   string    `json:"filename"`
	Progress   Progress  `json:"progress"`
	OutputPath string    `json:"output_path,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:         j.ID,
		Mode:       j.Mode,
		Status:     j.Status,
		Phase:      j.Phase,
		Filename:   j.Filename,
		OutputPath: j.OutputPath,
		Progress: Progress{
			TotalRecords:     j.Progress.TotalRecords,
			RecordsProcessed: j.Progress.RecordsProcessed,
			RecordsFailed:    j.Progress.RecordsFailed,
			Errors:           errs,
		},
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
