package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docnarrative/internal/analyzer"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusParsing     JobStatus = "parsing"
	StatusNormalizing JobStatus = "normalizing"
	StatusTokenizing  JobStatus = "tokenizing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// Job tracks the state of a single document analysis.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	Reused      bool      `json:"reused"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	req    Request
	result *analyzer.Result
	errors []string
}

// Progress summarizes what the analysis produced so far.
type Progress struct {
	Sentences int      `json:"sentences"`
	Words     int      `json:"words"`
	Chunks    int      `json:"chunks"`
	Errors    []string `json:"errors"`
}

// NewJob creates a queued job for req with a fresh ID.
func NewJob(req Request) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    req.Filename,
		Title:       req.Title,
		ContentHash: ContentHashHex(req.Data),
		CreatedAt:   now,
		UpdatedAt:   now,
		req:         req,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction. It
// also keeps finished results by request key so identical submissions are
// answered without re-running the analysis.
type JobStore struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	results map[string]cachedResult
	ttl     time.Duration
}

type cachedResult struct {
	res *analyzer.Result
	at  time.Time
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs:    make(map[string]*Job),
		results: make(map[string]cachedResult),
		ttl:     ttl,
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

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Remember stores a finished result under key.
func (s *JobStore) Remember(key string, res *analyzer.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = cachedResult{res: res, at: time.Now()}
}

// Lookup returns a result stored under key that has not expired.
func (s *JobStore) Lookup(key string) (*analyzer.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.results[key]
	if !ok || time.Since(c.at) > s.ttl {
		return nil, false
	}
	return c.res, true
}

// Cleanup removes expired jobs and results.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
	for key, c := range s.results {
		if now.Sub(c.at) > s.ttl {
			delete(s.results, key)
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

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// Fail records err and marks the job failed in its current phase.
func (j *Job) Fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err.Error())
	j.Progress.Errors = j.errors
	j.Status = StatusFailed
	j.UpdatedAt = time.Now()
}

// Complete stores the result and marks the job completed.
func (j *Job) Complete(res *analyzer.Result, reused bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.Reused = reused
	if j.Title == "" {
		j.Title = res.Title
	}
	j.Progress.Sentences = res.Stats.Sentences
	j.Progress.Words = res.Stats.Words
	j.Progress.Chunks = len(res.Chunks)
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Result returns the analysis result once the job has completed.
func (j *Job) Result() (*analyzer.Result, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.Status == StatusCompleted && j.result != nil
}

// Request returns the request the job was created with.
func (j *Job) Request() Request {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.req
}

// releaseData drops the uploaded bytes once they are no longer needed.
func (j *Job) releaseData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.req.Data = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash"`
	Reused      bool      `json:"reused"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
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
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		ContentHash: j.ContentHash,
		Reused:      j.Reused,
		Progress: Progress{
			Sentences: j.Progress.Sentences,
			Words:     j.Progress.Words,
			Chunks:    j.Progress.Chunks,
			Errors:    append([]string{}, errs...),
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
