package domain

import (
	"fmt"
	"time"
)

type JobStatus string

const (
	StatusQueued         JobStatus = "queued"
	StatusChunking       JobStatus = "chunking"
	StatusAuthenticating JobStatus = "authenticating"
	StatusSubmitting     JobStatus = "submitting"
	StatusPolling        JobStatus = "polling"
	StatusMerging        JobStatus = "merging"
	StatusScoring        JobStatus = "scoring"
	StatusValidating     JobStatus = "validating"
	StatusCompleted      JobStatus = "completed"
	StatusFailed         JobStatus = "failed"
)

// statusRank orders the pipeline phases. Submitting and Polling alternate
// once per chunk, so the two share forward/backward movement between each
// other; every other transition must move strictly forward.
var statusRank = map[JobStatus]int{
	StatusQueued:         0,
	StatusChunking:       1,
	StatusAuthenticating: 2,
	StatusSubmitting:     3,
	StatusPolling:        4,
	StatusMerging:        5,
	StatusScoring:        6,
	StatusValidating:     7,
	StatusCompleted:      8,
	StatusFailed:         8,
}

func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Disposition is the business outcome of a completed validation.
type Disposition string

const (
	DispositionApproved Disposition = "Approved"
	DispositionReview   Disposition = "Needs Review"
	DispositionRejected Disposition = "Rejected"
)

// ExtractedField is one field reported by the extraction service,
// attributed to the chunk that contributed it.
type ExtractedField struct {
	Name       string  `json:"name"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     int     `json:"source"`
}

// FieldContribution is one row of the confidence breakdown.
type FieldContribution struct {
	Field        string  `json:"field"`
	Value        string  `json:"value"`
	Confidence   float64 `json:"confidence"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	Weighted     bool    `json:"weighted"`
}

type Severity string

const (
	SeverityViolation Severity = "violation"
	SeverityWarning   Severity = "warning"
)

// RuleFinding is a structured outcome of business-rule validation.
type RuleFinding struct {
	FieldName string   `json:"field_name"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	RuleType  string   `json:"rule_type"`
}

// PageRange is a closed 1-based page interval.
type PageRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (r PageRange) String() string { return fmt.Sprintf("%d-%d", r.From, r.To) }

func (r PageRange) Pages() int { return r.To - r.From + 1 }

// ChunkDescriptor is a page-bounded sub-document submitted as one remote
// extraction job. Index is 0-based and contiguous across the job.
type ChunkDescriptor struct {
	Index        int       `json:"index"`
	PageRange    PageRange `json:"page_range"`
	Payload      []byte    `json:"-"`
	RemoteJobID  string    `json:"remote_job_id,omitempty"`
	RemoteStatus string    `json:"remote_status,omitempty"`
	AttemptCount int       `json:"attempt_count"`
}

// JobOptions are the per-request processing switches.
type JobOptions struct {
	Approximation bool `json:"approximation"`
	Validation    bool `json:"validation"`
}

type LogEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Job is one document-validation request. The pipeline worker is the only
// writer while the job is active; once Terminal() the job never changes.
type Job struct {
	ID         string     `json:"id"`
	Filename   string     `json:"filename"`
	StorageKey string     `json:"-"`
	Options    JobOptions `json:"options"`

	Status    JobStatus `json:"status"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`

	PageCount int               `json:"page_count"`
	Chunks    []ChunkDescriptor `json:"chunks"`

	Fields      map[string]ExtractedField `json:"fields"`
	Confidence  float64                   `json:"confidence"`
	Disposition Disposition               `json:"disposition,omitempty"`
	Breakdown   []FieldContribution       `json:"breakdown,omitempty"`
	Violations  []RuleFinding             `json:"violations"`
	Warnings    []RuleFinding             `json:"warnings"`

	Log         []LogEntry `json:"log"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt time.Time  `json:"completed_at,omitzero"`
}

func NewJob(id, filename string, options JobOptions) *Job {
	return &Job{
		ID:         id,
		Filename:   filename,
		Options:    options,
		Status:     StatusQueued,
		Fields:     map[string]ExtractedField{},
		Violations: []RuleFinding{},
		Warnings:   []RuleFinding{},
		CreatedAt:  time.Now().UTC(),
	}
}

// Transition moves the job to the next phase and appends one log entry.
// Transitions never regress: the only permitted backward move is
// Polling -> Submitting for the next chunk, and Failed is reachable from
// any non-terminal state.
func (j *Job) Transition(next JobStatus, message string) error {
	if j.Status.Terminal() {
		return fmt.Errorf("job %s: transition from terminal state %s", j.ID, j.Status)
	}
	if !transitionAllowed(j.Status, next) {
		return fmt.Errorf("job %s: illegal transition %s -> %s", j.ID, j.Status, next)
	}
	j.Status = next
	j.AppendLog(message)
	if next.Terminal() {
		j.CompletedAt = time.Now().UTC()
	}
	return nil
}

func transitionAllowed(from, to JobStatus) bool {
	if to == StatusFailed {
		return true
	}
	if from == StatusPolling && to == StatusSubmitting {
		return true
	}
	// Phases advance one at a time; skipping a phase is a pipeline bug.
	return statusRank[to] == statusRank[from]+1
}

// AppendLog records a timestamped progress event. The log is append-only
// and never rewritten.
func (j *Job) AppendLog(message string) {
	j.Log = append(j.Log, LogEntry{At: time.Now().UTC(), Message: message})
}

// Clone returns a deep copy safe to hand to readers while the pipeline
// still owns the original.
func (j *Job) Clone() *Job {
	out := *j
	out.Chunks = make([]ChunkDescriptor, len(j.Chunks))
	copy(out.Chunks, j.Chunks)
	for i := range out.Chunks {
		out.Chunks[i].Payload = nil
	}
	out.Fields = make(map[string]ExtractedField, len(j.Fields))
	for k, v := range j.Fields {
		out.Fields[k] = v
	}
	out.Breakdown = append([]FieldContribution(nil), j.Breakdown...)
	out.Violations = append([]RuleFinding(nil), j.Violations...)
	out.Warnings = append([]RuleFinding(nil), j.Warnings...)
	out.Log = append([]LogEntry(nil), j.Log...)
	return &out
}
