// Package async is the DbOps job queue processor: a FIFO of candidate store
// mutations dispatched one per tick, with bounded retries for transient store
// failures and a line-oriented control channel.
package async

import (
	"encoding/json"
	"strconv"
	"time"
)

// JobStatus is the sequence a job currently belongs to.
type JobStatus string

const (
	JobStatusWaiting   JobStatus = "waiting"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// NoJobs is reported as the current job type while the waiting sequence is empty.
const NoJobs = "No Jobs"

// Job is a requested mutation against the candidate store. The JSON form is
// the NewJob descriptor, so status snapshots echo what the client sent.
type Job struct {
	Type      string            `json:"jobType"`
	Arguments []json.RawMessage `json:"arguments"`
	Retries   int               `json:"retries"`

	Seq      int       `json:"seq,omitempty"`
	Attempts int       `json:"attempts,omitempty"`
	Error    string    `json:"error,omitempty"`
	Status   JobStatus `json:"-"`

	// ID keys the journal row.
	ID        string    `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// NewJob builds a waiting job. Negative retry budgets are clamped to zero.
func NewJob(jobType string, arguments []json.RawMessage, retries int) *Job {
	if retries < 0 {
		retries = 0
	}
	now := time.Now().UTC()
	return &Job{
		Type:      jobType,
		Arguments: arguments,
		Retries:   retries,
		Status:    JobStatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Label is the "<type>_<seq>" name used in responses and logs.
func (j *Job) Label() string {
	return Label(j.Type, j.Seq)
}

// Label formats a job type and sequence number.
func Label(jobType string, seq int) string {
	return jobType + "_" + strconv.Itoa(seq)
}

func (j *Job) complete() {
	j.Status = JobStatusCompleted
	j.Error = ""
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) fail(err error) {
	j.Status = JobStatusFailed
	if err != nil {
		j.Error = err.Error()
	}
	j.UpdatedAt = time.Now().UTC()
}

// retry spends one unit of retry budget. It returns false when the budget
// was already exhausted.
func (j *Job) retry(err error) bool {
	if j.Retries <= 0 {
		return false
	}
	j.Retries--
	if err != nil {
		j.Error = err.Error()
	}
	j.UpdatedAt = time.Now().UTC()
	return true
}
