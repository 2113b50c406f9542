package async

import (
	"sync"
	"time"

	"github.com/teranos/maestro/errors"
)

// Rejection records a control-channel descriptor that was never queued.
type Rejection struct {
	Payload string    `json:"payload"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

// Status is the read-only snapshot answered to a Jobs command.
type Status struct {
	Current   string      `json:"Current"`
	Completed []Job       `json:"Completed"`
	Failed    []Job       `json:"Failed"`
	Rejected  []Rejection `json:"Rejected,omitempty"`
}

// Queue holds the three disjoint job sequences: waiting (FIFO), completed and
// failed. Only the head of waiting is ever dispatched, and a job leaves
// waiting only by completing or failing.
type Queue struct {
	mu        sync.RWMutex
	waiting   []*Job
	completed []*Job
	failed    []*Job
	rejected  []Rejection
	seqs      map[string]int

	subscribers []func(Job)
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{seqs: make(map[string]int)}
}

// Subscribe registers fn to receive a copy of every job transition
// (enqueue, retry, complete, fail). fn runs on the dispatching goroutine.
func (q *Queue) Subscribe(fn func(Job)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.subscribers = append(q.subscribers, fn)
}

func (q *Queue) notify(job *Job) {
	snapshot := *job
	q.mu.RLock()
	subs := append(([]func(Job))(nil), q.subscribers...)
	q.mu.RUnlock()
	for _, fn := range subs {
		fn(snapshot)
	}
}

// Enqueue appends job to the waiting sequence and assigns it the next
// sequence number for its type.
func (q *Queue) Enqueue(job *Job) {
	q.mu.Lock()
	q.seqs[job.Type]++
	job.Seq = q.seqs[job.Type]
	job.Status = JobStatusWaiting
	q.waiting = append(q.waiting, job)
	q.mu.Unlock()

	q.notify(job)
}

// Reject records a descriptor that failed validation. It touches no
// per-type counter.
func (q *Queue) Reject(payload string, reason error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rejected = append(q.rejected, Rejection{Payload: payload, Reason: reason.Error(), At: time.Now().UTC()})
}

// Head returns the job at the front of the waiting sequence, or nil.
func (q *Queue) Head() *Job {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if len(q.waiting) == 0 {
		return nil
	}
	return q.waiting[0]
}

// Len is the number of waiting jobs.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.waiting)
}

// Seq returns how many jobs of a type have been accepted.
func (q *Queue) Seq(jobType string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.seqs[jobType]
}

func (q *Queue) popHead(job *Job) error {
	if len(q.waiting) == 0 || q.waiting[0] != job {
		return errors.Newf("job %s is not at the head of the waiting sequence", job.Label())
	}
	q.waiting[0] = nil
	q.waiting = q.waiting[1:]
	return nil
}

// Complete moves the head job to the completed sequence.
func (q *Queue) Complete(job *Job) error {
	q.mu.Lock()
	if err := q.popHead(job); err != nil {
		q.mu.Unlock()
		return err
	}
	job.complete()
	q.completed = append(q.completed, job)
	q.mu.Unlock()

	q.notify(job)
	return nil
}

// Fail moves the head job to the failed sequence with its budget zeroed.
func (q *Queue) Fail(job *Job, cause error) error {
	q.mu.Lock()
	if err := q.popHead(job); err != nil {
		q.mu.Unlock()
		return err
	}
	job.Retries = 0
	job.fail(cause)
	q.failed = append(q.failed, job)
	q.mu.Unlock()

	q.notify(job)
	return nil
}

// Retry spends one unit of the head job's budget, leaving it at the head.
// It returns false, changing nothing, when the budget is exhausted.
func (q *Queue) Retry(job *Job, cause error) bool {
	q.mu.Lock()
	ok := job.retry(cause)
	q.mu.Unlock()
	if ok {
		q.notify(job)
	}
	return ok
}

// Snapshot copies the queue state for status reporting.
func (q *Queue) Snapshot() Status {
	q.mu.RLock()
	defer q.mu.RUnlock()

	current := Label(NoJobs, q.seqs[NoJobs])
	if len(q.waiting) > 0 {
		current = q.waiting[0].Label()
	}
	return Status{
		Current:   current,
		Completed: copyJobs(q.completed),
		Failed:    copyJobs(q.failed),
		Rejected:  append([]Rejection(nil), q.rejected...),
	}
}

func copyJobs(in []*Job) []Job {
	out := make([]Job, len(in))
	for i, j := range in {
		out[i] = *j
	}
	return out
}
