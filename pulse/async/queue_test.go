package async

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/maestro/errors"
)

func TestQueueTransitions(t *testing.T) {
	q := NewQueue()
	var seen []JobStatus
	q.Subscribe(func(j Job) { seen = append(seen, j.Status) })

	a := NewJob("remove", nil, 1)
	b := NewJob("remove", nil, 0)
	q.Enqueue(a)
	q.Enqueue(b)
	assert.Equal(t, 1, a.Seq)
	assert.Equal(t, 2, b.Seq)
	assert.Equal(t, 2, q.Len())
	assert.Same(t, a, q.Head())

	t.Run("only the head may leave", func(t *testing.T) {
		assert.Error(t, q.Complete(b))
		assert.Error(t, q.Fail(b, errors.New("x")))
		assert.Equal(t, 2, q.Len())
	})

	cause := errors.New("busy")
	assert.True(t, q.Retry(a, cause))
	assert.Equal(t, 0, a.Retries)
	assert.Equal(t, "busy", a.Error)
	assert.False(t, q.Retry(a, cause), "budget exhausted")
	assert.Same(t, a, q.Head())

	require.NoError(t, q.Fail(a, cause))
	require.NoError(t, q.Complete(b))
	assert.Nil(t, q.Head())

	status := q.Snapshot()
	assert.Equal(t, "No Jobs_0", status.Current)
	require.Len(t, status.Failed, 1)
	require.Len(t, status.Completed, 1)
	assert.Equal(t, "remove_1", status.Failed[0].Label())
	assert.Equal(t, "remove_2", status.Completed[0].Label())
	assert.True(t, status.Failed[0].Status.IsTerminal())
	assert.Empty(t, status.Completed[0].Error)

	assert.Equal(t, []JobStatus{
		JobStatusWaiting, JobStatusWaiting, JobStatusWaiting, JobStatusFailed, JobStatusCompleted,
	}, seen)
}

func TestQueueRejectLeavesCounters(t *testing.T) {
	q := NewQueue()
	q.Reject(`{"jobType":"nope"}`, errors.NewInvalidJobTypeError("nope"))

	assert.Equal(t, 0, q.Seq("nope"))
	assert.Equal(t, 0, q.Len())
	status := q.Snapshot()
	require.Len(t, status.Rejected, 1)
	assert.Equal(t, `{"jobType":"nope"}`, status.Rejected[0].Payload)
	assert.Empty(t, status.Completed)
	assert.Empty(t, status.Failed)
}

func TestSnapshotIsACopy(t *testing.T) {
	q := NewQueue()
	job := NewJob("reject", nil, 0)
	q.Enqueue(job)
	require.NoError(t, q.Complete(job))

	status := q.Snapshot()
	status.Completed[0].Type = "mutated"
	assert.Equal(t, "reject", q.Snapshot().Completed[0].Type)
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	r.RegisterAll(
		HandlerFunc{JobType: "reject"},
		HandlerFunc{JobType: "remove"},
	)
	assert.True(t, r.Has("remove"))
	assert.False(t, r.Has("csvAdd"))
	assert.Nil(t, r.Get("csvAdd"))
	assert.Equal(t, []string{"reject", "remove"}, r.Names())

	assert.Panics(t, func() { r.Register(HandlerFunc{JobType: "remove"}) })
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(errors.MarkTransient(errors.New("locked"))))
	assert.True(t, isRetryable(errors.Wrap(Incomplete("%d left", 2), "whitelist")))
	assert.False(t, isRetryable(errors.New("no such table")))
}

func TestQueueSubscribeDuringNotify(t *testing.T) {
	q := NewQueue()
	var late []int
	q.Subscribe(func(j Job) {
		if j.Seq == 1 {
			q.Subscribe(func(j Job) { late = append(late, j.Seq) })
		}
	})

	q.Enqueue(NewJob("remove", nil, 0))
	q.Enqueue(NewJob("remove", nil, 0))
	assert.Equal(t, []int{2}, late, "a subscriber added mid-notify sees only later transitions")
}
