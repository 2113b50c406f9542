package async

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/maestro/errors"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		kind    CommandKind
		payload string
	}{
		{"Kill", CommandKill, ""},
		{"Kill\n", CommandKill, ""},
		{"DbOps: Kill", CommandKill, ""},
		{"DbOps: Ping!", CommandPing, ""},
		{"Ping", CommandPing, ""},
		{"DbOps: Jobs", CommandJobs, ""},
		{"Jobs", CommandJobs, ""},
		{`DbOps: NewJob:{"jobType":"remove"}`, CommandNewJob, `{"jobType":"remove"}`},
		{`NewJob: {"a":1}`, CommandNewJob, ` {"a":1}`},
		{"DbOps: Pong!", CommandUnknown, ""},
		{"", CommandUnknown, ""},
		{"kill", CommandUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd := ParseCommand(tt.line)
			assert.Equal(t, tt.kind, cmd.Kind)
			assert.Equal(t, tt.payload, cmd.Payload)
		})
	}
}

func TestParseDescriptor(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		job, err := ParseDescriptor(`{"jobType":"jsonAdd","arguments":["[{\"CandidateName\":\"x\"}]"],"retries":2}`)
		require.NoError(t, err)
		assert.Equal(t, "jsonAdd", job.Type)
		assert.Equal(t, 2, job.Retries)
		require.Len(t, job.Arguments, 1)
		assert.Equal(t, JobStatusWaiting, job.Status)
		assert.Zero(t, job.Seq)
	})

	t.Run("negative retries clamp to zero", func(t *testing.T) {
		job, err := ParseDescriptor(`{"jobType":"remove","arguments":[],"retries":-3}`)
		require.NoError(t, err)
		assert.Equal(t, 0, job.Retries)
	})

	t.Run("unregistered types still parse", func(t *testing.T) {
		job, err := ParseDescriptor(`{"jobType":"doesNotExist","arguments":[],"retries":0}`)
		require.NoError(t, err)
		assert.Equal(t, "doesNotExist", job.Type)
	})

	for name, payload := range map[string]string{
		"truncated":        `{"jobType":`,
		"missing retries":  `{"jobType":"remove","arguments":[]}`,
		"missing jobType":  `{"arguments":[],"retries":0}`,
		"empty jobType":    `{"jobType":"","arguments":[],"retries":0}`,
		"scalar arguments": `{"jobType":"remove","arguments":5,"retries":0}`,
		"float retries":    `{"jobType":"remove","arguments":[],"retries":1.5}`,
		"not an object":    `"remove"`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDescriptor(payload)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrMalformedJobDescriptor))
		})
	}
}

func TestJobsResponse(t *testing.T) {
	q := NewQueue()
	job := NewJob("remove", []json.RawMessage{json.RawMessage(`[1,2]`)}, 1)
	q.Enqueue(job)

	resp, err := JobsResponse(q.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, `DbOps: Jobs:{"Current":"remove_1","Completed":[],"Failed":[]}`, resp)

	require.NoError(t, q.Complete(job))
	resp, err = JobsResponse(q.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, `DbOps: Jobs:{"Current":"No Jobs_0","Completed":[{"jobType":"remove","arguments":[[1,2]],"retries":1,"seq":1}],"Failed":[]}`, resp)
}

func TestResponseLines(t *testing.T) {
	job := &Job{Type: "reject", Seq: 4, Retries: 2}
	err := errors.New("database is locked")

	assert.Equal(t, "DbOps: Pong!", PongResponse())
	assert.Equal(t, "DbOps: Status:Killing self", KillingResponse())
	assert.Equal(t, "DbOps: Result:Completed job 'reject_4'", CompletedResponse(job))
	assert.Equal(t, "DbOps: Status:Retrying job 'reject_4' (2 retries left) after error: database is locked", RetryingResponse(job, err))
	assert.Equal(t, "DbOps: Error:Fatal error encountered during job 'reject_4': database is locked", FatalResponse(job, err))
	assert.Equal(t, "DbOps: Failed:Failed job 'reject_4': database is locked", FailedResponse(job, err))
}
