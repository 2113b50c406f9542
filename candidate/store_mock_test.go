package candidate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/pulse/async"
	"github.com/teranos/maestro/sky"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn, "MaestroUser", zaptest.NewLogger(t).Sugar()).WithClock(sky.FixedClock(testNow)), mock
}

func TestStoreErrorClassification(t *testing.T) {
	ctx := context.Background()

	t.Run("busy is transient", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("UPDATE candidates SET").WillReturnError(sqlite3.Error{Code: sqlite3.ErrBusy})

		err := s.RejectCandidateByID(ctx, 3, ManualRejectionReason)
		require.Error(t, err)
		assert.True(t, errors.IsTransient(err))
		assert.Contains(t, errors.GetAllDetails(err), "candidate_id: 3")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("locked is transient", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT .* FROM candidates").WillReturnError(sqlite3.Error{Code: sqlite3.ErrLocked})

		_, err := s.CandidatesForTimeRange(ctx, testNow, testNow.Add(8*time.Hour), 0.1, "UserFixed")
		assert.True(t, errors.IsTransient(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("constraint violations are fatal", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("INSERT INTO candidates").WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint})

		_, err := s.InsertFields(ctx, map[string]interface{}{"CandidateName": "a", "CandidateType": "UserFixed"})
		require.Error(t, err)
		assert.False(t, errors.IsTransient(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows affected is not found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("UPDATE candidates SET").WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.RemoveCandidateByID(ctx, 8, ManualRemovalReason)
		assert.True(t, errors.IsNotFoundError(err))
		assert.False(t, errors.IsTransient(err))
	})

	t.Run("close closes the connection once", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectClose()

		require.NoError(t, s.Close())
		require.NoError(t, s.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIDJobKeepsRemainingWorkOnFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE candidates SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE candidates SET").WillReturnError(sqlite3.Error{Code: sqlite3.ErrBusy})

	handler := handlerFor(t, Handlers(s), JobRemove)
	job := async.NewJob(JobRemove, []json.RawMessage{json.RawMessage(`[1, 2, 3]`)}, 2)

	err := handler.Execute(context.Background(), job)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	require.Len(t, job.Arguments, 1)
	assert.JSONEq(t, `[2, 3]`, string(job.Arguments[0]))
	require.NoError(t, mock.ExpectationsWereMet())
}

func handlerFor(t *testing.T, handlers []async.JobHandler, name string) async.JobHandler {
	t.Helper()
	for _, h := range handlers {
		if h.Name() == name {
			return h
		}
	}
	t.Fatalf("no handler named %s", name)
	return nil
}
