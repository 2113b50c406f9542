package db

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/maestro/errors"
)

func TestOpen(t *testing.T) {
	t.Run("opens database with pragmas", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		db, err := Open(dbPath, zaptest.NewLogger(t).Sugar())
		require.NoError(t, err)
		defer db.Close()

		var journalMode string
		require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
		assert.Equal(t, "wal", journalMode)

		var foreignKeys int
		require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
		assert.Equal(t, 1, foreignKeys)

		var busyTimeout int
		require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
		assert.Equal(t, SQLiteBusyTimeoutMS, busyTimeout)
	})

	t.Run("returns wrapped error for invalid path", func(t *testing.T) {
		db, err := Open("/invalid/nonexistent/path/db.sqlite", nil)
		if err == nil && db != nil {
			err = db.Ping()
			db.Close()
		}
		require.Error(t, err)
		assert.NotNil(t, errors.GetStack(err), "error should carry a stack trace")
	})
}

func TestOpenWithMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenWithMigrations(dbPath, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"schema_migrations", "candidates", "dbops_jobs", "modules", "schedule_runs", "candidate_lists"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}

	t.Run("is idempotent", func(t *testing.T) {
		require.NoError(t, Migrate(db, nil))

		var versions int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
		assert.Equal(t, 6, versions)

		pending, err := Pending(db)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func TestPending(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fresh.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	pending, err := Pending(db)
	require.NoError(t, err)
	require.Len(t, pending, 6)
	assert.Equal(t, "000_create_schema_migrations.sql", pending[0])

	require.NoError(t, Migrate(db, zaptest.NewLogger(t).Sugar()))
	pending, err = Pending(db)
	require.NoError(t, err)
	assert.Empty(t, pending)

	t.Run("lists only unrecorded versions", func(t *testing.T) {
		last := "005"
		_, err := db.Exec("DELETE FROM schema_migrations WHERE version = ?", last)
		require.NoError(t, err)

		pending, err := Pending(db)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Contains(t, pending[0], last+"_")
	})
}

func TestClassify(t *testing.T) {
	busy := sqlite3.Error{Code: sqlite3.ErrBusy}
	locked := sqlite3.Error{Code: sqlite3.ErrLocked}
	constraint := sqlite3.Error{Code: sqlite3.ErrConstraint}

	assert.True(t, errors.IsTransient(Classify(busy)))
	assert.True(t, errors.IsTransient(Classify(errors.Wrap(locked, "update"))))
	assert.False(t, errors.IsTransient(Classify(constraint)))
	assert.False(t, errors.IsTransient(Classify(fmt.Errorf("plain"))))
	assert.Nil(t, Classify(nil))
}

func TestIsDatabaseClosed(t *testing.T) {
	assert.True(t, IsDatabaseClosed(errors.Wrap(ErrDatabaseClosed, "insert")))
	assert.True(t, IsDatabaseClosed(fmt.Errorf("sql: database is closed")))
	assert.False(t, IsDatabaseClosed(nil))
	assert.False(t, IsDatabaseClosed(fmt.Errorf("no such table")))
}
