package db

import (
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/teranos/maestro/errors"
)

// ErrDatabaseClosed is returned when the store is used after Close.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err means the connection is closed. The
// driver reports this as a plain string, hence the message fallback.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

// IsBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED, the two
// conditions that clear up on their own once the other writer is done.
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// Classify marks busy/locked errors as transient so the job processor retries
// them, and leaves every other error as is.
func Classify(err error) error {
	if IsBusy(err) {
		return errors.MarkTransient(err)
	}
	return err
}
